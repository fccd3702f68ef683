package sendconfirmation

import "assistance-portal/internal/models"

type Input struct {
	Reference   string                     `json:"reference"`
	Language    string                     `json:"language"`
	Country     string                     `json:"country"`
	Application models.ApplicationDocument `json:"application"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	EmailStatus    string `json:"emailStatus"`
	SMSStatus      string `json:"smsStatus"`
	SentAt         string `json:"sentAt"` // RFC 3339
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

type template struct {
	Subject string
	Email   string
	SMS     string
}

var templates = map[string]template{
	"en": {
		Subject: "Your application has been received",
		Email: "Dear {{name}},\n\nWe have received your financial assistance application. " +
			"Your reference number is {{reference}}. Please keep it for your records.",
		SMS: "Application {{reference}} received. We will contact you once it has been reviewed.",
	},
	"ar": {
		Subject: "تم استلام طلبك",
		Email: "{{name}}،\n\nلقد استلمنا طلب المساعدة المالية الخاص بك. " +
			"رقم المرجع هو {{reference}}. يرجى الاحتفاظ به.",
		SMS: "تم استلام الطلب {{reference}}. سنتواصل معك بعد مراجعته.",
	},
}
