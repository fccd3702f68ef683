package recordapplication

import "assistance-portal/internal/models"

// Input is the variable set the review process starts with.
type Input struct {
	Reference   string                     `json:"reference"`
	Language    string                     `json:"language"`
	Country     string                     `json:"country"`
	SubmittedAt string                     `json:"submittedAt"` // RFC 3339
	Application models.ApplicationDocument `json:"application"`
}

type Output struct {
	Reference         string `json:"reference"`
	ApplicationStatus string `json:"applicationStatus"`
	RecordedAt        string `json:"recordedAt"` // RFC 3339
	AlreadyRecorded   bool   `json:"alreadyRecorded"`
}
