package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

// ==========================
// SES
// ==========================

func TestSESClient_SendEmail(t *testing.T) {
	api := &fakeSES{}
	c := NewSESClientWithAPI(api, "no-reply@assistance.example.gov")

	id, err := c.SendEmail(context.Background(), "fatima@example.ae", "تم استلام طلبك", "المرجع FA-1")

	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	require.NotNil(t, api.input)
	assert.Equal(t, []string{"fatima@example.ae"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "no-reply@assistance.example.gov", aws.ToString(api.input.Source))
	assert.Equal(t, "تم استلام طلبك", aws.ToString(api.input.Message.Subject.Data))
	assert.Equal(t, "UTF-8", aws.ToString(api.input.Message.Body.Text.Charset))
}

func TestSESClient_Errors(t *testing.T) {
	c := NewSESClientWithAPI(&fakeSES{err: errors.New("throttled")}, "from@example.gov")

	_, err := c.SendEmail(context.Background(), "", "s", "b")
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = c.SendEmail(context.Background(), "a@example.ae", "s", "b")
	assert.ErrorContains(t, err, "throttled")
}

// ==========================
// SNS
// ==========================

func TestSNSClient_SendSMS(t *testing.T) {
	api := &fakeSNS{}
	c := NewSNSClientWithAPI(api)

	id, err := c.SendSMS(context.Background(), "+971501234567", "Reference FA-1")

	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Equal(t, "+971501234567", aws.ToString(api.input.PhoneNumber))
	assert.Equal(t, "Transactional", aws.ToString(api.input.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSNSClient_RejectsNonE164(t *testing.T) {
	api := &fakeSNS{}
	c := NewSNSClientWithAPI(api)

	for _, phone := range []string{"", "501234567", "+0501234567", "+971 50 123 4567"} {
		_, err := c.SendSMS(context.Background(), phone, "m")
		assert.ErrorIs(t, err, ErrNoRecipient, phone)
	}
	assert.Nil(t, api.input)
}
