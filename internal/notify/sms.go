// Package notify sends text messages through Twilio: yearly reminders to
// customers and crew notifications to crew members' phones.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNotConfigured is returned by Send when no sender number is set.
var ErrNotConfigured = errors.New("sms sender not configured")

// MessageSender is the part of the Twilio REST API used here.
// Implemented by twilio.RestClient.Api.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends text messages from one number.
type SMS struct {
	api  MessageSender
	from string
}

// NewSMS creates an SMS sender over api.
func NewSMS(api MessageSender, from string) *SMS {
	return &SMS{api: api, from: from}
}

// NewTwilio creates an SMS sender backed by the Twilio REST API.
func NewTwilio(accountSID, authToken, from string) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSMS(client.Api, from)
}

// Send delivers body to the phone number to and returns the message SID.
func (s *SMS) Send(ctx context.Context, to, body string) (string, error) {
	if s.from == "" {
		return "", ErrNotConfigured
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return "", fmt.Errorf("send sms: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("send sms to %s: %w", to, err)
	}
	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
