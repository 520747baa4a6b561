package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio API used to send texts.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMSSender sends text messages through Twilio.
type SMSSender struct {
	api  messageCreator
	from string
}

func NewSMSSender(accountSID, authToken, from string) *SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSSender{api: client.Api, from: from}
}

// SendSMS texts body to one number. Twilio's client has no context support,
// so ctx is only checked before sending.
func (s *SMSSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS via Twilio: %w", err)
	}
	if msg != nil && msg.Sid != nil {
		log.Info().Str("messageSid", *msg.Sid).Msg("Successfully sent SMS via Twilio")
	}
	return nil
}
