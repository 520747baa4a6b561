package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/errs"
)

// Notice is a short message for the site's maintainers.
type Notice struct {
	Subject string
	Body    string
}

// Channel delivers notices one way, such as email or SMS.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notice) error
}

type emailSender interface {
	SendEmail(ctx context.Context, subject, body string, recipients []string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type EmailChannel struct {
	mailer     emailSender
	recipients []string
}

func NewEmailChannel(mailer emailSender, recipients []string) *EmailChannel {
	return &EmailChannel{mailer: mailer, recipients: recipients}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, n Notice) error {
	body := "<p>" + strings.ReplaceAll(html.EscapeString(n.Body), "\n", "<br>") + "</p>"
	return c.mailer.SendEmail(ctx, n.Subject, body, c.recipients)
}

type SMSChannel struct {
	sender  smsSender
	numbers []string
}

func NewSMSChannel(sender smsSender, numbers []string) *SMSChannel {
	return &SMSChannel{sender: sender, numbers: numbers}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Send(ctx context.Context, n Notice) error {
	var failed []string
	for _, to := range c.numbers {
		if err := c.sender.SendSMS(ctx, to, n.Subject+"\n"+n.Body); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", to, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s", strings.Join(failed, "; "))
	}
	return nil
}

// Broadcaster sends every notice on all of its channels.
type Broadcaster struct {
	channels []Channel
}

func NewBroadcaster(channels ...Channel) *Broadcaster {
	return &Broadcaster{channels: channels}
}

// SelectChannels keeps the channels whose name is listed, ignoring case.
func SelectChannels(all []Channel, names []string) []Channel {
	var out []Channel
	for _, c := range all {
		if contains(names, c.Name()) {
			out = append(out, c)
		}
	}
	return out
}

// Notify tries every channel even if some fail, and returns one
// notification error per failed channel.
func (b *Broadcaster) Notify(ctx context.Context, n Notice) error {
	var failed []error
	var successes []string

	for _, c := range b.channels {
		if err := c.Send(ctx, n); err != nil {
			log.Error().Err(err).Str("channel", c.Name()).Msg("Failed to send notice")
			failed = append(failed, errs.NewNotificationError(c.Name(), err))
			continue
		}
		successes = append(successes, c.Name())
	}

	if len(successes) > 0 {
		log.Info().Strs("channels", successes).Str("subject", n.Subject).Msg("Notice sent")
	}
	return errors.Join(failed...)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(strings.TrimSpace(s), item) {
			return true
		}
	}
	return false
}
