// Package feedback validates and stores messages from the feedback form.
package feedback

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/errs"
	"github.com/rpupo63/projectdal-backend/metrics"
	"github.com/rpupo63/projectdal-backend/models"
	"github.com/rpupo63/projectdal-backend/services"
)

const MaxMessageLength = 5000

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type Entry struct {
	Email    string `json:"email"`
	Feedback string `json:"feedback"`
}

// Validate returns field -> message for every problem with e.
func Validate(e Entry) map[string]string {
	fields := map[string]string{}
	if !emailPattern.MatchString(strings.TrimSpace(e.Email)) {
		fields["email"] = "Please enter a valid email address"
	}
	msg := strings.TrimSpace(e.Feedback)
	switch {
	case msg == "":
		fields["feedback"] = "Please enter your feedback"
	case len([]rune(msg)) > MaxMessageLength:
		fields["feedback"] = "Feedback is too long"
	}
	return fields
}

type Repo interface {
	Add(ctx context.Context, f *models.Feedback) error
}

type Notifier interface {
	Notify(ctx context.Context, n services.Notice) error
}

type Service struct {
	repo     Repo
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewService wires the feedback store. notifier and m may be nil.
func NewService(repo Repo, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{repo: repo, notifier: notifier, metrics: m}
}

// Submit stores a valid entry and tells the maintainers about it. A failed
// notification is logged and does not fail the submission.
func (s *Service) Submit(ctx context.Context, e Entry, userID string) (*models.Feedback, error) {
	if fields := Validate(e); len(fields) > 0 {
		s.record(metrics.OutcomeInvalid)
		return nil, errs.NewValidationError(fields)
	}

	fb := &models.Feedback{
		Email:   strings.TrimSpace(e.Email),
		Message: strings.TrimSpace(e.Feedback),
	}
	if userID != "" {
		fb.UserID = &userID
	}

	if err := s.repo.Add(ctx, fb); err != nil {
		s.record(metrics.OutcomeFailed)
		return nil, errs.NewDatabaseError("insert", "feedback", err)
	}
	s.record(metrics.OutcomeSuccess)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, services.FeedbackNotice(fb)); err != nil {
			log.Warn().Err(err).Str("feedbackID", fb.ID.String()).Msg("feedback stored but notification failed")
		}
	}
	return fb, nil
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.FeedbackEntries.WithLabelValues(outcome).Inc()
	}
}
