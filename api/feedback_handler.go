package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/errs"
	"github.com/rpupo63/projectdal-backend/feedback"
)

const maxFeedbackBody = 64 << 10

type feedbackHandler struct {
	responder Responder
	logger    zerolog.Logger
	feedback  FeedbackSubmitter
}

func newFeedbackHandler(submitter FeedbackSubmitter) feedbackHandler {
	logger := log.With().Str("handlerName", "feedbackHandler").Logger()

	return feedbackHandler{
		responder: NewResponder(logger),
		logger:    logger,
		feedback:  submitter,
	}
}

// createFeedback stores a message from the feedback form
// @Summary Send feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param feedback body feedback.Entry true "Email and message"
// @Success 201 {object} models.Feedback
// @Failure 400 {object} ErrorResponse "Bad Request - Malformed body"
// @Failure 422 {object} ValidationResponse "Invalid fields"
// @Router /feedback [post]
func (h feedbackHandler) createFeedback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry feedback.Entry
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBody)).Decode(&entry); err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("json", err))
			return
		}

		var userID string
		if session := sessionFromCtx(r.Context()); session != nil {
			userID = session.UserID
		}

		stored, err := h.feedback.Submit(r.Context(), entry, userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteStatus(w, http.StatusCreated, stored)
	}
}
