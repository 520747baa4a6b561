package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rpupo63/projectdal-backend/errs"
)

const maxResponseSize = 10 * 1024 * 1024

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteStatus(w, http.StatusOK, data)
}

// WriteStatus writes data as JSON with the given status code.
func (r Responder) WriteStatus(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")

		truncatedJSON, _ := json.Marshal(map[string]any{
			"error":        "Response too large",
			"message":      "The requested data exceeds the maximum response size",
			"maxSizeMB":    maxResponseSize / (1024 * 1024),
			"actualSizeMB": len(jsonData) / (1024 * 1024),
		})
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write(truncatedJSON)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var validationErr *errs.ValidationErr
	if errors.As(err, &validationErr) {
		r.WriteValidationErrors(w, validationErr.Fields)
		return
	}

	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		r.WriteStatus(w, http.StatusInternalServerError, ErrorResponse{
			Error:  "Internal Server Error",
			Status: "error",
		})
		return
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Int("status", apiErr.StatusCode).Msg("request failed")
	}

	response := ErrorResponse{
		Error:   apiErr.Error(),
		Status:  "error",
		Field:   apiErr.Field,
		Details: apiErr.Details,
	}
	if apiErr.StatusCode < http.StatusInternalServerError && apiErr.Cause != nil {
		response.Cause = apiErr.GetFullError()
	}
	r.WriteStatus(w, apiErr.StatusCode, response)
}

// WriteValidationErrors writes a field -> message map with status 422.
func (r Responder) WriteValidationErrors(w http.ResponseWriter, fields map[string]string) {
	r.WriteStatus(w, http.StatusUnprocessableEntity, ValidationResponse{
		Error:  "Validation error",
		Status: "invalid",
		Errors: fields,
	})
}

func wrapDatabaseError(operation, entity string, cause error) error {
	return errs.NewDatabaseError(operation, entity, cause)
}
