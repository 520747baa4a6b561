package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Request & Input-Validation Errors
var (
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrValidation           = errors.New("validation failed")
	ErrMaxBodySizeExceeded  = errors.New("max body size exceeded")
	ErrInvalidContentType   = errors.New("invalid content type")
)

// ValidationErr carries a field -> message map. It is the only error that
// reports several fields at once; everything else uses ApiErr.Field.
type ValidationErr struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationErr {
	return &ValidationErr{Fields: fields}
}

func (e *ValidationErr) Error() string {
	return fmt.Sprintf("%s: %d field(s)", ErrValidation.Error(), len(e.Fields))
}

func (e *ValidationErr) Unwrap() error {
	return ErrValidation
}

func NewMalformedPayloadError(payloadType string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrMalformedPayload,
		Details:    fmt.Sprintf("Malformed %s payload", payloadType),
		Cause:      cause,
		Field:      "payload",
	}
}

func NewMissingRequiredFieldError(fieldName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrMissingRequiredField,
		Details:    fmt.Sprintf("Missing required field: %s", fieldName),
		Field:      fieldName,
	}
}

func NewMaxBodySizeExceededError(maxSize int64) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusRequestEntityTooLarge,
		err:        ErrMaxBodySizeExceeded,
		Details:    fmt.Sprintf("Request body size exceeded maximum allowed size of %d bytes", maxSize),
		Field:      "body_size",
	}
}

func NewInvalidContentTypeError(contentType string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnsupportedMediaType,
		err:        ErrInvalidContentType,
		Details:    fmt.Sprintf("Invalid content type: %s", contentType),
		Field:      "content_type",
	}
}

func IsMissingRequiredFieldError(err error) bool {
	return errors.Is(err, ErrMissingRequiredField)
}
