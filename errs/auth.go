package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Authentication & Authorization Errors
var (
	ErrMissingToken        = errors.New("missing access token")
	ErrExpiredToken        = errors.New("expired access token")
	ErrInvalidToken        = errors.New("invalid access token")
	ErrAuthRequired        = errors.New("authentication required")
	ErrUnsupportedProvider = errors.New("unsupported sign-in provider")
	ErrOAuthExchange       = errors.New("oauth code exchange failed")
)

func NewMissingTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrMissingToken,
		Details:    "Missing access token",
		Field:      "authorization",
	}
}

func NewExpiredTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrExpiredToken,
		Details:    "Access token has expired",
		Field:      "authorization",
	}
}

func NewInvalidTokenError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrInvalidToken,
		Details:    "Invalid access token",
		Field:      "authorization",
		Cause:      cause,
	}
}

func NewAuthRequiredError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrAuthRequired,
		Details:    "Sign in to continue",
	}
}

func NewUnsupportedProviderError(provider string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrUnsupportedProvider,
		Details:    fmt.Sprintf("Provider %q is not enabled", provider),
		Field:      "provider",
	}
}

func NewOAuthExchangeError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrOAuthExchange,
		Cause:      cause,
	}
}

func IsMissingTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken)
}

func IsExpiredTokenError(err error) bool {
	return errors.Is(err, ErrExpiredToken)
}

func IsInvalidTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
