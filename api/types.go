package api

import (
	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/models"
)

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error   string `json:"error"`
	Status  string `json:"status"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// ValidationResponse lists every invalid field of a form.
type ValidationResponse struct {
	Error  string            `json:"error"`
	Status string            `json:"status"`
	Errors map[string]string `json:"errors"`
}

// AuthRequiredResponse tells the client to send the user to sign in.
type AuthRequiredResponse struct {
	Status    string `json:"status"`
	SignInURL string `json:"signInUrl"`
	Provider  string `json:"provider"`
}

type ProjectCollection struct {
	Projects []*models.Project `json:"projects"`
	Total    int               `json:"total"`
}

type SubmissionResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Project *models.Project `json:"project,omitempty"`
}

type SessionResponse struct {
	Session *auth.Session `json:"session"`
}

// TokenResponse is returned after a completed OAuth sign-in.
type TokenResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	Session      *auth.Session `json:"session"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	StartedAt     string `json:"startedAt"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}
