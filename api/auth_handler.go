package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/errs"
)

const (
	verifierCookie    = "pkce_verifier"
	verifierCookieTTL = 10 * time.Minute
)

type authHandler struct {
	responder     Responder
	logger        zerolog.Logger
	secureCookies bool
}

func newAuthHandler(secureCookies bool) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder:     NewResponder(logger),
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// setVerifierCookie keeps the PKCE verifier for the callback. Providers that
// hold the verifier themselves leave it empty and no cookie is set.
func setVerifierCookie(w http.ResponseWriter, req *auth.AuthRequest, secure bool) {
	if req == nil || req.Verifier == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     verifierCookie,
		Value:    req.Verifier,
		Path:     "/auth",
		MaxAge:   int(verifierCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearVerifierCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     verifierCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// getSession returns the caller's session, or null when signed out
// @Summary Current session
// @Tags Auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse "Unauthorized - Invalid or expired token"
// @Router /auth/session [get]
func (h authHandler) getSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, SessionResponse{Session: sessionFromCtx(r.Context())})
	}
}

// startOAuth sends the user to the identity provider. With ?redirect=false the
// sign-in URL is returned as JSON instead.
// @Summary Start OAuth sign-in
// @Tags Auth
// @Param provider path string true "OAuth provider, e.g. github"
// @Success 302
// @Failure 400 {object} ErrorResponse "Bad Request - Unsupported provider"
// @Router /auth/oauth/{provider} [get]
func (h authHandler) startOAuth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := authFromCtx(r.Context()).SignInWithOAuth(r.Context(), chi.URLParam(r, "provider"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		setVerifierCookie(w, req, h.secureCookies)
		if r.URL.Query().Get("redirect") == "false" {
			h.responder.WriteJSON(w, req)
			return
		}
		http.Redirect(w, r, req.URL, http.StatusFound)
	}
}

// callback finishes an OAuth sign-in
// @Summary OAuth callback
// @Tags Auth
// @Produce json
// @Param code query string true "Authorization code"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Missing code"
// @Failure 401 {object} ErrorResponse "Unauthorized - Exchange failed"
// @Router /auth/callback [get]
func (h authHandler) callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if providerErr := r.URL.Query().Get("error"); providerErr != "" {
			h.responder.WriteError(w, errs.NewBadRequestError("sign-in failed: "+providerErr))
			return
		}

		var verifier string
		if c, err := r.Cookie(verifierCookie); err == nil {
			verifier = c.Value
		}

		session, err := authFromCtx(r.Context()).CompleteOAuth(r.Context(), r.URL.Query().Get("code"), verifier)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		clearVerifierCookie(w, h.secureCookies)
		h.logger.Info().Str("userID", session.UserID).Str("provider", session.Provider).Msg("user signed in")
		h.responder.WriteJSON(w, TokenResponse{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			Session:      session,
		})
	}
}

// signOut revokes the caller's session
// @Summary Sign out
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse "Unauthorized - Sign in required"
// @Failure 503 {object} ErrorResponse "Service Unavailable - Provider unreachable"
// @Router /auth/signout [post]
func (h authHandler) signOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authFromCtx(r.Context()).SignOut(r.Context()); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
