package api

import (
	"net/http"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/errs"
)

type authMiddleware struct {
	responder      Responder
	provider       auth.Provider
	redirectURL    string
	oauthProviders []string
}

func newAuthMiddleware(provider auth.Provider, redirectURL string, oauthProviders []string) authMiddleware {
	logger := log.With().Str("handlerName", "authMiddleware").Logger()
	return authMiddleware{
		responder:      NewResponder(logger),
		provider:       provider,
		redirectURL:    redirectURL,
		oauthProviders: oauthProviders,
	}
}

// session gives every request its own session service. A bearer token, when
// present, must verify; requests without one continue signed out.
func (m authMiddleware) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc := auth.NewService(auth.NewStore(), m.provider, m.redirectURL, auth.WithOAuthProviders(m.oauthProviders...))

		token, present, err := bearerToken(r)
		if err != nil {
			m.responder.WriteError(w, err)
			return
		}
		if present {
			if _, err := svc.SignIn(r.Context(), token); err != nil {
				m.responder.WriteError(w, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctxWithAuth(r.Context(), svc)))
	})
}

// authenticate rejects requests without a live session.
func (m authMiddleware) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFromCtx(r.Context()) == nil {
			m.responder.WriteError(w, errs.NewAuthRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken reports whether an Authorization header was sent. Any scheme
// other than Bearer is rejected.
func bearerToken(r *http.Request) (string, bool, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false, nil
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", true, errs.NewUnauthorizedError("authorization header must carry a bearer token")
	}
	return strings.TrimSpace(token), true, nil
}

// statusResponseWriter records the status and body size of a response.
type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// LogInternalServerErrors recovers panics and logs every 5xx response.
func LogInternalServerErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srw := &statusResponseWriter{ResponseWriter: w, status: 200}

		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic")

				// Write 500 if nothing written yet
				if !srw.wroteHeader {
					srw.WriteHeader(http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(srw, r)

		if srw.status >= http.StatusInternalServerError {
			log.Error().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", srw.status).
				Msg("server error response")
		}
	})
}

// CORSCheckMiddleware checks if the request is blocked by CORS and returns a proper error
func CORSCheckMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// No origin header means a same-origin or non-browser request
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed := slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			if !allowed && r.Method == http.MethodOptions {
				responder := NewResponder(log.Logger)
				responder.WriteError(w, errs.NewCORSError(origin))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware sets CORS headers for allowed origins and answers preflights.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// ColoredHTTPLoggingMiddleware logs HTTP requests with colored output based on status codes
func ColoredHTTPLoggingMiddleware(next http.Handler) http.Handler {
	// Set up colored console writer for development
	colorLogger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: 200}

		next.ServeHTTP(srw, r)

		duration := time.Since(start)

		// Color-code based on HTTP status codes
		var logEvent *zerolog.Event
		switch {
		case srw.status >= 500:
			logEvent = colorLogger.Error()
		case srw.status >= 400:
			logEvent = colorLogger.Warn()
		default:
			logEvent = colorLogger.Info()
		}

		logEvent.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", srw.status).
			Int("bytes", srw.bytes).
			Dur("duration", duration).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP Request")
	})
}
