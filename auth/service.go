package auth

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/errs"
)

// AuthRequest is where to send the user to sign in. Verifier is the PKCE
// secret the callback needs to finish the exchange; it is empty for providers
// that keep it themselves.
type AuthRequest struct {
	URL      string `json:"url"`
	Verifier string `json:"-"`
	Provider string `json:"provider"`
}

// Provider issues and checks sessions.
type Provider interface {
	Name() string
	VerifyToken(ctx context.Context, accessToken string) (*Session, error)
	AuthorizeURL(ctx context.Context, oauthProvider, redirectURL string) (*AuthRequest, error)
	Exchange(ctx context.Context, code, verifier string) (*Session, error)
	Revoke(ctx context.Context, session *Session) error
}

// Service is the session collaborator handed to consumers. It is the only
// writer of its Store.
type Service struct {
	store          *Store
	provider       Provider
	redirectURL    string
	oauthProviders []string
	now            func() time.Time
}

type ServiceOption func(*Service)

// WithOAuthProviders limits SignInWithOAuth to the given providers.
func WithOAuthProviders(providers ...string) ServiceOption {
	return func(s *Service) {
		s.oauthProviders = providers
	}
}

func NewService(store *Store, provider Provider, redirectURL string, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		provider:    provider,
		redirectURL: redirectURL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSession returns the current session, or nil when there is none. An
// expired session is dropped and reported as absent.
func (s *Service) GetSession(ctx context.Context) (*Session, error) {
	session := s.store.Session()
	if session == nil {
		return nil, nil
	}
	if session.Expired(s.now()) {
		s.store.clear()
		return nil, nil
	}
	return session, nil
}

func (s *Service) OnChange(l Listener) (unsubscribe func()) {
	return s.store.Subscribe(l)
}

// SignIn verifies an access token and makes it the current session.
func (s *Service) SignIn(ctx context.Context, accessToken string) (*Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errs.NewMissingTokenError()
	}
	session, err := s.provider.VerifyToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, errs.NewExpiredTokenError()
	}
	s.store.set(session)
	return session, nil
}

// SignInWithOAuth starts an OAuth sign-in and returns where to send the user.
func (s *Service) SignInWithOAuth(ctx context.Context, oauthProvider string) (*AuthRequest, error) {
	oauthProvider = strings.ToLower(strings.TrimSpace(oauthProvider))
	if oauthProvider == "" || (len(s.oauthProviders) > 0 && !slices.Contains(s.oauthProviders, oauthProvider)) {
		return nil, errs.NewUnsupportedProviderError(oauthProvider)
	}
	return s.provider.AuthorizeURL(ctx, oauthProvider, s.redirectURL)
}

// CompleteOAuth finishes an OAuth sign-in started by SignInWithOAuth.
func (s *Service) CompleteOAuth(ctx context.Context, code, verifier string) (*Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errs.NewMissingRequiredFieldError("code")
	}
	session, err := s.provider.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	s.store.set(session)
	return session, nil
}

// SignOut revokes the session with the provider and clears it locally. The
// local session is cleared even when revocation fails.
func (s *Service) SignOut(ctx context.Context) error {
	session := s.store.Session()
	if session == nil {
		return nil
	}
	s.store.clear()
	if err := s.provider.Revoke(ctx, session); err != nil {
		log.Warn().Err(err).Str("userID", session.UserID).Msg("session revoke failed")
		return err
	}
	return nil
}

// ProviderName names the identity provider behind the service.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
