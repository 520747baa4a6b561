package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/projectdal-backend/errs"
)

type fakeProvider struct {
	sessions    map[string]*Session
	authorized  []string
	exchanged   []string
	revoked     []*Session
	revokeErr   error
	exchangeErr error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) VerifyToken(ctx context.Context, token string) (*Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, errs.NewInvalidTokenError(errors.New("unknown token"))
	}
	return s, nil
}

func (f *fakeProvider) AuthorizeURL(ctx context.Context, provider, redirectURL string) (*AuthRequest, error) {
	f.authorized = append(f.authorized, provider)
	return &AuthRequest{URL: "https://idp.test/" + provider + "?redirect=" + redirectURL, Verifier: "v", Provider: provider}, nil
}

func (f *fakeProvider) Exchange(ctx context.Context, code, verifier string) (*Session, error) {
	f.exchanged = append(f.exchanged, code+":"+verifier)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &Session{UserID: "from-" + code}, nil
}

func (f *fakeProvider) Revoke(ctx context.Context, s *Session) error {
	f.revoked = append(f.revoked, s)
	return f.revokeErr
}

func newTestService(p *fakeProvider, opts ...ServiceOption) *Service {
	return NewService(NewStore(), p, "https://app.test/callback", opts...)
}

func TestService_SignInAndGetSession(t *testing.T) {
	p := &fakeProvider{sessions: map[string]*Session{"tok": {UserID: "u1"}}}
	svc := newTestService(p)
	ctx := context.Background()

	s, err := svc.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	var events []EventType
	svc.OnChange(func(e Event) { events = append(events, e.Type) })

	_, err = svc.SignIn(ctx, " tok ")
	require.NoError(t, err)

	s, err = svc.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, []EventType{EventSignedIn}, events)
}

func TestService_SignInErrors(t *testing.T) {
	expired := &Session{UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}
	p := &fakeProvider{sessions: map[string]*Session{"old": expired}}
	svc := newTestService(p)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "")
	assert.True(t, errs.IsMissingTokenError(err))

	_, err = svc.SignIn(ctx, "nope")
	assert.True(t, errs.IsInvalidTokenError(err))

	_, err = svc.SignIn(ctx, "old")
	assert.True(t, errs.IsExpiredTokenError(err))
}

func TestService_GetSessionDropsExpired(t *testing.T) {
	p := &fakeProvider{sessions: map[string]*Session{"tok": {UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}}}
	svc := newTestService(p)
	ctx := context.Background()
	_, err := svc.SignIn(ctx, "tok")
	require.NoError(t, err)

	var events []EventType
	svc.OnChange(func(e Event) { events = append(events, e.Type) })
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	s, err := svc.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, []EventType{EventSignedOut}, events)
}

func TestService_SignInWithOAuth(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(p, WithOAuthProviders("github", "google"))
	ctx := context.Background()

	req, err := svc.SignInWithOAuth(ctx, "GitHub")
	require.NoError(t, err)
	assert.Contains(t, req.URL, "redirect=https://app.test/callback")
	assert.Equal(t, []string{"github"}, p.authorized)

	_, err = svc.SignInWithOAuth(ctx, "myspace")
	assert.ErrorIs(t, err, errs.ErrUnsupportedProvider)
}

func TestService_CompleteOAuth(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(p)
	ctx := context.Background()

	_, err := svc.CompleteOAuth(ctx, "", "v")
	assert.True(t, errs.IsMissingRequiredFieldError(err))

	s, err := svc.CompleteOAuth(ctx, "abc", "v")
	require.NoError(t, err)
	assert.Equal(t, "from-abc", s.UserID)
	assert.Equal(t, []string{"abc:v"}, p.exchanged)

	current, _ := svc.GetSession(ctx)
	require.NotNil(t, current)
	assert.Equal(t, "from-abc", current.UserID)
}

func TestService_SignOutClearsEvenWhenRevokeFails(t *testing.T) {
	p := &fakeProvider{
		sessions:  map[string]*Session{"tok": {UserID: "u1"}},
		revokeErr: errors.New("network"),
	}
	svc := newTestService(p)
	ctx := context.Background()
	_, err := svc.SignIn(ctx, "tok")
	require.NoError(t, err)

	err = svc.SignOut(ctx)
	assert.Error(t, err)
	require.Len(t, p.revoked, 1)

	s, _ := svc.GetSession(ctx)
	assert.Nil(t, s)

	assert.NoError(t, svc.SignOut(ctx), "signing out twice is a no-op")
	assert.Len(t, p.revoked, 1)
}
