package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/descope/go-sdk/descope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/projectdal-backend/errs"
)

type fakeDescope struct {
	valid      bool
	token      *descope.Token
	err        error
	info       *descope.AuthenticationInfo
	loggedOut  []string
	redirectTo string
}

func (f *fakeDescope) validate(ctx context.Context, sessionToken string) (bool, *descope.Token, error) {
	return f.valid, f.token, f.err
}

func (f *fakeDescope) signUpOrIn(ctx context.Context, provider, redirectURL string) (string, error) {
	f.redirectTo = redirectURL
	return "https://api.descope.com/oauth/" + provider, nil
}

func (f *fakeDescope) exchange(ctx context.Context, code string) (*descope.AuthenticationInfo, error) {
	return f.info, f.err
}

func (f *fakeDescope) logout(ctx context.Context, refreshToken string) error {
	f.loggedOut = append(f.loggedOut, refreshToken)
	return nil
}

func TestDescopeProvider_VerifyToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	api := &fakeDescope{valid: true, token: &descope.Token{
		ID:         "U123",
		Expiration: exp,
		Claims:     map[string]any{"email": "ali@example.com"},
	}}
	p := &DescopeProvider{api: api}

	s, err := p.VerifyToken(context.Background(), "jwt")
	require.NoError(t, err)
	assert.Equal(t, "U123", s.UserID)
	assert.Equal(t, "ali@example.com", s.Email)
	assert.Equal(t, exp, s.ExpiresAt.Unix())
	assert.Equal(t, "jwt", s.AccessToken)
}

func TestDescopeProvider_VerifyTokenRejected(t *testing.T) {
	p := &DescopeProvider{api: &fakeDescope{valid: false}}
	_, err := p.VerifyToken(context.Background(), "jwt")
	assert.True(t, errs.IsInvalidTokenError(err))

	p = &DescopeProvider{api: &fakeDescope{err: errors.New("boom")}}
	_, err = p.VerifyToken(context.Background(), "jwt")
	assert.True(t, errs.IsInvalidTokenError(err))
}

func TestDescopeProvider_AuthorizeAndExchange(t *testing.T) {
	api := &fakeDescope{info: &descope.AuthenticationInfo{
		SessionToken: &descope.Token{JWT: "session", ID: "U1"},
		RefreshToken: &descope.Token{JWT: "refresh"},
	}}
	p := &DescopeProvider{api: api}
	ctx := context.Background()

	req, err := p.AuthorizeURL(ctx, "google", "https://app.test/cb")
	require.NoError(t, err)
	assert.Equal(t, "https://api.descope.com/oauth/google", req.URL)
	assert.Empty(t, req.Verifier)
	assert.Equal(t, "https://app.test/cb", api.redirectTo)

	s, err := p.Exchange(ctx, "code", "")
	require.NoError(t, err)
	assert.Equal(t, "U1", s.UserID)
	assert.Equal(t, "session", s.AccessToken)
	assert.Equal(t, "refresh", s.RefreshToken)

	require.NoError(t, p.Revoke(ctx, s))
	assert.Equal(t, []string{"refresh"}, api.loggedOut)
}

func TestDescopeProvider_ExchangeWithoutSession(t *testing.T) {
	p := &DescopeProvider{api: &fakeDescope{info: &descope.AuthenticationInfo{}}}
	_, err := p.Exchange(context.Background(), "code", "")
	assert.ErrorIs(t, err, errs.ErrOAuthExchange)
}
