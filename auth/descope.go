package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/descope/go-sdk/descope"
	"github.com/descope/go-sdk/descope/client"

	"github.com/rpupo63/projectdal-backend/errs"
)

// descopeAPI is the part of the Descope SDK the provider uses.
type descopeAPI interface {
	validate(ctx context.Context, sessionToken string) (bool, *descope.Token, error)
	signUpOrIn(ctx context.Context, provider, redirectURL string) (string, error)
	exchange(ctx context.Context, code string) (*descope.AuthenticationInfo, error)
	logout(ctx context.Context, refreshToken string) error
}

type descopeSDK struct {
	client *client.DescopeClient
}

func (d descopeSDK) validate(ctx context.Context, sessionToken string) (bool, *descope.Token, error) {
	return d.client.Auth.ValidateSessionWithToken(ctx, sessionToken)
}

func (d descopeSDK) signUpOrIn(ctx context.Context, provider, redirectURL string) (string, error) {
	return d.client.Auth.OAuth().SignUpOrIn(ctx, descope.OAuthProvider(provider), redirectURL, "", nil, nil, nil)
}

func (d descopeSDK) exchange(ctx context.Context, code string) (*descope.AuthenticationInfo, error) {
	return d.client.Auth.OAuth().ExchangeToken(ctx, code, nil)
}

func (d descopeSDK) logout(ctx context.Context, refreshToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", nil)
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: descope.RefreshCookieName, Value: refreshToken})
	return d.client.Auth.Logout(req, nil)
}

// DescopeProvider authenticates through a Descope project.
type DescopeProvider struct {
	api descopeAPI
}

func NewDescopeProvider(projectID string) (*DescopeProvider, error) {
	c, err := client.NewWithConfig(&client.Config{ProjectID: projectID})
	if err != nil {
		return nil, errs.NewConfigError("descope", err)
	}
	return &DescopeProvider{api: descopeSDK{client: c}}, nil
}

func (p *DescopeProvider) Name() string {
	return "descope"
}

func (p *DescopeProvider) VerifyToken(ctx context.Context, accessToken string) (*Session, error) {
	ok, token, err := p.api.validate(ctx, accessToken)
	if err != nil {
		return nil, errs.NewInvalidTokenError(err)
	}
	if !ok || token == nil {
		return nil, errs.NewInvalidTokenError(errors.New("session rejected"))
	}
	session := sessionFromToken(token, p.Name())
	session.AccessToken = accessToken
	return session, nil
}

func (p *DescopeProvider) AuthorizeURL(ctx context.Context, oauthProvider, redirectURL string) (*AuthRequest, error) {
	url, err := p.api.signUpOrIn(ctx, oauthProvider, redirectURL)
	if err != nil {
		return nil, errs.NewServiceUnreachableError("descope", err)
	}
	return &AuthRequest{URL: url, Provider: oauthProvider}, nil
}

// Exchange ignores verifier; Descope keeps the PKCE state on its side.
func (p *DescopeProvider) Exchange(ctx context.Context, code, verifier string) (*Session, error) {
	info, err := p.api.exchange(ctx, code)
	if err != nil {
		return nil, errs.NewOAuthExchangeError(err)
	}
	if info == nil || info.SessionToken == nil {
		return nil, errs.NewOAuthExchangeError(errors.New("no session token returned"))
	}

	session := sessionFromToken(info.SessionToken, p.Name())
	session.AccessToken = info.SessionToken.JWT
	if info.RefreshToken != nil {
		session.RefreshToken = info.RefreshToken.JWT
	}
	if info.User != nil {
		if info.User.Email != "" {
			session.Email = info.User.Email
		}
		if info.User.Name != "" {
			session.Name = info.User.Name
		}
	}
	return session, nil
}

func (p *DescopeProvider) Revoke(ctx context.Context, session *Session) error {
	if session.RefreshToken == "" {
		return nil
	}
	if err := p.api.logout(ctx, session.RefreshToken); err != nil {
		return errs.NewServiceUnreachableError("descope", fmt.Errorf("logout: %w", err))
	}
	return nil
}

func sessionFromToken(token *descope.Token, provider string) *Session {
	session := &Session{
		UserID:   token.ID,
		Provider: provider,
	}
	if token.Expiration > 0 {
		session.ExpiresAt = time.Unix(token.Expiration, 0)
	}
	if email, ok := token.Claims["email"].(string); ok {
		session.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		session.Name = name
	}
	return session
}
