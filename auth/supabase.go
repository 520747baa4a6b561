package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/rpupo63/projectdal-backend/errs"
)

const supabaseAudience = "authenticated"

// SupabaseProvider talks to Supabase Auth (GoTrue). Access tokens are HS256
// JWTs signed with the project's JWT secret.
type SupabaseProvider struct {
	baseURL   string
	anonKey   string
	jwtSecret []byte
	client    *http.Client
}

func NewSupabaseProvider(projectURL, anonKey, jwtSecret string) *SupabaseProvider {
	return &SupabaseProvider{
		baseURL:   strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey:   anonKey,
		jwtSecret: []byte(jwtSecret),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *SupabaseProvider) Name() string {
	return "supabase"
}

type supabaseClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (c supabaseClaims) name() string {
	for _, key := range []string{"full_name", "name", "user_name"} {
		if v, ok := c.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (p *SupabaseProvider) VerifyToken(ctx context.Context, accessToken string) (*Session, error) {
	claims := &supabaseClaims{}
	tok, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.jwtSecret, nil
	}, jwt.WithAudience(supabaseAudience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.NewExpiredTokenError()
		}
		return nil, errs.NewInvalidTokenError(err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errs.NewInvalidTokenError(errors.New("token has no subject"))
	}

	session := &Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Name:        claims.name(),
		AccessToken: accessToken,
		Provider:    p.Name(),
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// AuthorizeURL builds the GoTrue authorize URL for a PKCE sign-in.
func (p *SupabaseProvider) AuthorizeURL(ctx context.Context, oauthProvider, redirectURL string) (*AuthRequest, error) {
	cfg := oauth2.Config{
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.baseURL + "/authorize",
			TokenURL: p.baseURL + "/token?grant_type=pkce",
		},
	}
	verifier := oauth2.GenerateVerifier()
	url := cfg.AuthCodeURL("",
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", oauthProvider),
		oauth2.SetAuthURLParam("redirect_to", redirectURL),
	)
	return &AuthRequest{URL: url, Verifier: verifier, Provider: oauthProvider}, nil
}

type supabaseTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	} `json:"user"`
}

// Exchange trades an auth code and its PKCE verifier for a session. The
// returned access token is held to the same checks as VerifyToken.
func (p *SupabaseProvider) Exchange(ctx context.Context, code, verifier string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/token?grant_type=pkce", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errs.NewOAuthExchangeError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errs.NewOAuthExchangeError(fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var out supabaseTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.NewOAuthExchangeError(fmt.Errorf("decode token response: %w", err))
	}
	if out.AccessToken == "" {
		return nil, errs.NewOAuthExchangeError(errors.New("token response without session"))
	}

	session, err := p.VerifyToken(ctx, out.AccessToken)
	if err != nil {
		return nil, errs.NewOAuthExchangeError(err)
	}
	if out.User.ID != "" && out.User.ID != session.UserID {
		return nil, errs.NewOAuthExchangeError(fmt.Errorf("token subject %q does not match user %q", session.UserID, out.User.ID))
	}
	if session.Email == "" {
		session.Email = out.User.Email
	}
	if session.Name == "" {
		session.Name = supabaseClaims{UserMetadata: out.User.UserMetadata}.name()
	}
	session.RefreshToken = out.RefreshToken
	return session, nil
}

// Revoke signs the session out everywhere Supabase knows about it.
func (p *SupabaseProvider) Revoke(ctx context.Context, session *Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("create logout request: %w", err)
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return errs.NewServiceUnreachableError("supabase auth", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errs.NewServiceUnreachableError("supabase auth", fmt.Errorf("logout returned status %d", resp.StatusCode))
	}
	return nil
}
