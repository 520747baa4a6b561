package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/projectdal-backend/errs"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signSupabase(t *testing.T, secret string, claims supabaseClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(exp time.Time) supabaseClaims {
	return supabaseClaims{
		Email:        "ayesha@example.com",
		UserMetadata: map[string]any{"full_name": "Ayesha Khan"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Audience:  jwt.ClaimStrings{supabaseAudience},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestSupabaseProvider_VerifyToken(t *testing.T) {
	p := NewSupabaseProvider("https://proj.supabase.co", "anon", testSecret)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	s, err := p.VerifyToken(context.Background(), signSupabase(t, testSecret, validClaims(exp)))
	require.NoError(t, err)
	assert.Equal(t, "user-123", s.UserID)
	assert.Equal(t, "ayesha@example.com", s.Email)
	assert.Equal(t, "Ayesha Khan", s.Name)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.Equal(t, "supabase", s.Provider)
}

func TestSupabaseProvider_VerifyTokenRejects(t *testing.T) {
	p := NewSupabaseProvider("https://proj.supabase.co", "anon", testSecret)
	future := time.Now().Add(time.Hour)

	wrongAudience := validClaims(future)
	wrongAudience.Audience = jwt.ClaimStrings{"service_role"}

	noSubject := validClaims(future)
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
		check func(error) bool
	}{
		{"bad signature", signSupabase(t, "another-secret-another-secret-another", validClaims(future)), errs.IsInvalidTokenError},
		{"expired", signSupabase(t, testSecret, validClaims(time.Now().Add(-time.Hour))), errs.IsExpiredTokenError},
		{"audience", signSupabase(t, testSecret, wrongAudience), errs.IsInvalidTokenError},
		{"no subject", signSupabase(t, testSecret, noSubject), errs.IsInvalidTokenError},
		{"garbage", "not.a.jwt", errs.IsInvalidTokenError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.VerifyToken(context.Background(), tt.token)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestSupabaseProvider_AuthorizeURL(t *testing.T) {
	p := NewSupabaseProvider("https://proj.supabase.co/", "anon", testSecret)

	req, err := p.AuthorizeURL(context.Background(), "github", "https://app.test/auth/callback")
	require.NoError(t, err)
	require.NotEmpty(t, req.Verifier)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "proj.supabase.co", u.Host)
	assert.Equal(t, "/auth/v1/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "github", q.Get("provider"))
	assert.Equal(t, "https://app.test/auth/callback", q.Get("redirect_to"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, req.Verifier, q.Get("code_challenge"))
}

func tokenServer(t *testing.T, accessToken, userID string, gotBody *map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if gotBody != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))
		}

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"refresh_token": "rt",
			"user":          map[string]any{"id": userID, "email": "sana@example.com", "user_metadata": map[string]any{"name": "Sana"}},
		}))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSupabaseProvider_Exchange(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims := validClaims(exp)
	claims.Email = ""
	claims.UserMetadata = nil
	accessToken := signSupabase(t, testSecret, claims)

	var gotBody map[string]string
	srv := tokenServer(t, accessToken, "user-123", &gotBody)

	p := NewSupabaseProvider(srv.URL, "anon", testSecret)
	s, err := p.Exchange(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"auth_code": "code-1", "code_verifier": "verifier-1"}, gotBody)
	assert.Equal(t, "user-123", s.UserID)
	assert.Equal(t, "sana@example.com", s.Email)
	assert.Equal(t, "Sana", s.Name)
	assert.Equal(t, accessToken, s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.Equal(t, "supabase", s.Provider)
}

func TestSupabaseProvider_ExchangeVerifiesToken(t *testing.T) {
	future := time.Now().Add(time.Hour)

	wrongAudience := validClaims(future)
	wrongAudience.Audience = jwt.ClaimStrings{"service_role"}

	tests := []struct {
		name        string
		accessToken string
		userID      string
	}{
		{"opaque token", "at", "user-123"},
		{"expired", signSupabase(t, testSecret, validClaims(time.Now().Add(-time.Minute))), "user-123"},
		{"wrong audience", signSupabase(t, testSecret, wrongAudience), "user-123"},
		{"wrong secret", signSupabase(t, "another-secret-that-is-also-32-characters", validClaims(future)), "user-123"},
		{"subject mismatch", signSupabase(t, testSecret, validClaims(future)), "user-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tokenServer(t, tt.accessToken, tt.userID, nil)
			p := NewSupabaseProvider(srv.URL, "anon", testSecret)

			s, err := p.Exchange(context.Background(), "code", "verifier")
			assert.Nil(t, s)
			assert.ErrorIs(t, err, errs.ErrOAuthExchange)
		})
	}
}

func TestSupabaseProvider_ExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewSupabaseProvider(srv.URL, "anon", testSecret)
	_, err := p.Exchange(context.Background(), "code", "verifier")
	assert.ErrorIs(t, err, errs.ErrOAuthExchange)
}

func TestSupabaseProvider_Revoke(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewSupabaseProvider(srv.URL, "anon", testSecret)
	require.NoError(t, p.Revoke(context.Background(), &Session{AccessToken: "at"}))
	assert.Equal(t, "Bearer at", auth)
}
