package api

import (
	"context"

	"github.com/rpupo63/projectdal-backend/auth"
)

type keyType string

const authServiceKey keyType = "authService"

func ctxWithAuth(ctx context.Context, svc *auth.Service) context.Context {
	return context.WithValue(ctx, authServiceKey, svc)
}

// authFromCtx returns the request's session service. The session middleware
// always sets it, so a missing value is a wiring bug.
func authFromCtx(ctx context.Context) *auth.Service {
	svc, ok := ctx.Value(authServiceKey).(*auth.Service)
	if !ok {
		panic("api: request has no auth service; is the session middleware installed?")
	}
	return svc
}

// sessionFromCtx returns the signed-in user, or nil.
func sessionFromCtx(ctx context.Context) *auth.Session {
	s, _ := authFromCtx(ctx).GetSession(ctx)
	return s
}
