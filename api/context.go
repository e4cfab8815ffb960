package api

import (
	"context"

	"github.com/rpupo63/digital-mix-backend/auth"
)

type keyType string

const userKey keyType = "user"

// ctxWithUser adds the signed-in user to the context
func ctxWithUser(ctx context.Context, user *auth.AuthUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ctxGetUser retrieves the signed-in user from the context
func ctxGetUser(ctx context.Context) (*auth.AuthUser, bool) {
	user, ok := ctx.Value(userKey).(*auth.AuthUser)
	return user, ok && user != nil
}
