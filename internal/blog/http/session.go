package http

import (
	"context"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
)

type currentUserKey struct{}

func withCurrentUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

// currentUser returns the signed-in user resolved by the session middleware.
func currentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(currentUserKey{}).(domain.User)
	return u, ok
}
