package auth

import (
	"context"
	"slices"
)

type ctxKey struct{}

// Claims is the verified identity attached to a request.
type Claims struct {
	Subject string
	Roles   []string
	JWTID   string
}

func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether c holds at least one of roles.
func (c Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) Claims {
	c, _ := ctx.Value(ctxKey{}).(Claims)
	return c
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}
