package auth

import (
	"context"

	"github.com/micasa-app/micasa/internal/household"
)

type contextKey struct{}

// Principal is the authenticated actor resolved from a request's or
// connection's bearer credential. It is built fresh per request and
// never mutated.
type Principal struct {
	UserID      int64
	Username    string
	DisplayName string
	PartnerID   *int64
}

// HouseholdKey returns the tenant key for the principal's household.
func (p Principal) HouseholdKey() string {
	return household.Key(p.UserID, p.PartnerID)
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
