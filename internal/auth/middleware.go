package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/keeleklass/keeleklass/internal/rbac"
)

type subscriptionKey struct{}

func WithSubscription(ctx context.Context, tier string) context.Context {
	return context.WithValue(ctx, subscriptionKey{}, tier)
}

func SubscriptionFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(subscriptionKey{}).(string); ok {
		return s
	}
	return ""
}

func attach(ctx context.Context, c *Claims) context.Context {
	ctx = rbac.WithSubject(ctx, c.Sub)
	ctx = rbac.WithRole(ctx, c.Role)
	return WithSubscription(ctx, c.Subscription)
}

// JWTMiddleware rejects requests without a valid bearer token and puts
// subject, role and subscription tier into the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), c)))
		})
	}
}

// OptionalJWT attaches identity when a valid token is present and lets
// the request through either way. The module list needs this: the demo
// tier must render for anonymous visitors.
func OptionalJWT(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if strings.HasPrefix(h, "Bearer ") {
				if c, err := a.Parse(strings.TrimPrefix(h, "Bearer ")); err == nil {
					r = r.WithContext(attach(r.Context(), c))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
