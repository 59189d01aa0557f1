package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Require rejects requests without a valid bearer token before they reach
// the wrapped handler.
func Require(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(r.Context(), BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				deny(w, http.StatusUnauthorized, "Bạn cần đăng nhập để thực hiện thao tác này")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin must run after Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := FromContext(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "Bạn cần đăng nhập để thực hiện thao tác này")
			return
		}
		if !identity.IsAdmin() {
			deny(w, http.StatusForbidden, "Bạn không có quyền truy cập")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}
