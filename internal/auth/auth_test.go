package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	a := NewAuthenticator("test-secret")

	t.Run("accepts issued token", func(t *testing.T) {
		token, err := a.Issue(Identity{UserID: "user-1", Email: "a@b.vn", Role: RoleAdmin}, time.Hour)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		identity, err := a.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if identity.UserID != "user-1" || !identity.IsAdmin() {
			t.Errorf("unexpected identity %+v", identity)
		}
	})

	t.Run("rejects empty token", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), "")
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		token, _ := NewAuthenticator("other").Issue(Identity{UserID: "user-1"}, time.Hour)

		_, err := a.Authenticate(context.Background(), token)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, _ := a.Issue(Identity{UserID: "user-1"}, -time.Minute)

		_, err := a.Authenticate(context.Background(), token)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects token without subject", func(t *testing.T) {
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("test-secret"))

		_, err := a.Authenticate(context.Background(), token)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestRequire(t *testing.T) {
	a := NewAuthenticator("test-secret")
	var seen Identity
	handler := Require(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("returns 401 without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("passes identity to next handler", func(t *testing.T) {
		token, _ := a.Issue(Identity{UserID: "user-9"}, time.Hour)
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
		if seen.UserID != "user-9" {
			t.Errorf("expected user-9, got %q", seen.UserID)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u", Role: "student"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}

	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u", Role: RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
