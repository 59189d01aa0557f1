package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServiceProxy_ForwardRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		path       string
		body       string
		headers    map[string]string
		wantPath   string
		wantQuery  string
		wantBody   string
		wantHeader map[string]string
		dropHeader []string
	}{
		{
			name:     "GET keeps path",
			method:   http.MethodGet,
			target:   "/api/products",
			path:     "/products",
			wantPath: "/products",
		},
		{
			name:     "POST keeps body and content type",
			method:   http.MethodPost,
			target:   "/api/orders",
			path:     "/orders",
			body:     `{"total":200000}`,
			headers:  map[string]string{"Content-Type": "application/json"},
			wantPath: "/orders",
			wantBody: `{"total":200000}`,
			wantHeader: map[string]string{
				"Content-Type": "application/json",
			},
		},
		{
			name:   "forwards bearer token, request id and query",
			method: http.MethodGet,
			target: "/api/products?category=course",
			path:   "/products",
			headers: map[string]string{
				"Authorization": "Bearer token",
				"X-Request-Id":  "req-1",
				"Cookie":        "session=1",
			},
			wantPath:  "/products",
			wantQuery: "category=course",
			wantHeader: map[string]string{
				"Authorization": "Bearer token",
				"X-Request-Id":  "req-1",
			},
			dropHeader: []string{"Cookie"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.method {
					t.Errorf("expected %s, got %s", tt.method, r.Method)
				}
				if r.URL.Path != tt.wantPath {
					t.Errorf("expected path %s, got %s", tt.wantPath, r.URL.Path)
				}
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("expected query %q, got %q", tt.wantQuery, r.URL.RawQuery)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != tt.wantBody {
					t.Errorf("expected body %q, got %q", tt.wantBody, body)
				}
				for name, want := range tt.wantHeader {
					if got := r.Header.Get(name); got != want {
						t.Errorf("expected %s %q, got %q", name, want, got)
					}
				}
				for _, name := range tt.dropHeader {
					if r.Header.Get(name) != "" {
						t.Errorf("%s must not be forwarded", name)
					}
				}
				w.WriteHeader(http.StatusAccepted)
			}))
			defer server.Close()

			var reqBody io.Reader
			if tt.body != "" {
				reqBody = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, reqBody)
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}

			resp, err := NewServiceProxy(server.URL, server.Client()).ForwardRequest(context.Background(), req, tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusAccepted {
				t.Errorf("expected upstream status 202, got %d", resp.StatusCode)
			}
		})
	}
}

func TestServiceProxy_ForwardRequestCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if _, err := NewServiceProxy(server.URL, server.Client()).ForwardRequest(ctx, req, "/orders"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
