package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type resolverFunc func(token string) (Identity, error)

func (f resolverFunc) Resolve(token string) (Identity, error) { return f(token) }

func TestBearerAuth_Valid(t *testing.T) {
	want := Identity{UserID: uuid.New(), Name: "Alice"}
	resolver := resolverFunc(func(token string) (Identity, error) {
		if token == "good-token" {
			return want, nil
		}
		return Identity{}, ErrTokenInvalid
	})

	called := false
	handler := BearerAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got, ok := IdentityFromContext(r.Context())
		if !ok || got != want {
			t.Errorf("IdentityFromContext() = %+v, %v", got, ok)
		}
		if UserFromContext(r.Context()) != want.UserID {
			t.Errorf("UserFromContext() = %v", UserFromContext(r.Context()))
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	resolver := resolverFunc(func(string) (Identity, error) {
		return Identity{}, errors.New("nope")
	})

	tests := []struct {
		name      string
		header    string
		wantError string
	}{
		{name: "missing header", header: "", wantError: "authorization header required"},
		{name: "wrong scheme", header: "Basic abc", wantError: "invalid authorization format"},
		{name: "no token", header: "Bearer", wantError: "invalid authorization format"},
		{name: "blank token", header: "Bearer   ", wantError: "empty token"},
		{name: "resolver rejects", header: "Bearer abc", wantError: "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(rec.Body.String(), tt.wantError) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantError)
			}
		})
	}
}

func TestIdentityFromContext_Missing(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("expected no identity")
	}
	if UserFromContext(context.Background()) != uuid.Nil {
		t.Error("expected uuid.Nil")
	}
}
