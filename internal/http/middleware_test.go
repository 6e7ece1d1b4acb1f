package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/reservation-system/internal/application"
)

type sessionValidatorStub struct {
	principal application.Principal
	err       error
}

func (s sessionValidatorStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func TestRequireSession(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("principal missing from context")
		}
		if principal.UserID == "" {
			t.Error("empty principal user id")
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing token", func(t *testing.T) {
		handler := RequireSession(sessionValidatorStub{}, nil)(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		handler := RequireSession(sessionValidatorStub{err: application.ErrSessionExpired}, nil)(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bearer token passes principal through", func(t *testing.T) {
		validator := sessionValidatorStub{principal: application.Principal{UserID: "user-1", Role: application.RoleMember}}
		handler := RequireSession(validator, nil)(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("cookie token is accepted", func(t *testing.T) {
		validator := sessionValidatorStub{principal: application.Principal{UserID: "user-1", Role: application.RoleMember}}
		handler := RequireSession(validator, nil)(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "good-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}
