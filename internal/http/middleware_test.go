package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/workplace-reservations/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
}

func (f fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	return f.principal, f.err
}

func TestRequireSession_RejectsMissingOrInvalidTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		cookieToken    *http.Cookie
		headerToken    string
		validatorErr   error
		expectedStatus int
	}{
		{
			name:           "missing credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown token",
			cookieToken:    &http.Cookie{Name: "session_token", Value: "unknown"},
			validatorErr:   application.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired session",
			headerToken:    "Bearer expired-token",
			validatorErr:   application.ErrSessionExpired,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "revoked session",
			cookieToken:    &http.Cookie{Name: "session_token", Value: "revoked-token"},
			validatorErr:   application.ErrSessionRevoked,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "validator failure",
			headerToken:    "Bearer token",
			validatorErr:   errors.New("storage unavailable"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.cookieToken != nil {
				req.AddCookie(tc.cookieToken)
			}
			if tc.headerToken != "" {
				req.Header.Set("Authorization", tc.headerToken)
			}

			recorder := httptest.NewRecorder()

			handler := RequireSession(fakeSessionValidator{err: tc.validatorErr}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("next handler should not be called when authentication fails")
			}))
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tc.expectedStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestRequireSession_AttachesPrincipal(t *testing.T) {
	t.Parallel()

	principal := application.Principal{UserID: "employee-123", IsAdmin: true}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
	recorder := httptest.NewRecorder()

	var captured application.Principal
	middleware := RequireSession(fakeSessionValidator{principal: principal}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("expected principal in request context")
		}
		captured = p
		w.WriteHeader(http.StatusOK)
	}))
	middleware.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if captured != principal {
		t.Fatalf("expected principal %+v, got %+v", principal, captured)
	}
}

func TestRequireSession_AcceptsBearerHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	recorder := httptest.NewRecorder()

	called := false
	handler := RequireSession(fakeSessionValidator{principal: application.Principal{UserID: "user-1"}}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(recorder, req)

	if !called {
		t.Fatal("expected next handler to run")
	}
}

func TestRequestLogger_PropagatesContextLogger(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)

	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request scoped logger in context")
		}
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
