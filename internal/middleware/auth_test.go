package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeValidator accepts one token.
type fakeValidator struct {
	token  string
	userID string
}

func (v *fakeValidator) ValidateSubject(token string) (string, error) {
	if token == v.token {
		return v.userID, nil
	}
	return "", errors.New("invalid token")
}

func authUserID(t *testing.T, authorization string) string {
	t.Helper()

	var captured string
	handler := Auth(&fakeValidator{token: "good-token", userID: "user-1"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetUserID(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestAuthValidToken(t *testing.T) {
	if got := authUserID(t, "Bearer good-token"); got != "user-1" {
		t.Errorf("user ID = %q, want user-1", got)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	if got := authUserID(t, ""); got != "" {
		t.Errorf("user ID = %q, want anonymous", got)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	if got := authUserID(t, "Bearer bad-token"); got != "" {
		t.Errorf("user ID = %q, want anonymous", got)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	if got := authUserID(t, "Basic dXNlcjpwYXNz"); got != "" {
		t.Errorf("user ID = %q, want anonymous", got)
	}
}
