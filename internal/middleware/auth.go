package middleware

import (
	"net/http"
	"strings"
)

// TokenValidator validates a bearer token and returns the user ID it was
// issued to.
type TokenValidator interface {
	ValidateSubject(token string) (string, error)
}

// Auth is a middleware that resolves an optional Bearer token into a user
// ID on the request context. Requests without a token, or with one that
// fails validation, proceed anonymously; endpoints that need an identity
// enforce it themselves.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := validator.ValidateSubject(token)
			if err != nil || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := SetUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
