package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/boofmebel/auth/pkg/slogx"
)

type ctxKey string

const ctxKeySubject ctxKey = "subject"

// SubjectFromContext returns the subject stored by AuthnMiddleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeySubject).(string)
	return s, ok && s != ""
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthenticateFunc resolves a bearer token to a subject.
type AuthenticateFunc func(ctx context.Context, token string) (string, error)

// AuthnMiddleware rejects requests without a valid bearer token and stores
// the authenticated subject in the request context.
func AuthnMiddleware(authenticate AuthenticateFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				WriteBearerError(w, "missing bearer token")
				return
			}

			subject, err := authenticate(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("bearer authentication failed", "err", err)
				WriteBearerError(w, "invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ctxKeySubject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteBearerError answers 401 with an RFC 6750 challenge.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
