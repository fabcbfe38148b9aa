package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"infiagentic.io/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = map[string]bool{
	"/v1/auth/register": true,
	"/v1/auth/login":    true,
	"/v1/auth/refresh":  true,
	"/healthz":          true,
	"/readyz":           true,
	"/metrics":          true,
	"/openapi.yaml":     true,
	"/v1/info":          true,
	"/":                 true,
}

// withAuth resolves the bearer token into an account for every protected
// route and stores both in the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		acct, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountInactive):
				writeError(w, r, http.StatusForbidden, "user account is inactive")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenExpired),
				errors.Is(err, auth.ErrTokenRevoked),
				errors.Is(err, auth.ErrWrongTokenType):
				writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithAccount(r.Context(), acct)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
