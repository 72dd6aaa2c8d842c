package middlewares

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/mbolis/survey-wolf/httpx"
	"github.com/mbolis/survey-wolf/log"
)

// Authenticated rejects requests without a valid export token. It runs after
// jwtauth.Verify, which leaves the verification outcome in the context.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusUnauthorized, log.DebugLevel, "auth.verify", "%s", jwtauth.ErrorReason(err))
			return
		}
		if token == nil {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.token")
			return
		}
		if _, _, err := httpx.ExportClaims(claims); err != nil {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "auth.claims")
			return
		}

		next.ServeHTTP(w, r)
	})
}
