package rbac

import (
	"encoding/json"
	"net/http"
)

var defaultChecker = NewChecker(nil)

// denied answers 403 with the permissions that would have allowed the
// request.
func denied(w http.ResponseWriter, role string, need []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": "forbidden",
		"role":  role,
		"need":  need,
	})
}

// RequireAny lets the request through when the context role holds at
// least one of perms.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				denied(w, role, perms)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Require(perm string) func(http.Handler) http.Handler { return RequireAny(perm) }

// Granted lists the catalogued permissions role holds under the default
// policy.
func Granted(role string) []string {
	return defaultChecker.Granted(role)
}
