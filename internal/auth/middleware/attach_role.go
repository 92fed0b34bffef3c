package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

// storedRole looks the subject up by id, or by username for the
// configured admin. found is false when no row (or no users table) exists.
func storedRole(ctx context.Context, db *sql.DB, sub string) (role string, found bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1 OR username=$1`, sub).Scan(&role)
	switch {
	case err == nil:
		return role, role != "", nil
	case errors.Is(err, sql.ErrNoRows), usersTableMissing(err):
		return "", false, nil
	}
	return "", false, err
}

// AttachRoleFromDB replaces the token role with the stored one, so a
// role change applies to tokens already issued. Subjects without a row
// keep their token role only if it is admin or allowClaimFallback is set
// (offline mode).
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claimRole := rbac.RoleFromContext(ctx)

			role, found, err := storedRole(ctx, db, SubjectFromContext(ctx))
			switch {
			case found:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case err == nil && claimRole == "admin",
				allowClaimFallback && claimRole != "":
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}

func usersTableMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table: users") ||
		strings.Contains(msg, `relation "users" does not exist`)
}
