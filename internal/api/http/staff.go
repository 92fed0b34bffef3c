package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	dbx "github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

const minPasswordLen = 8

var (
	errNoSuchUser  = errors.New("user not found")
	errWrongPass   = errors.New("incorrect old password")
	errLastAdmin   = errors.New("cannot demote the last admin")
	errWeakPass    = errors.New("new password must have at least 8 characters")
	errUnknownRole = errors.New("invalid role")
)

func staffStatus(err error) int {
	switch {
	case errors.Is(err, errNoSuchUser):
		return http.StatusNotFound
	case errors.Is(err, errWrongPass):
		return http.StatusForbidden
	case errors.Is(err, errLastAdmin), errors.Is(err, errWeakPass), errors.Is(err, errUnknownRole):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// setRole changes the role of the user matched by id or username. The
// last admin cannot be demoted.
func setRole(ctx context.Context, db *sql.DB, target, role string) error {
	if !rbac.ValidRole(role) {
		return errUnknownRole
	}
	return dbx.WithTx(ctx, db, func(tx *sql.Tx) error {
		var id, cur string
		err := tx.QueryRowContext(ctx,
			`SELECT id, role FROM users WHERE id=$1 OR username=$1`, target).Scan(&id, &cur)
		if errors.Is(err, sql.ErrNoRows) {
			return errNoSuchUser
		}
		if err != nil {
			return err
		}
		if cur == "admin" && role != "admin" {
			var admins int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role='admin'`).Scan(&admins); err != nil {
				return err
			}
			if admins <= 1 {
				return errLastAdmin
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id)
		return err
	})
}

func setPassword(ctx context.Context, db *sql.DB, userID, oldPass, newPass string) error {
	if len(newPass) < minPasswordLen {
		return errWeakPass
	}
	var stored string
	err := db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoSuchUser
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPass)) != nil {
		return errWrongPass
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID)
	return err
}

// PATCH /users/{userID}  {"role": "trainer"}
// userID may also be a username.
func UpdateUserRoleHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role := strings.ToLower(strings.TrimSpace(req.Role))
		if err := setRole(r.Context(), db, chi.URLParam(r, "userID"), role); err != nil {
			http.Error(w, err.Error(), staffStatus(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /users/change-password  {"old_password": "...", "new_password": "..."}
func ChangePasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			Old string `json:"old_password"`
			New string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := setPassword(r.Context(), db, userID, req.Old, req.New); err != nil {
			http.Error(w, err.Error(), staffStatus(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
