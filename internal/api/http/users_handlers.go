package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dbx "github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

var errBadUser = errors.New("invalid user")

// userRow is one staff account as imported or listed. Password is only
// ever read, never returned.
type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

func (u *userRow) normalize() error {
	u.Username = strings.TrimSpace(u.Username)
	u.Role = strings.ToLower(strings.TrimSpace(u.Role))
	if u.Username == "" {
		return fmt.Errorf("%w: username required", errBadUser)
	}
	if u.Role == "" {
		u.Role = "viewer"
	}
	if !rbac.ValidRole(u.Role) {
		return fmt.Errorf("%w: invalid role %s", errBadUser, u.Role)
	}
	return nil
}

func decodeUsers(body []byte, isJSON bool) ([]userRow, error) {
	if !isJSON {
		return parseUsersCSV(bytes.NewReader(body))
	}
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		var one userRow
		err := json.Unmarshal(body, &one)
		return []userRow{one}, err
	}
	var many []userRow
	err := json.Unmarshal(body, &many)
	return many, err
}

// POST /users  (JSON object or array, CSV body, or multipart file=)
// CSV columns: username, role, optional id and password.
// Existing users (by id or username) are updated, new ones inserted.
// The batch is applied in one transaction.
func UpsertUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, isJSON, err := readUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows, err := decodeUsers(body, isJSON)
		if err != nil {
			http.Error(w, "bad upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		ins, upd, err := upsertUsers(r.Context(), db, rows)
		switch {
		case errors.Is(err, errBadUser):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case err != nil:
			respondError(w, r, err)
		default:
			respondJSON(w, http.StatusOK, map[string]any{"inserted": ins, "updated": upd})
		}
	}
}

// GET /users?role=trainer
func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, args := `SELECT id, username, role FROM users ORDER BY username`, []any(nil)
		if role := r.URL.Query().Get("role"); role != "" {
			q, args = `SELECT id, username, role FROM users WHERE role=$1 ORDER BY username`, []any{role}
		}
		rows, err := db.QueryContext(r.Context(), q, args...)
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				respondError(w, r, err)
				return
			}
			out = append(out, u)
		}
		if err := rows.Err(); err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}

func parseUsersCSV(r io.Reader) ([]userRow, error) {
	recs, err := readCSV(r, "username", "role")
	if err != nil {
		return nil, err
	}
	rows := make([]userRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, userRow{
			ID:       rec.get("id"),
			Username: rec.get("username"),
			Role:     rec.get("role"),
			Password: rec.cols["password"],
		})
	}
	return rows, nil
}

func upsertUsers(ctx context.Context, db *sql.DB, rows []userRow) (inserted, updated int, err error) {
	now := time.Now().Unix()
	err = dbx.WithTx(ctx, db, func(tx *sql.Tx) error {
		for i := range rows {
			created, err := upsertUser(ctx, tx, &rows[i], now)
			if err != nil {
				return err
			}
			if created {
				inserted++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// upsertUser updates the account matched by id or username, or inserts
// it. New accounts need a password; updates keep the old hash when none
// is given.
func upsertUser(ctx context.Context, tx *sql.Tx, u *userRow, now int64) (created bool, err error) {
	if err := u.normalize(); err != nil {
		return false, err
	}
	var hash string
	if u.Password != "" {
		if len(u.Password) < minPasswordLen {
			return false, fmt.Errorf("%w: password of %s too short", errBadUser, u.Username)
		}
		b, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return false, err
		}
		hash = string(b)
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 OR username=$2`, u.ID, u.Username).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if hash == "" {
			return false, fmt.Errorf("%w: password required for new user %s", errBadUser, u.Username)
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
			u.ID, u.Username, hash, u.Role, now)
		return err == nil, err
	case err != nil:
		return false, err
	}

	u.ID = existing
	if hash != "" {
		_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`,
			u.Username, u.Role, hash, u.ID)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2 WHERE id=$3`,
			u.Username, u.Role, u.ID)
	}
	return false, err
}
