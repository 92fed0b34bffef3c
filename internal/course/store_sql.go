package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

// SQLStore keeps participants and results in the participants and
// test_results tables. Queries use $n placeholders, accepted by both
// sqlite and postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// category columns, serialised at this boundary only
var (
	categoryCols   []string
	resultColumns  string
	resultInsertPH string
)

func init() {
	for _, c := range scoring.Categories {
		k := c.Key()
		categoryCols = append(categoryCols, k+"_achieved", k+"_max", k+"_percent")
	}
	resultColumns = "seq,id,participant_id,test_date," + strings.Join(categoryCols, ",") + ",overall_percent,created_at"
	ph := make([]string, 0, len(categoryCols)+5)
	for i := 1; i <= len(categoryCols)+5; i++ {
		ph = append(ph, fmt.Sprintf("$%d", i))
	}
	resultInsertPH = strings.Join(ph, ",")
}

const participantColumns = "id,name,national_id,occupation,entry_date,exit_date,created_at"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertParticipant(ctx context.Context, ex execer, p Participant) error {
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	_, err := ex.ExecContext(ctx, `INSERT INTO participants (`+participantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.NationalID, p.Occupation, p.EntryDate.String(), p.ExitDate.String(), p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateNationalID
	}
	return err
}

func (s *SQLStore) CreateParticipant(ctx context.Context, p Participant) error {
	return insertParticipant(ctx, s.db, p)
}

func (s *SQLStore) CreateParticipants(ctx context.Context, ps []Participant) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, p := range ps {
			if err := insertParticipant(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) UpdateParticipant(ctx context.Context, p Participant) error {
	res, err := s.db.ExecContext(ctx, `UPDATE participants
		SET name=$1, national_id=$2, occupation=$3, entry_date=$4, exit_date=$5 WHERE id=$6`,
		p.Name, p.NationalID, p.Occupation, p.EntryDate.String(), p.ExitDate.String(), p.ID)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateNationalID
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(sc scanner) (Participant, error) {
	var p Participant
	var entry, exit string
	if err := sc.Scan(&p.ID, &p.Name, &p.NationalID, &p.Occupation, &entry, &exit, &p.CreatedAt); err != nil {
		return Participant{}, err
	}
	var err error
	if p.EntryDate, err = ParseDate(entry); err != nil {
		return Participant{}, fmt.Errorf("participant %s: entry_date: %w", p.ID, err)
	}
	if p.ExitDate, err = ParseDate(exit); err != nil {
		return Participant{}, fmt.Errorf("participant %s: exit_date: %w", p.ID, err)
	}
	return p, nil
}

func (s *SQLStore) GetParticipant(ctx context.Context, id string) (Participant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE id=$1`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, ErrNotFound
	}
	return p, err
}

func (s *SQLStore) ListParticipants(ctx context.Context) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func resultArgs(agg scoring.Aggregated) []any {
	args := make([]any, 0, len(categoryCols)+1)
	for _, c := range scoring.Categories {
		var cs scoring.CategoryScore
		for _, x := range agg.Categories {
			if x.Category == c {
				cs = x
			}
		}
		args = append(args, cs.Achieved, cs.Max, cs.Percent)
	}
	return append(args, agg.Overall)
}

func (s *SQLStore) AppendResult(ctx context.Context, participantID string, testDate Date, agg scoring.Aggregated) (string, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM participants WHERE id=$1`, participantID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	id := uuid.NewString()
	args := append([]any{id, participantID, testDate.String()}, resultArgs(agg)...)
	args = append(args, time.Now().Unix())
	cols := strings.TrimPrefix(resultColumns, "seq,")
	// one row carries all six categories, so the insert is atomic
	_, err := s.db.ExecContext(ctx, `INSERT INTO test_results (`+cols+`) VALUES (`+resultInsertPH+`)`, args...)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) UpdateResult(ctx context.Context, id string, testDate Date, agg scoring.Aggregated) error {
	sets := []string{"test_date=$1"}
	for i, col := range categoryCols {
		sets = append(sets, fmt.Sprintf("%s=$%d", col, i+2))
	}
	n := len(categoryCols) + 2
	sets = append(sets, fmt.Sprintf("overall_percent=$%d", n))
	args := append([]any{testDate.String()}, resultArgs(agg)...)
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE test_results SET `+strings.Join(sets, ", ")+fmt.Sprintf(` WHERE id=$%d`, n+1), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanResult(sc scanner) (TestResult, error) {
	var r TestResult
	var date string
	scores := make([]scoring.CategoryScore, len(scoring.Categories))
	dest := []any{&r.Seq, &r.ID, &r.ParticipantID, &date}
	for i, c := range scoring.Categories {
		scores[i].Category = c
		dest = append(dest, &scores[i].Achieved, &scores[i].Max, &scores[i].Percent)
	}
	dest = append(dest, &r.Overall, &r.CreatedAt)
	if err := sc.Scan(dest...); err != nil {
		return TestResult{}, err
	}
	var err error
	if r.TestDate, err = ParseDate(date); err != nil {
		return TestResult{}, fmt.Errorf("result %s: test_date: %w", r.ID, err)
	}
	r.Categories = scores
	for _, cs := range scores {
		if cs.Max <= 0 {
			r.ZeroMax = append(r.ZeroMax, cs.Category)
		}
	}
	return r, nil
}

func (s *SQLStore) queryResults(ctx context.Context, where string, args ...any) ([]TestResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM test_results `+where+` ORDER BY test_date ASC, seq ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TestResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (TestResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM test_results WHERE id=$1`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TestResult{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) History(ctx context.Context, participantID string) ([]TestResult, error) {
	return s.queryResults(ctx, `WHERE participant_id=$1`, participantID)
}

func (s *SQLStore) Latest(ctx context.Context, participantID string) (TestResult, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM test_results
		WHERE participant_id=$1 ORDER BY test_date DESC, seq DESC LIMIT 1`, participantID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TestResult{}, false, nil
	}
	if err != nil {
		return TestResult{}, false, err
	}
	return r, true, nil
}

func (s *SQLStore) AllResults(ctx context.Context) ([]TestResult, error) {
	return s.queryResults(ctx, ``)
}
