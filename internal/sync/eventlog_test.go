package syncx_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-progress/internal/db"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

func TestEventRepo_PublishAndSince(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	repo := syncx.NewEventRepo(conn)
	if err := repo.Publish(ctx, "ResultRecorded", "r1", map[string]any{"overall": 93.0}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := repo.Publish(ctx, "ModelRetrained", "default", map[string]any{"samples": 4}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	evs, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(evs) != 2 || evs[0].Type != "ResultRecorded" || evs[1].Key != "default" || evs[0].SiteID != "local" {
		t.Fatalf("events = %+v", evs)
	}
	var data map[string]float64
	if err := json.Unmarshal([]byte(evs[0].DataJSON), &data); err != nil || data["overall"] != 93 {
		t.Fatalf("payload = %s (%v)", evs[0].DataJSON, err)
	}
	rest, _ := repo.Since(ctx, evs[0].Offset, 10)
	if len(rest) != 1 || rest[0].Type != "ModelRetrained" {
		t.Fatalf("since offset = %+v", rest)
	}
}

type countingSink struct {
	n   int
	err error
}

func (c *countingSink) Publish(context.Context, string, string, any) error {
	c.n++
	return c.err
}

func TestFanout(t *testing.T) {
	boom := errors.New("broker down")
	a, b := &countingSink{}, &countingSink{err: boom}
	err := syncx.Fanout{a, nil, b}.Publish(context.Background(), "ResultRecorded", "r1", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("want joined broker error, got %v", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Fatalf("every sink must be called: a=%d b=%d", a.n, b.n)
	}
}
