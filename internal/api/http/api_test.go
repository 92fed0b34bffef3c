package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/mindengage-progress/internal/api/http"
	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/report"
	"github.com/mind-engage/mindengage-progress/internal/storage"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

func fixedNow() time.Time { return time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC) }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	store := course.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh)
	courses := course.NewService(store, events, fixedNow)
	models := &forecast.Provider{
		Name:    "default",
		Trainer: forecast.LinearTrainer{Now: fixedNow},
		Load:    forecast.LoadLinearModel,
		Blobs:   bs,
		Results: store,
		Events:  events,
	}
	engine := forecast.NewEngine(store)

	r := chi.NewRouter()
	api.Mount(r, api.Deps{
		DB:      dbh,
		Auth:    auth.NewAuthService("test-secret"),
		Admin:   auth.Admin{Username: "admin", PassHash: string(hash)},
		Courses: courses,
		Engine:  engine,
		Models:  models,
		Reports: report.NewService(courses, engine, models, bs),
		Blobs:   bs,
		Events:  events,
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, user, pass string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": user, "password": pass})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", user, rec.Code, rec.Body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.AccessToken == "" {
		t.Fatalf("login response: %s", rec.Body)
	}
	return out.AccessToken
}

var anna = map[string]string{
	"name":        "Anna Berger",
	"national_id": "1234150385",
	"occupation":  "ELEKTRIKERIN",
	"entry_date":  "2026-09-01",
	"exit_date":   "2026-12-18",
}

func scoreSheet(date string, zahlenraumMax int) map[string]any {
	return map[string]any{
		"test_date": date,
		"scores": map[string]map[string]int{
			"Textaufgaben":     {"achieved": 15, "max": 20},
			"Raumvorstellung":  {"achieved": 18, "max": 20},
			"Gleichungen":      {"achieved": 20, "max": 20},
			"Brüche":           {"achieved": 10, "max": 10},
			"Grundrechenarten": {"achieved": 25, "max": 25},
			"zahlenraum":       {"achieved": 5, "max": zahlenraumMax},
		},
	}
}

func createParticipant(t *testing.T, h http.Handler, token string, body any) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/participants", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create participant: %d %s", rec.Code, rec.Body)
	}
	var p struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Age    int    `json:"age"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.ID == "" || p.Status != "active" || p.Age != 41 {
		t.Fatalf("participant = %s", rec.Body)
	}
	return p.ID
}

func TestAPI_LoginRequired(t *testing.T) {
	h := newTestRouter(t)
	if rec := do(t, h, http.MethodGet, "/participants", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestAPI_ResultsForecastAndReports(t *testing.T) {
	h := newTestRouter(t)
	tok := login(t, h, "admin", "admin-secret")
	pid := createParticipant(t, h, tok, anna)

	rec := do(t, h, http.MethodPost, "/participants/"+pid+"/results", tok, scoreSheet("2026-10-10", 5))
	if rec.Code != http.StatusCreated {
		t.Fatalf("record: %d %s", rec.Code, rec.Body)
	}
	var res struct {
		ID      string  `json:"id"`
		Overall float64 `json:"overall"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Overall != 93 {
		t.Fatalf("overall = %v, want 93", res.Overall)
	}

	if rec := do(t, h, http.MethodPost, "/participants/"+pid+"/results", tok, scoreSheet("2026-10-11", 25)); rec.Code != http.StatusBadRequest {
		t.Fatalf("sum 120: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPut, "/results/"+res.ID, tok, scoreSheet("2026-10-12", 5)); rec.Code != http.StatusOK {
		t.Fatalf("update result: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/participants/"+pid+"/forecast", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forecast: %d %s", rec.Code, rec.Body)
	}
	var fc struct {
		Points []forecast.Point `json:"points"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &fc)
	if len(fc.Points) != forecast.Horizon+1 || fc.Points[0].Day != 0 || fc.Points[forecast.Horizon].Day != forecast.Horizon {
		t.Fatalf("forecast points = %d", len(fc.Points))
	}

	rec = do(t, h, http.MethodGet, "/participants/"+pid+"/report", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: %d %s", rec.Code, rec.Body)
	}
	var b struct {
		RecentMean  float64 `json:"recent_mean"`
		RecentCount int     `json:"recent_count"`
		Series      []any   `json:"series"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &b)
	if b.RecentCount != 1 || b.RecentMean != 93 || len(b.Series) != 1+forecast.Horizon+1 {
		t.Fatalf("bundle = %+v", b)
	}

	rec = do(t, h, http.MethodGet, "/participants/"+pid+"/report.pdf", tok, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" || !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatalf("pdf: %d %s", rec.Code, rec.Header())
	}

	rec = do(t, h, http.MethodPost, "/participants/"+pid+"/report/archive", tok, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("archive: %d %s", rec.Code, rec.Body)
	}
	var arch struct {
		Keys []string `json:"keys"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &arch)
	if len(arch.Keys) != 2 {
		t.Fatalf("archive keys = %v", arch.Keys)
	}
	rec = do(t, h, http.MethodGet, "/participants/"+pid+"/report/archive", tok, nil)
	var listed struct {
		Keys []string `json:"keys"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &listed)
	if rec.Code != http.StatusOK || len(listed.Keys) != 2 || listed.Keys[0] != arch.Keys[0] {
		t.Fatalf("archive list: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/archive/"+arch.Keys[1], tok, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "spreadsheetml") {
		t.Fatalf("archived xlsx: %d %s", rec.Code, rec.Header())
	}
	if rec := do(t, h, http.MethodGet, "/archive/../secret", tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("traversal: %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/models/retrain", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("retrain: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/audit?q=Result", tok, nil)
	var evs []syncx.Event
	_ = json.Unmarshal(rec.Body.Bytes(), &evs)
	if rec.Code != http.StatusOK || len(evs) != 2 || evs[0].Type != "ResultUpdated" || evs[1].Type != "ResultRecorded" {
		t.Fatalf("audit: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/participants/"+pid+"/export", tok, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), "teilnehmer_"+pid) {
		t.Fatalf("export: %d %s", rec.Code, rec.Header())
	}
}

func TestAPI_ErrorMapping(t *testing.T) {
	h := newTestRouter(t)
	tok := login(t, h, "admin", "admin-secret")

	if rec := do(t, h, http.MethodGet, "/participants/nope", tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown participant: %d", rec.Code)
	}
	pid := createParticipant(t, h, tok, anna)
	if rec := do(t, h, http.MethodPost, "/participants", tok, anna); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body)
	}
	bad := map[string]string{}
	for k, v := range anna {
		bad[k] = v
	}
	bad["national_id"] = "12345"
	if rec := do(t, h, http.MethodPost, "/participants", tok, bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad national id: %d", rec.Code)
	}
	// history is checked before any model is trained or loaded
	if rec := do(t, h, http.MethodGet, "/participants/"+pid+"/forecast", tok, nil); rec.Code != http.StatusUnprocessableEntity ||
		!strings.Contains(rec.Body.String(), forecast.ErrNoHistory.Error()) {
		t.Fatalf("forecast without results: %d %s", rec.Code, rec.Body)
	}

	// the same category under two spellings
	sheet := scoreSheet("2026-10-10", 5)
	sheet["scores"].(map[string]map[string]int)["Brueche"] = map[string]int{"achieved": 0, "max": 10}
	rec := do(t, h, http.MethodPost, "/participants/"+pid+"/results", tok, sheet)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "more than once") {
		t.Fatalf("duplicate category: %d %s", rec.Code, rec.Body)
	}
	sheet = scoreSheet("2026-10-10", 5)
	sheet["scores"].(map[string]map[string]int)["textaufgaben"] = map[string]int{"achieved": 1, "max": 20}
	if rec := do(t, h, http.MethodPost, "/participants/"+pid+"/results", tok, sheet); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate category by case: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodGet, "/participants/"+pid+"/report", tok, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("report without results: %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_ImportAndInactiveFilter(t *testing.T) {
	h := newTestRouter(t)
	tok := login(t, h, "admin", "admin-secret")

	csv := "name,national_id,occupation,entry_date,exit_date\n" +
		"Anna Berger,1234150385,ELEKTRIKERIN,2026-09-01,2026-12-18\n" +
		"Ben Huber,5678010190,MAURER,2026-06-01,2026-10-17\n"
	rec := do(t, h, http.MethodPost, "/participants/import", tok, csv)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", rec.Code, rec.Body)
	}

	var list []map[string]any
	rec = do(t, h, http.MethodGet, "/participants", tok, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0]["name"] != "Anna Berger" {
		t.Fatalf("active list = %v", list)
	}
	rec = do(t, h, http.MethodGet, "/participants?include_inactive=1", tok, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Fatalf("full list = %v", list)
	}

	// a duplicate in the batch rejects the whole batch
	again := "name,national_id,occupation,entry_date,exit_date\n" +
		"Cem Yilmaz,1111020295,KOCH,2026-09-01,2026-12-18\n" +
		"Anna Berger,1234150385,ELEKTRIKERIN,2026-09-01,2026-12-18\n"
	if rec := do(t, h, http.MethodPost, "/participants/import", tok, again); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate import: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/participants?include_inactive=true", tok, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Fatalf("batch was partially applied: %v", list)
	}
}

func TestAPI_ViewerRole(t *testing.T) {
	h := newTestRouter(t)
	admin := login(t, h, "admin", "admin-secret")
	pid := createParticipant(t, h, admin, anna)

	rec := do(t, h, http.MethodPost, "/users", admin, map[string]string{"username": "vera", "password": "viewer-pass", "role": "viewer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body)
	}
	viewer := login(t, h, "vera", "viewer-pass")

	if rec := do(t, h, http.MethodGet, "/participants/"+pid, viewer, nil); rec.Code != http.StatusOK {
		t.Fatalf("viewer read: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/participants/"+pid+"/results", viewer, scoreSheet("2026-10-10", 5)); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer write: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/models/retrain", viewer, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer retrain: %d", rec.Code)
	}

	// promotion takes effect without a new token
	if rec := do(t, h, http.MethodPatch, "/users/vera", admin, map[string]string{"role": "trainer"}); rec.Code != http.StatusNoContent {
		t.Fatalf("promote: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/participants/"+pid+"/results", viewer, scoreSheet("2026-10-10", 5)); rec.Code != http.StatusCreated {
		t.Fatalf("trainer write: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/users/change-password", viewer, map[string]string{"old_password": "viewer-pass", "new_password": "trainer-pass"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("change password: %d %s", rec.Code, rec.Body)
	}
	login(t, h, "vera", "trainer-pass")
}

func TestAPI_UsersImport(t *testing.T) {
	h := newTestRouter(t)
	admin := login(t, h, "admin", "admin-secret")

	csvBody := "username,role,password\nada, admin ,ada-secret-1\ntom,TRAINER,tom-secret-1\n"
	rec := do(t, h, http.MethodPost, "/users", admin, csvBody)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"inserted":2`) {
		t.Fatalf("csv import: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/users?role=trainer", admin, nil)
	var users []struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil || len(users) != 1 || users[0].Username != "tom" {
		t.Fatalf("trainers: %s", rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("listing leaks passwords: %s", rec.Body)
	}

	if rec := do(t, h, http.MethodPatch, "/users/ada", admin, map[string]string{"role": "viewer"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("demote last admin: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPatch, "/users/nobody", admin, map[string]string{"role": "viewer"}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", rec.Code)
	}
	for _, body := range []any{
		"username,password\nx,long-enough\n",
		map[string]string{"username": "short", "password": "abc"},
		map[string]string{"username": "nopass", "role": "viewer"},
		map[string]string{"username": "boss", "password": "long-enough", "role": "owner"},
	} {
		if rec := do(t, h, http.MethodPost, "/users", admin, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: %d %s", body, rec.Code, rec.Body)
		}
	}

	// updating tom keeps his password
	if rec := do(t, h, http.MethodPost, "/users", admin, map[string]string{"username": "tom", "role": "viewer"}); rec.Code != http.StatusOK {
		t.Fatalf("update tom: %d %s", rec.Code, rec.Body)
	}
	login(t, h, "tom", "tom-secret-1")
}
