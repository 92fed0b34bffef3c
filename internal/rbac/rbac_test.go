package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"viewer", "report:view", true},
		{"viewer", "report:export", false},
		{"viewer", "result:create", false},
		{"trainer", "result:create", true},
		{"trainer", "participant:update", true},
		{"trainer", "report:export", true},
		{"trainer", "model:train", false},
		{"trainer", "users:create", false},
		{"admin", "model:train", true},
		{"admin", "users:create", true},
		{"nobody", "report:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.Any("viewer", "model:train", "forecast:view") || c.Any("viewer", "model:train", "users:create") {
		t.Fatal("Any mismatch")
	}
	custom := NewChecker(map[string][]string{"auditor": {"audit:*", "report:view"}})
	if !custom.Has("auditor", "audit:view") || custom.Has("auditor", "report:export") {
		t.Fatal("custom policy mismatch")
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("model:train")(ok)

	for role, want := range map[string]int{"admin": 204, "trainer": 403, "": 403} {
		req := httptest.NewRequest(http.MethodPost, "/models/retrain", nil)
		if role != "" {
			req = req.WithContext(WithRole(req.Context(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}
}

func TestGranted(t *testing.T) {
	if got := Granted("admin"); len(got) != len(Permissions) {
		t.Fatalf("admin granted %d of %d", len(got), len(Permissions))
	}
	got := Granted("viewer")
	for _, p := range got {
		if p == "result:create" || p == "report:export" {
			t.Fatalf("viewer granted %s", p)
		}
	}
	if len(got) != 5 {
		t.Fatalf("viewer granted %v", got)
	}
	if Granted("nobody") != nil {
		t.Fatal("unknown role must get nothing")
	}
}

func TestRequireAny_DeniedBody(t *testing.T) {
	h := RequireAny("report:export", "model:train")(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/participants/p1/report.pdf", nil)
	req = req.WithContext(WithRole(req.Context(), "viewer"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body struct {
		Error string   `json:"error"`
		Role  string   `json:"role"`
		Need  []string `json:"need"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusForbidden || body.Role != "viewer" || len(body.Need) != 2 {
		t.Fatalf("code=%d body=%+v", rec.Code, body)
	}
}
