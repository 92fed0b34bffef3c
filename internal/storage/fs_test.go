package storage

import (
	"errors"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"testing"
)

func TestFSStore_PutGetList(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"reports/p1/2026-10-17.pdf", "reports/p1/2026-10-17.xlsx", "models/default.json"} {
		got, err := s.Put(k, strings.NewReader("data:"+k))
		if err != nil || got != k {
			t.Fatalf("put %s: %q %v", k, got, err)
		}
	}
	// overwrite replaces the content
	if _, err := s.Put("models/default.json", strings.NewReader("v2")); err != nil {
		t.Fatal(err)
	}
	rc, err := s.Get("models/default.json")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "v2" {
		t.Fatalf("content = %q", b)
	}

	keys, err := s.List("reports/p1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"reports/p1/2026-10-17.pdf", "reports/p1/2026-10-17.xlsx"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("list = %v", keys)
	}
	if keys, err := s.List("reports/nobody"); err != nil || len(keys) != 0 {
		t.Fatalf("empty list = %v, %v", keys, err)
	}
}

func TestFSStore_Errors(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	if _, err := s.Get("models/missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing key: %v", err)
	}
	for _, k := range []string{"", "/etc/passwd", "../escape", "a/../../b"} {
		if _, err := s.Put(k, strings.NewReader("x")); !errors.Is(err, ErrBadKey) {
			t.Fatalf("put %q: %v", k, err)
		}
	}
}
