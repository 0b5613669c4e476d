package workspacestate

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
)

func TestBuildStateBackendFromDSNMemory(t *testing.T) {
	backend, err := BuildStateBackendFromDSN("memory://")
	if err != nil {
		t.Fatalf("build state backend failed: %v", err)
	}
	if backend == nil {
		t.Fatalf("expected non-nil memory state backend")
	}
	doc := NewDocument()
	doc.Workspaces["a"] = &Workspace{Path: "/a", Actions: []ActionEvent{}, CreatedAt: "t"}
	if err := backend.Save(context.Background(), doc); err != nil {
		t.Fatalf("memory backend save failed: %v", err)
	}
	snapshot, err := backend.Load(context.Background())
	if err != nil {
		t.Fatalf("memory backend load failed: %v", err)
	}
	if snapshot == nil || snapshot.Workspaces["a"] == nil || snapshot.Workspaces["a"].Path != "/a" {
		t.Fatalf("expected workspace /a, got %+v", snapshot)
	}
}

func TestBuildStateBackendFromDSNFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state-backend.json")
	backend, err := BuildStateBackendFromDSN("file://" + path)
	if err != nil {
		t.Fatalf("build file state backend failed: %v", err)
	}
	fileBackend, ok := backend.(*JSONFileStateBackend)
	if !ok {
		t.Fatalf("expected *JSONFileStateBackend, got %T", backend)
	}
	if fileBackend.Path != path {
		t.Fatalf("expected path %q, got %q", path, fileBackend.Path)
	}
	if err := backend.Save(context.Background(), NewDocument()); err != nil {
		t.Fatalf("file backend save failed: %v", err)
	}
	snapshot, err := backend.Load(context.Background())
	if err != nil {
		t.Fatalf("file backend load failed: %v", err)
	}
	if snapshot == nil || snapshot.Version != DocumentVersion {
		t.Fatalf("expected version %d, got %+v", DocumentVersion, snapshot)
	}
}

func TestBuildStateBackendFromDSNBarePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	backend, err := BuildStateBackendFromDSN(path)
	if err != nil {
		t.Fatalf("build state backend from bare path failed: %v", err)
	}
	if got := BackendKind(backend); got != "file" {
		t.Fatalf("expected file backend, got %s", got)
	}
}

func TestBuildStateBackendFromDSNSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	backend, err := BuildStateBackendFromDSN("sqlite://" + path)
	if err != nil {
		t.Fatalf("build sqlite state backend failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.(stateBackendCloser).Close() })
	if got := BackendKind(backend); got != "sqlite" {
		t.Fatalf("expected sqlite backend, got %s", got)
	}
}

func TestBuildStateBackendFromDSNUnsupported(t *testing.T) {
	backend, err := BuildStateBackendFromDSN("postgres://localhost/workspace?sslmode=disable")
	if err != nil {
		t.Fatalf("expected postgres state backend to be available, got %v", err)
	}
	if backend == nil {
		t.Fatalf("expected non-nil postgres state backend")
	}
	if _, err := BuildStateBackendFromDSN("mysql://localhost/workspace"); err == nil {
		t.Fatalf("expected error for mysql state backend")
	}
	if _, err := BuildStateBackendFromDSN("  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty DSN, got %v", err)
	}
}

func TestDSNPath(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "/var/lib/state.json", want: "/var/lib/state.json"},
		{raw: "file:///var/lib/state.json", want: "/var/lib/state.json"},
		{raw: "sqlite://relative/state.db", want: "relative/state.db"},
		{raw: "file:state.json", want: "state.json"},
	}
	for _, tc := range cases {
		parsed, err := url.Parse(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		got, err := dsnPath(parsed, tc.raw)
		if err != nil {
			t.Fatalf("dsnPath(%q) failed: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("dsnPath(%q): expected %q, got %q", tc.raw, tc.want, got)
		}
	}
	parsed, _ := url.Parse("file://")
	if _, err := dsnPath(parsed, "file://"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty file DSN, got %v", err)
	}
}
