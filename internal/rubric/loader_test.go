package rubric

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltinDefault(t *testing.T) {
	r, err := NewFileLoader("").Load(context.Background(), "Software Engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.RoleFamily != DefaultRoleFamily {
		t.Fatalf("unexpected role family %q", r.RoleFamily)
	}
	if len(r.Dimensions) != 8 {
		t.Fatalf("expected 8 dimensions, got %d", len(r.Dimensions))
	}

	comm, ok := r.Lookup()["communication"]
	if !ok {
		t.Fatalf("expected communication dimension, got %v", r.Slugs())
	}
	if comm.Name != "Communication" {
		t.Fatalf("unexpected name %q", comm.Name)
	}
	if comm.ScoringGuide["5"] == "" {
		t.Fatalf("expected scoring guide to be decoded: %+v", comm.ScoringGuide)
	}
	if len(comm.GreenFlags) != 2 {
		t.Fatalf("expected green flags to be decoded: %+v", comm.GreenFlags)
	}
}

func TestLoadPrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `
name: Data Engineer
version: v3
dimensions:
  - slug: pipeline_design
    name: Pipeline Design
  - slug: data_quality
`
	if err := os.WriteFile(filepath.Join(dir, "data_engineer.yaml"), []byte(doc), 0o600); err != nil {
		t.Fatalf("write rubric: %v", err)
	}

	loader := NewFileLoader(dir)
	r, err := loader.Load(context.Background(), "data-engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.RoleFamily != "data_engineer" {
		t.Fatalf("expected role family derived from file name, got %q", r.RoleFamily)
	}
	if got := r.Lookup()["data_quality"].Name; got != "data_quality" {
		t.Fatalf("expected missing name to default to slug, got %q", got)
	}

	// The built-in rubric is still reachable through a directory loader.
	if _, err := loader.Load(context.Background(), DefaultRoleFamily); err != nil {
		t.Fatalf("expected built-in fallback, got %v", err)
	}
}

func TestLoadUnknownAndInvalid(t *testing.T) {
	loader := NewFileLoader(t.TempDir())

	for _, family := range []string{"astronaut", "", "../etc/passwd"} {
		_, err := loader.Load(context.Background(), family)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%q: expected ErrNotFound, got %v", family, err)
		}
	}
}

func TestDecodeRejectsDuplicates(t *testing.T) {
	doc := []byte(`
dimensions:
  - slug: communication
  - slug: COMMUNICATION
`)
	if _, err := Decode(doc); err == nil {
		t.Fatal("expected duplicate slug error")
	}

	if _, err := Decode([]byte("name: empty\n")); err == nil {
		t.Fatal("expected error for rubric without dimensions")
	}
}
