package msgcat

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c := MustDefault()
	got, err := c.Render("error.illegal_move", map[string]any{"X": 0, "Y": 0, "Player": "black"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "(0, 0) is not a legal move for black" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderMissingKeyAndField(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("error.nope", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key err = %v", err)
	}
	if _, err := c.Render("error.not_found", map[string]any{}); err == nil {
		t.Fatalf("missing field rendered without error")
	}
	if got := c.Text("error.nope", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "error:\n  internal: \"something broke\"\n"
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("error.internal", nil, ""); got != "something broke" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("error.seat_taken", map[string]any{"Player": "white"}, ""); got != "the white seat is already taken" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestOverrideDuplicateKeysRejected(t *testing.T) {
	dir := t.TempDir()
	body := "error:\n  internal: \"x\"\n"
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate keys accepted")
	}
}
