package localstorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"voicebatch/internal/core/domain"
)

func TestWrite_NamesOutputWithPrefix(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(true)

	path, err := store.Write(context.Background(), dir, "speech.wav", []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "converted_speech.wav" {
		t.Fatalf("unexpected output name: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != "audio" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestWrite_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	store := NewStore(true)

	if _, err := store.Write(context.Background(), dir, "a.mp3", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "converted_a.mp3")); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestWrite_OverwriteReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(true)

	first, err := store.Write(context.Background(), dir, "a.mp3", []byte("one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.Write(context.Background(), dir, "a.mp3", []byte("two"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected same path, got %s and %s", first, second)
	}

	data, _ := os.ReadFile(second)
	if string(data) != "two" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestWrite_NoOverwriteSuffixesCollisions(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(false)

	paths := make([]string, 3)
	for i := range paths {
		path, err := store.Write(context.Background(), dir, "a.mp3", []byte("x"))
		if err != nil {
			t.Fatalf("write %d: unexpected error: %v", i, err)
		}
		paths[i] = filepath.Base(path)
	}

	want := []string{"converted_a.mp3", "converted_a (1).mp3", "converted_a (2).mp3"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("write %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestWrite_RejectsEmptyTargets(t *testing.T) {
	store := NewStore(true)

	_, err := store.Write(context.Background(), "", "a.mp3", []byte("x"))
	if domain.KindOf(err) != domain.ErrorKindIO {
		t.Fatalf("expected io kind, got %v", err)
	}

	_, err = store.Write(context.Background(), t.TempDir(), "  ", []byte("x"))
	if domain.KindOf(err) != domain.ErrorKindIO {
		t.Fatalf("expected io kind, got %v", err)
	}
}
