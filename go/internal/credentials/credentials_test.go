package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Token(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.SetToken(ctx, "secret"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	token, err := store.Token(ctx)
	if err != nil || token != "secret" {
		t.Fatalf("unexpected token %q, err %v", token, err)
	}

	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken failed: %v", err)
	}
	if _, err := store.Token(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	if _, err := store.Token(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.SetToken(ctx, "secret"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	if err != nil {
		t.Fatalf("credential file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("credential file permissions %v, want 0600", perm)
	}

	reopened := NewFileStore(dir)
	token, err := reopened.Token(ctx)
	if err != nil || token != "secret" {
		t.Fatalf("unexpected token %q, err %v", token, err)
	}

	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken failed: %v", err)
	}
	if _, err := store.Token(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestFileStoreEmptyTokenTreatedAsMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	if err := store.SetToken(ctx, ""); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if _, err := store.Token(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty token, got %v", err)
	}
}
