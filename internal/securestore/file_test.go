package securestore

import (
	"bytes"
	"context"
	"os"
	"testing"
)

func TestFileStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), "")

	if _, ok, err := s.Get(ctx, "session_token"); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "session_token", "T1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "other", "x"); err != nil {
		t.Fatalf("Set other failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "session_token")
	if err != nil || !ok || got != "T1" {
		t.Fatalf("Get = %q %v %v, want T1", got, ok, err)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("store file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	if err := s.Delete(ctx, "session_token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "session_token"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "session_token"); ok {
		t.Fatal("expected key to be gone")
	}
	if v, ok, _ := s.Get(ctx, "other"); !ok || v != "x" {
		t.Fatal("unrelated key was lost")
	}
}

func TestFileStoreSealed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir, "correct horse")

	if err := s.Set(ctx, "session_token", "secret-token-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if bytes.Contains(raw, []byte("secret-token-value")) {
		t.Fatal("sealed store leaks plaintext")
	}

	reopened := NewFileStore(dir, "correct horse")
	if v, ok, err := reopened.Get(ctx, "session_token"); err != nil || !ok || v != "secret-token-value" {
		t.Fatalf("reopen = %q %v %v", v, ok, err)
	}

	wrong := NewFileStore(dir, "battery staple")
	if _, _, err := wrong.Get(ctx, "session_token"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "")
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Fatal("expected cancelled context error")
	}
}
