package keystore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreatePersistsUnderFixedDirName(t *testing.T) {
	repo := t.TempDir()
	store, err := Open(repo)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	key, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer key.Close()

	dir := filepath.Join(repo, "info", "lightstore-keys")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	if len(entries[0].Name()) != 52 {
		t.Fatalf("expected a 52-char base32 filename, got %q", entries[0].Name())
	}

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read key file: %v", err)
	}
	if len(content) != 52 {
		t.Fatalf("expected a 52-char base32 seed as the file content, got %d chars", len(content))
	}
}

func TestListReturnsCreatedKeys(t *testing.T) {
	repo := t.TempDir()
	store, err := Open(repo)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	k1, err := store.Create()
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	defer k1.Close()
	k2, err := store.Create()
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}
	defer k2.Close()

	names, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}
}

func TestLoadRoundTripsThroughDisk(t *testing.T) {
	repo := t.TempDir()
	store, err := Open(repo)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	created, err := store.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer created.Close()

	pub := created.Public()
	names, err := store.List()
	if err != nil || len(names) != 1 {
		t.Fatalf("list: %v %v", names, err)
	}

	loaded, err := store.Load(names[0])
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer loaded.Close()

	if loaded.Public() != pub {
		t.Fatalf("loaded key's public half does not match the one created")
	}

	msg := []byte("round trip")
	sig := loaded.Sign(msg)
	if err := pub.Verify(msg, sig); err != nil {
		t.Fatalf("verify with original public key failed: %v", err)
	}
}

func TestLoadMissingKeyReturnsErrNotFound(t *testing.T) {
	repo := t.TempDir()
	store, err := Open(repo)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Load("0000000000000000000000000000000000000000000000000g"); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
