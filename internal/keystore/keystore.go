// Package keystore implements the persisted key storage interface of
// §6: one file per keypair under <repo>/info/lightstore-keys/, filename
// and content both Crockford Base32, so the CLI's `create` and `list`
// subcommands can hand off to whatever VCS collaborator eventually reads
// the directory.
//
// Grounded on the layout §6 fixes explicitly; no example file stores
// exactly this shape, so the directory scan and 0600-permission file
// writes follow the teacher's own wallet file handling in
// cmd/cli/wallet.go (os.WriteFile with 0o600, no umask assumptions).
package keystore

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"

	"lightstore/internal/lcrypto"
)

// DirName is the fixed subdirectory name §6 specifies, relative to a
// repo root.
const DirName = "info/lightstore-keys"

// ErrNotFound is returned by Load when no file matches the requested
// public key.
var ErrNotFound = errors.New("keystore: key not found")

// Store manages one repo's key directory.
type Store struct {
	dir string
}

// Open returns a Store rooted at <repoPath>/info/lightstore-keys,
// creating the directory if it doesn't already exist.
func Open(repoPath string) (*Store, error) {
	dir := filepath.Join(repoPath, DirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Create generates a new signing key pair and persists it: filename is
// the lowercase Crockford Base32 public key (52 chars), content is the
// secret key in the same encoding.
func (s *Store) Create() (*lcrypto.SigningKey, error) {
	key, err := lcrypto.GenerateSigningKeyPair()
	if err != nil {
		return nil, err
	}
	if err := s.persist(key); err != nil {
		key.Close()
		return nil, err
	}
	return key, nil
}

// persist writes key's 32-byte Ed25519 seed to disk under its public
// key's filename, matching §6's fixed 52-char/52-char interop format
// (the original stores the seed, not the full seed||public Go private
// key). This briefly exposes the secret key bytes outside the guarded
// Secure buffer (Acquire/Release), matching the necessary boundary
// crossing any on-disk persistence requires.
func (s *Store) persist(key *lcrypto.SigningKey) error {
	pub := key.Public()
	filename := lcrypto.EncodeBase32(pub[:])
	path := filepath.Join(s.dir, filename)

	var writeErr error
	key.WithSecret(func(secret []byte) {
		seed := ed25519.PrivateKey(secret).Seed()
		content := lcrypto.EncodeBase32(seed)
		writeErr = os.WriteFile(path, []byte(content), 0o600)
	})
	return writeErr
}

// List returns the Crockford Base32 public key of every keypair stored
// in the directory, matching the CLI's `list` subcommand contract (§6).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Load reads the seed file named by pubKeyBase32 back into memory,
// reconstructing the full Ed25519 private key from its 32-byte seed.
func (s *Store) Load(pubKeyBase32 string) (*lcrypto.SigningKey, error) {
	path := filepath.Join(s.dir, pubKeyBase32)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	seed, err := lcrypto.DecodeBase32(string(data), ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return lcrypto.ImportSigningKey(ed25519.NewKeyFromSeed(seed))
}
