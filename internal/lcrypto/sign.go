// Package lcrypto implements the crypto primitives of §4.C: Ed25519
// signing, sealed-box and shared-key authenticated encryption, and the
// Crockford Base32 encoding used by the URL form (§6).
//
// Ed25519 comes from the standard library (crypto/ed25519), matching
// the teacher's own choice in core/security.go rather than a
// third-party Ed25519 implementation. Sealed-box and shared-key
// encryption are built on golang.org/x/crypto/nacl, already a direct
// dependency via the teacher's chacha20poly1305 usage.
package lcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"lightstore/internal/secure"
	"lightstore/internal/xoraddr"
)

// ErrVerification is returned by VerifyKey.Verify on any signature
// failure. It carries no further detail, matching the constant-time,
// no-subcategorization contract of §7.
var ErrVerification = errors.New("lcrypto: signature verification failed")

// VerifyKey is an Ed25519 public key.
type VerifyKey [ed25519.PublicKeySize]byte

// ToXorAddr routes content addressed by this key using the 32-byte
// public key verbatim (§3).
func (v VerifyKey) ToXorAddr() xoraddr.XorAddr {
	return xoraddr.XorAddr(v)
}

// Verify checks sig over message, returning ErrVerification on any
// failure.
func (v VerifyKey) Verify(message []byte, sig [ed25519.SignatureSize]byte) error {
	if !ed25519.Verify(ed25519.PublicKey(v[:]), message, sig[:]) {
		return ErrVerification
	}
	return nil
}

// SigningKey is an Ed25519 key pair whose secret half lives in guarded
// memory for as long as the key is in use.
type SigningKey struct {
	public VerifyKey
	secret *secure.Secure // ed25519.PrivateKey bytes (64)
}

// GenerateSigningKeyPair creates a new Ed25519 key pair, writing the
// secret key directly into a Secure buffer via the init closure so it
// never rests unguarded on the stack any longer than key generation
// itself takes (§9 "secret data on the stack").
func GenerateSigningKeyPair() (*SigningKey, error) {
	var pub VerifyKey
	var genErr error
	s, err := secure.New(ed25519.PrivateKeySize, func(payload []byte) {
		p, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			genErr = err
			return
		}
		copy(pub[:], p)
		copy(payload, priv)
		// priv is a local, stack/heap-allocated copy of the secret;
		// the GC will eventually reclaim it, but we still scrub it
		// immediately rather than letting it linger.
		for i := range priv {
			priv[i] = 0
		}
	})
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		s.Close()
		return nil, genErr
	}
	return &SigningKey{public: pub, secret: s}, nil
}

// Public returns the key pair's verify key.
func (k *SigningKey) Public() VerifyKey { return k.public }

// Close releases the guarded secret key memory.
func (k *SigningKey) Close() { k.secret.Close() }

// WithSecret grants fn temporary access to the raw 64-byte Ed25519
// private key, following the Secure buffer's Acquire/Release discipline.
// fn must not retain the slice after returning.
func (k *SigningKey) WithSecret(fn func(secret []byte)) {
	g := k.secret.Acquire()
	defer g.Release()
	fn(g.Bytes())
}

// ImportSigningKey reconstructs a SigningKey from a raw 64-byte Ed25519
// private key (crypto/ed25519's public||secret layout), writing it into
// a fresh Secure buffer the same way GenerateSigningKeyPair does.
func ImportSigningKey(secretBytes []byte) (*SigningKey, error) {
	if len(secretBytes) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	pubBytes := ed25519.PrivateKey(secretBytes).Public().(ed25519.PublicKey)
	var pub VerifyKey
	copy(pub[:], pubBytes)

	s, err := secure.New(ed25519.PrivateKeySize, func(payload []byte) {
		copy(payload, secretBytes)
	})
	if err != nil {
		return nil, err
	}
	return &SigningKey{public: pub, secret: s}, nil
}

// Sign produces a 64-byte Ed25519 signature over message.
func (k *SigningKey) Sign(message []byte) [ed25519.SignatureSize]byte {
	g := k.secret.Acquire()
	defer g.Release()
	sig := ed25519.Sign(ed25519.PrivateKey(g.Bytes()), message)
	var out [ed25519.SignatureSize]byte
	copy(out[:], sig)
	return out
}

// String renders the verify key as its lowercase Crockford Base32 URL
// form (§6), e.g. "lsd://<base32>/".
func (v VerifyKey) String() string {
	return fmt.Sprintf("lsd://%s/", EncodeBase32(v[:]))
}
