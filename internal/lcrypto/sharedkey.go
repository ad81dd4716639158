package lcrypto

import (
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"lightstore/internal/secure"
)

// SharedKey is a 32-byte X25519 shared secret (crypto_box_beforenm),
// used for the in-place, detached-MAC stream cipher of §4.C.
type SharedKey struct {
	secret *secure.Secure
}

// SharedKey derives the shared key between this secret key and a
// peer's public key via X25519 scalar multiplication (crypto_box
// precompute).
func (k *SecretEncryptKey) SharedKey(peer EncryptKey) (*SharedKey, error) {
	g := k.secret.Acquire()
	defer g.Release()
	var sk [32]byte
	copy(sk[:], g.Bytes())
	peerArr := [32]byte(peer)

	var shared [32]byte
	box.Precompute(&shared, &peerArr, &sk)

	s, err := secure.New(32, func(payload []byte) {
		copy(payload, shared[:])
		shared = [32]byte{}
	})
	if err != nil {
		return nil, err
	}
	return &SharedKey{secret: s}, nil
}

// Close releases the guarded shared-key memory.
func (s *SharedKey) Close() { s.secret.Close() }

// Encrypt encrypts message in place under nonce, returning the detached
// 16-byte Poly1305 MAC. Built on nacl/secretbox's XSalsa20-Poly1305
// construction: secretbox normally prepends the MAC to the ciphertext,
// so Encrypt performs the combined seal and splits the MAC back out to
// give the in-place, detached-MAC contract §4.C calls for.
func (s *SharedKey) Encrypt(nonce [24]byte, message []byte) (mac [16]byte) {
	g := s.secret.Acquire()
	defer g.Release()
	var key [32]byte
	copy(key[:], g.Bytes())

	sealed := secretbox.Seal(nil, message, &nonce, &key)
	copy(mac[:], sealed[:16])
	copy(message, sealed[16:])
	return mac
}

// Decrypt validates mac and decrypts message in place, failing with
// ErrDecrypt on any MAC mismatch.
func (s *SharedKey) Decrypt(nonce [24]byte, message []byte, mac [16]byte) error {
	g := s.secret.Acquire()
	defer g.Release()
	var key [32]byte
	copy(key[:], g.Bytes())

	combined := make([]byte, 0, 16+len(message))
	combined = append(combined, mac[:]...)
	combined = append(combined, message...)
	plain, ok := secretbox.Open(nil, combined, &nonce, &key)
	if !ok {
		return ErrDecrypt
	}
	copy(message, plain)
	return nil
}
