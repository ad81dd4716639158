package lcrypto

import (
	"crypto/rand"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/box"

	"lightstore/internal/secure"
)

// EncryptKey is an X25519 public key used for sealed-box encryption.
type EncryptKey [32]byte

// SecretEncryptKey is the matching X25519 secret key, held in guarded
// memory.
type SecretEncryptKey struct {
	public EncryptKey
	secret *secure.Secure // 32 raw scalar bytes
}

// GenerateEncryptKeyPair creates a new X25519 key pair.
func GenerateEncryptKeyPair() (*SecretEncryptKey, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	s, err := secure.New(32, func(payload []byte) {
		copy(payload, priv[:])
		for i := range priv {
			priv[i] = 0
		}
	})
	if err != nil {
		return nil, err
	}
	return &SecretEncryptKey{public: EncryptKey(*pub), secret: s}, nil
}

// Public returns this key pair's public half.
func (k *SecretEncryptKey) Public() EncryptKey { return k.public }

// Close releases the guarded secret key memory.
func (k *SecretEncryptKey) Close() { k.secret.Close() }

// Encrypt produces an anonymous sealed box: the sender is never
// identified, only the recipient (holding the matching
// SecretEncryptKey) can decrypt. Output length is len(plaintext)+48
// (§3, §8 S5): a 32-byte ephemeral public key, a 16-byte Poly1305 tag,
// and the ciphertext.
func (recipient EncryptKey) Encrypt(plaintext []byte) ([]byte, error) {
	epk, esk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	nonce, err := sealNonce(epk, (*[32]byte)(&recipient))
	if err != nil {
		return nil, err
	}
	recipientArr := [32]byte(recipient)
	out := make([]byte, 0, 32+len(plaintext)+box.Overhead)
	out = append(out, epk[:]...)
	out = box.Seal(out, plaintext, &nonce, &recipientArr, esk)
	return out, nil
}

// Decrypt opens a sealed box produced by EncryptKey.Encrypt, failing
// with ErrDecrypt on any MAC, length, or curve check failure.
func (k *SecretEncryptKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 32+box.Overhead {
		return nil, ErrDecrypt
	}
	var epk [32]byte
	copy(epk[:], ciphertext[:32])
	nonce, err := sealNonce(&epk, (*[32]byte)(&k.public))
	if err != nil {
		return nil, ErrDecrypt
	}
	g := k.secret.Acquire()
	defer g.Release()
	var sk [32]byte
	copy(sk[:], g.Bytes())
	plaintext, ok := box.Open(nil, ciphertext[32:], &nonce, &epk, &sk)
	if !ok {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// sealNonce derives the crypto_box_seal nonce: BLAKE2b-192(ephemeral_pub
// || recipient_pub), the same construction libsodium uses so that the
// nonce is deterministic per (ephemeral, recipient) pair without ever
// needing to transmit it separately.
func sealNonce(ephemeralPub, recipientPub *[32]byte) ([24]byte, error) {
	var nonce [24]byte
	h, err := blake2b.New(24, nil)
	if err != nil {
		return nonce, err
	}
	h.Write(ephemeralPub[:])
	h.Write(recipientPub[:])
	copy(nonce[:], h.Sum(nil))
	return nonce, nil
}
