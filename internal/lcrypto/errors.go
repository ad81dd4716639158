package lcrypto

import "errors"

var (
	// ErrDecrypt is returned by sealed-box and shared-key decryption on
	// any MAC, length, or curve check failure (§4.C, §7), constant-time
	// and without further subcategorization.
	ErrDecrypt = errors.New("lcrypto: decryption failed")

	ErrParseBase32      = errors.New("lcrypto: invalid base32 character")
	ErrInvalidBase32Len = errors.New("lcrypto: decoded base32 has wrong length")

	// ErrInvalidKeySize is returned by ImportSigningKey when given a byte
	// slice that isn't a 64-byte Ed25519 private key.
	ErrInvalidKeySize = errors.New("lcrypto: invalid signing key size")
)
