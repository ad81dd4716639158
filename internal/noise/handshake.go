// Package noise implements the Noise-XK handshake and framed transport
// used for the lightning-style reputation channel of §4.C/F: a
// Noise_XK_secp256k1_ChaChaPoly_SHA256 handshake (BOLT-8) followed by a
// 2-byte-length-prefixed, per-message-AEAD-framed record stream.
//
// Grounded directly on original_source's handshake.rs rather than a
// generic Noise library, so the exact hash/key-schedule order needed to
// match the act-one/two/three byte layout is never left to a library's
// abstraction (see SPEC_FULL.md's DOMAIN STACK notes on flynn/noise).
package noise

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	protocolName = "Noise_XK_secp256k1_ChaChaPoly_SHA256"
	prologue     = "lightning"

	actOneLen   = 50
	actTwoLen   = 50
	actThreeLen = 66
)

// handshakeState carries the running h (transcript hash) and ck
// (chaining key) across the three acts.
type handshakeState struct {
	h  [32]byte
	ck [32]byte
}

func initState() handshakeState {
	h := sha256.Sum256([]byte(protocolName))
	ck := h
	h = sha256.Sum256(append(append([]byte{}, h[:]...), []byte(prologue)...))
	return handshakeState{h: h, ck: ck}
}

func (s *handshakeState) mixHash(data []byte) {
	buf := make([]byte, 0, 32+len(data))
	buf = append(buf, s.h[:]...)
	buf = append(buf, data...)
	s.h = sha256.Sum256(buf)
}

// hkdfSplit runs HKDF-Extract(salt=ck, ikm) then Expand to 64 bytes,
// returning the two 32-byte halves, matching the Rust Hkdf::extract +
// expand(&[], 64) call.
func hkdfSplit(ck [32]byte, ikm []byte) (k1, k2 [32]byte) {
	r := hkdf.New(sha256.New, ikm, ck[:], nil)
	var out [64]byte
	if _, err := io.ReadFull(r, out[:]); err != nil {
		panic("noise: hkdf read failed: " + err.Error())
	}
	copy(k1[:], out[:32])
	copy(k2[:], out[32:])
	return k1, k2
}

func encodeNonce(n uint64) [12]byte {
	var nonce [12]byte
	binary.LittleEndian.PutUint64(nonce[4:], n)
	return nonce
}

func encryptWithAD(key [32]byte, n uint64, ad, plaintext []byte) []byte {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		panic("noise: chacha20poly1305.New: " + err.Error())
	}
	nonce := encodeNonce(n)
	return aead.Seal(nil, nonce[:], plaintext, ad)
}

func decryptWithAD(key [32]byte, n uint64, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce := encodeNonce(n)
	plain, err := aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		return nil, ErrInvalidAct
	}
	return plain, nil
}

// ecdh computes the secp256k1 ECDH shared secret SHA256(compressed
// point), the construction rust-secp256k1's ecdh::SharedSecret used at
// the time original_source was written, and the same one BOLT-8 pins.
// The compressed encoding includes the 0x02/0x03 parity prefix byte, so
// the result must be reassembled into a full public key before hashing
// rather than hashing the bare X coordinate.
func ecdh(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) [32]byte {
	var point secp256k1.JacobianPoint
	pub.AsJacobian(&point)

	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()

	ss := secp256k1.NewPublicKey(&result.X, &result.Y)
	return sha256.Sum256(ss.SerializeCompressed())
}

// SessionKeys holds the two directional transport keys produced once a
// handshake completes.
type SessionKeys struct {
	SendKey [32]byte
	RecvKey [32]byte
}

// InitiatorHandshake runs the Noise-XK handshake as the connecting
// (initiator) side: it knows the responder's static key in advance (the
// XK pattern), uses the caller-supplied localEphemeral as its ephemeral
// key, and drives all three acts over rw.
func InitiatorHandshake(rw io.ReadWriter, localStatic *secp256k1.PrivateKey, localEphemeral *secp256k1.PrivateKey, remoteStatic *secp256k1.PublicKey) (SessionKeys, error) {
	s := initState()
	s.mixHash(remoteStatic.SerializeCompressed())

	ePub := localEphemeral.PubKey()
	s.mixHash(ePub.SerializeCompressed())

	ss := ecdh(localEphemeral, remoteStatic)
	ck, tempK1 := hkdfSplit(s.ck, ss[:])
	s.ck = ck

	c := encryptWithAD(tempK1, 0, s.h[:], nil)
	s.mixHash(c)

	actOne := make([]byte, 0, actOneLen)
	actOne = append(actOne, 0)
	actOne = append(actOne, ePub.SerializeCompressed()...)
	actOne = append(actOne, c...)
	if _, err := rw.Write(actOne); err != nil {
		return SessionKeys{}, err
	}

	actTwo := make([]byte, actTwoLen)
	if _, err := io.ReadFull(rw, actTwo); err != nil {
		return SessionKeys{}, err
	}
	if actTwo[0] != 0 {
		return SessionKeys{}, ErrInvalidAct
	}
	re, err := secp256k1.ParsePubKey(actTwo[1:34])
	if err != nil {
		return SessionKeys{}, ErrInvalidAct
	}
	c2 := actTwo[34:50]

	s.mixHash(re.SerializeCompressed())
	ss2 := ecdh(localEphemeral, re)
	ck, tempK2 := hkdfSplit(s.ck, ss2[:])
	s.ck = ck
	if _, err := decryptWithAD(tempK2, 0, s.h[:], c2); err != nil {
		return SessionKeys{}, ErrInvalidAct
	}
	s.mixHash(c2)

	localPub := localStatic.PubKey()
	c3 := encryptWithAD(tempK2, 1, s.h[:], localPub.SerializeCompressed())
	s.mixHash(c3)

	ss3 := ecdh(localStatic, re)
	ck, tempK3 := hkdfSplit(s.ck, ss3[:])
	s.ck = ck
	t := encryptWithAD(tempK3, 0, s.h[:], nil)

	k1, k2 := hkdfSplit(s.ck, nil)

	actThree := make([]byte, 0, actThreeLen)
	actThree = append(actThree, 0)
	actThree = append(actThree, c3...)
	actThree = append(actThree, t...)
	if _, err := rw.Write(actThree); err != nil {
		return SessionKeys{}, err
	}

	return SessionKeys{SendKey: k1, RecvKey: k2}, nil
}

// ResponderHandshake runs the Noise-XK handshake as the listening
// (responder) side.
func ResponderHandshake(rw io.ReadWriter, localStatic *secp256k1.PrivateKey, localEphemeral *secp256k1.PrivateKey) (SessionKeys, *secp256k1.PublicKey, error) {
	s := initState()
	localPub := localStatic.PubKey()
	s.mixHash(localPub.SerializeCompressed())

	actOne := make([]byte, actOneLen)
	if _, err := io.ReadFull(rw, actOne); err != nil {
		return SessionKeys{}, nil, err
	}
	if actOne[0] != 0 {
		return SessionKeys{}, nil, ErrInvalidAct
	}
	re, err := secp256k1.ParsePubKey(actOne[1:34])
	if err != nil {
		return SessionKeys{}, nil, ErrInvalidAct
	}
	c := actOne[34:50]

	s.mixHash(re.SerializeCompressed())
	ss := ecdh(localStatic, re)
	ck, tempK1 := hkdfSplit(s.ck, ss[:])
	s.ck = ck
	if _, err := decryptWithAD(tempK1, 0, s.h[:], c); err != nil {
		return SessionKeys{}, nil, ErrInvalidAct
	}
	s.mixHash(c)

	ePub := localEphemeral.PubKey()
	s.mixHash(ePub.SerializeCompressed())
	ss2 := ecdh(localEphemeral, re)
	ck, tempK2 := hkdfSplit(s.ck, ss2[:])
	s.ck = ck
	c2 := encryptWithAD(tempK2, 0, s.h[:], nil)
	s.mixHash(c2)

	actTwo := make([]byte, 0, actTwoLen)
	actTwo = append(actTwo, 0)
	actTwo = append(actTwo, ePub.SerializeCompressed()...)
	actTwo = append(actTwo, c2...)
	if _, err := rw.Write(actTwo); err != nil {
		return SessionKeys{}, nil, err
	}

	actThree := make([]byte, actThreeLen)
	if _, err := io.ReadFull(rw, actThree); err != nil {
		return SessionKeys{}, nil, err
	}
	if actThree[0] != 0 {
		return SessionKeys{}, nil, ErrInvalidAct
	}
	c3 := actThree[1:50]
	t := actThree[50:66]

	remoteStaticBytes, err := decryptWithAD(tempK2, 1, s.h[:], c3)
	if err != nil {
		return SessionKeys{}, nil, ErrInvalidAct
	}
	s.mixHash(c3)
	remoteStatic, err := secp256k1.ParsePubKey(remoteStaticBytes)
	if err != nil {
		return SessionKeys{}, nil, ErrInvalidAct
	}

	ss3 := ecdh(localEphemeral, remoteStatic)
	ck, tempK3 := hkdfSplit(s.ck, ss3[:])
	s.ck = ck
	if _, err := decryptWithAD(tempK3, 0, s.h[:], t); err != nil {
		return SessionKeys{}, nil, ErrInvalidAct
	}

	k1, k2 := hkdfSplit(s.ck, nil)

	// The responder's send/recv keys mirror the initiator's: what the
	// initiator sends with k1, the responder must receive with k1.
	return SessionKeys{SendKey: k2, RecvKey: k1}, remoteStatic, nil
}
