package lcrypto

import "strings"

// crockfordAlphabet is RFC 4648 base32 applied with Douglas Crockford's
// human-friendly alphabet (omits I, L, O, U to avoid confusion with
// 1, 1, 0, V). No library in the retrieval pack implements this
// specific variant (go-multibase's "base32" is the standard RFC 4648
// alphabet) so it is hand-rolled here, matching
// original_source/lightstore/src/crypto/base32.rs's use of the
// Crockford alphabet crate.
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordDecodeTable [256]int8

func init() {
	for i := range crockfordDecodeTable {
		crockfordDecodeTable[i] = -1
	}
	for i, c := range crockfordAlphabet {
		crockfordDecodeTable[c] = int8(i)
	}
	// Crockford's alphabet treats these as visually-confusable aliases.
	crockfordDecodeTable['O'] = crockfordDecodeTable['0']
	crockfordDecodeTable['I'] = crockfordDecodeTable['1']
	crockfordDecodeTable['L'] = crockfordDecodeTable['1']
}

// EncodeBase32 encodes data using Crockford Base32, lowercased per the
// URL form in §6.
func EncodeBase32(data []byte) string {
	var sb strings.Builder
	var buf uint64
	bits := 0
	for _, b := range data {
		buf = (buf << 8) | uint64(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			sb.WriteByte(crockfordAlphabet[(buf>>uint(bits))&0x1f])
		}
	}
	if bits > 0 {
		sb.WriteByte(crockfordAlphabet[(buf<<uint(5-bits))&0x1f])
	}
	return strings.ToLower(sb.String())
}

// DecodeBase32 decodes a Crockford Base32 string (case-insensitive) into
// exactly n bytes, failing if the decoded length does not match.
func DecodeBase32(s string, n int) ([]byte, error) {
	s = strings.ToUpper(s)
	var buf uint64
	bits := 0
	out := make([]byte, 0, n+1)
	for i := 0; i < len(s); i++ {
		v := crockfordDecodeTable[s[i]]
		if v < 0 {
			return nil, ErrParseBase32
		}
		buf = (buf << 5) | uint64(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>uint(bits)))
		}
	}
	if len(out) != n {
		return nil, ErrInvalidBase32Len
	}
	return out, nil
}
