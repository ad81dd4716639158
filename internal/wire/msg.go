// Package wire implements the daemon's on-the-wire message union (§3,
// §6): a small tagged-union protocol carried over UDP datagrams, where
// an unrecognized tag drops the remainder of the datagram instead of
// tearing down the whole peer.
//
// Grounded on original_source/lightstore/src/daemon/msg.rs for the wire
// layout and msg_rx.rs for the streaming-unpack design (adopted here as
// DecodeAll, since Go has no analogue to the Rust Stream state machine
// msg_rx.rs builds around a single in-flight Cursor).
package wire

import (
	"encoding/binary"
	"math"

	"lightstore/internal/lcrypto"
	"lightstore/internal/units"
)

const (
	tagSenderDownloadFee uint16 = 0x0000
	tagSenderGetMutable  uint16 = 0x0001
)

// Msg is the daemon's wire message union. Concrete types are
// SenderDownloadFee and SenderGetMutable.
type Msg interface {
	// Encode appends this message's wire encoding (tag included) to buf.
	Encode(buf []byte) []byte
}

// SenderDownloadFee advertises the price (in Btc per Byte transferred)
// the sender is currently charging to serve content.
type SenderDownloadFee struct {
	BtcPerByte units.BtcPerByte
}

func (m SenderDownloadFee) Encode(buf []byte) []byte {
	buf = appendU16(buf, tagSenderDownloadFee)
	return appendF64(buf, float64(m.BtcPerByte))
}

// GetMutableParams is the fee schedule a requester is willing to pay for
// a mutable-data lookup: a flat price, its decay over wall-clock time,
// and its decay per additional content version walked.
type GetMutableParams struct {
	Price                  units.Btc
	PriceDecayOverTime     units.Sec
	PriceDecayOverVersions float64
}

// SenderGetMutable requests the mutable data published under a signing
// key, offering GetMutableParams as payment.
type SenderGetMutable struct {
	ID     lcrypto.VerifyKey
	Params GetMutableParams
}

func (m SenderGetMutable) Encode(buf []byte) []byte {
	buf = appendU16(buf, tagSenderGetMutable)
	buf = append(buf, m.ID[:]...)
	buf = appendF64(buf, float64(m.Params.Price))
	buf = appendF64(buf, float64(m.Params.PriceDecayOverTime))
	buf = appendF64(buf, m.Params.PriceDecayOverVersions)
	return buf
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendF64(buf []byte, v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}

// decodeCursor tracks a read position into a single datagram, mirroring
// msg_rx.rs's Cursor<Bytes> without the Rust Stream machinery: a datagram
// arrives whole, so Go just walks a byte slice instead of polling.
type decodeCursor struct {
	data []byte
	pos  int
}

func (c *decodeCursor) remaining() int { return len(c.data) - c.pos }

func (c *decodeCursor) u16() (uint16, bool) {
	if c.remaining() < 2 {
		return 0, false
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, true
}

func (c *decodeCursor) f64() (float64, bool) {
	if c.remaining() < 8 {
		return 0, false
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(c.data[c.pos:]))
	c.pos += 8
	return v, true
}

func (c *decodeCursor) bytes(n int) ([]byte, bool) {
	if c.remaining() < n {
		return nil, false
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, true
}

// decodeOne reads a single tagged message from the cursor.
func decodeOne(c *decodeCursor) (Msg, error) {
	tag, ok := c.u16()
	if !ok {
		return nil, ErrTruncated
	}
	switch tag {
	case tagSenderDownloadFee:
		v, ok := c.f64()
		if !ok {
			return nil, ErrTruncated
		}
		return SenderDownloadFee{BtcPerByte: units.BtcPerByte(v)}, nil

	case tagSenderGetMutable:
		idBytes, ok := c.bytes(32)
		if !ok {
			return nil, ErrTruncated
		}
		price, ok := c.f64()
		if !ok {
			return nil, ErrTruncated
		}
		decayTime, ok := c.f64()
		if !ok {
			return nil, ErrTruncated
		}
		decayVersions, ok := c.f64()
		if !ok {
			return nil, ErrTruncated
		}
		var id lcrypto.VerifyKey
		copy(id[:], idBytes)
		return SenderGetMutable{
			ID: id,
			Params: GetMutableParams{
				Price:                  units.Btc(price),
				PriceDecayOverTime:     units.Sec(decayTime),
				PriceDecayOverVersions: decayVersions,
			},
		}, nil

	default:
		return nil, ErrUnknownTag
	}
}

// DecodeAll unpacks every message packed into a single datagram,
// matching msg_rx.rs's loop that keeps reading from the same Cursor
// until it's exhausted. Per §6, an unknown tag or a truncated message
// stops unpacking and silently drops the remainder of the datagram
// rather than returning an error for the whole call — whatever messages
// were already decoded are still returned.
func DecodeAll(datagram []byte) []Msg {
	c := &decodeCursor{data: datagram}
	var out []Msg
	for c.remaining() > 0 {
		msg, err := decodeOne(c)
		if err != nil {
			break
		}
		out = append(out, msg)
	}
	return out
}
