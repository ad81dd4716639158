// Package units implements the dimensional scalars used throughout the
// daemon's pricing and scheduling logic (§4.A). Each quantity wraps a
// float64 with a distinct type identity so that a scheduling computation
// that mixes, say, Btc and Sec by mistake fails to compile rather than
// silently producing a nonsense number.
package units

import (
	"math"
	"time"
)

// Btc is a unitless "economic utility" token, not a real currency
// settlement (see spec GLOSSARY).
type Btc float64

// Sec is a duration measured in seconds as a float64, convertible from
// time.Duration.
type Sec float64

// Byte is a size in bytes.
type Byte float64

// PerSec is the reciprocal of Sec (1/Sec).
type PerSec float64

// BtcPerByte is a price: Btc spent per Byte transferred.
type BtcPerByte float64

// BtcPerSec is a rate of utility change over time.
type BtcPerSec float64

// Btc2, Btc2PerByte2 back the logarithmic variance types.
type Btc2 float64
type Btc2PerByte2 float64

// LogBtc and LogBtcPerByte carry ln() of the corresponding dimension, used
// for variance tracking on peer price estimates.
type LogBtc float64
type LogBtcPerByte float64
type LogBtc2 float64
type LogBtc2PerByte2 float64

func (a Btc) Neg() Btc          { return -a }
func (a Btc) Add(b Btc) Btc     { return a + b }
func (a Btc) Sub(b Btc) Btc     { return a - b }
func (a Btc) Mul(s float64) Btc { return Btc(float64(a) * s) }
func (a Btc) Div(s float64) Btc { return Btc(float64(a) / s) }
func (a Btc) DivBtc(b Btc) float64 {
	return float64(a) / float64(b)
}

func (a Sec) Neg() Sec          { return -a }
func (a Sec) Add(b Sec) Sec     { return a + b }
func (a Sec) Sub(b Sec) Sec     { return a - b }
func (a Sec) Mul(s float64) Sec { return Sec(float64(a) * s) }
func (a Sec) Div(s float64) Sec { return Sec(float64(a) / s) }

// SecFromDuration converts a time.Duration to Sec, matching the original
// implementation's From<Duration> impl (whole seconds plus fractional
// nanoseconds).
func SecFromDuration(d time.Duration) Sec {
	return Sec(d.Seconds())
}

func ByteFromInt(n int) Byte { return Byte(n) }

// Inv returns the reciprocal of a Sec value as a PerSec.
func (a Sec) Inv() PerSec { return PerSec(1.0 / float64(a)) }

// Mul multiplies a BtcPerByte price by a Byte size, yielding Btc —
// BtcPerByte·Byte=Btc.
func (p BtcPerByte) Mul(n Byte) Btc { return Btc(float64(p) * float64(n)) }

// MulPerSec multiplies Btc by PerSec, yielding BtcPerSec — Btc·PerSec=BtcPerSec.
func (a Btc) MulPerSec(p PerSec) BtcPerSec { return BtcPerSec(float64(a) * float64(p)) }

// Log returns the natural log of a Btc value as a LogBtc.
func (a Btc) Log() LogBtc { return LogBtc(math.Log(float64(a))) }

// Exp returns the natural exponential of a LogBtc as a Btc.
func (a LogBtc) Exp() Btc { return Btc(math.Exp(float64(a))) }

// Log returns the natural log of a BtcPerByte value.
func (a BtcPerByte) Log() LogBtcPerByte { return LogBtcPerByte(math.Log(float64(a))) }

// Exp returns the natural exponential of a LogBtcPerByte as a BtcPerByte.
func (a LogBtcPerByte) Exp() BtcPerByte { return BtcPerByte(math.Exp(float64(a))) }

// Double returns 2·LogBtcPerByte as a LogBtc2PerByte2 — used when tracking
// the variance of a price estimate expressed in log-space.
func (a LogBtcPerByte) Double() LogBtc2PerByte2 { return LogBtc2PerByte2(2 * float64(a)) }

// Half is the inverse of Double.
func (a LogBtc2PerByte2) Half() LogBtcPerByte { return LogBtcPerByte(float64(a) / 2) }

// DecayRateAt computes the instantaneous decay rate of a utility that
// started at `utility` at time zero and decays with time constant
// `decay` (§3): decay_at(t) = -utility/decay · exp(-t/decay). Result is
// always ≤0 and its magnitude determines scheduling priority — the
// packet/message losing value fastest is sent first.
func DecayRateAt(utility Btc, decay Sec, elapsed Sec) BtcPerSec {
	rate := -float64(utility) / float64(decay)
	return BtcPerSec(rate * math.Exp(-float64(elapsed)/float64(decay)))
}

// UtilityAt computes the decayed utility itself (used by PeerTx, which
// orders on Btc rather than BtcPerSec — see §4.G): utility_decay_at(t) =
// utility · exp(-t/decay).
func UtilityAt(utility Btc, decay Sec, elapsed Sec) Btc {
	return Btc(float64(utility) * math.Exp(-float64(elapsed)/float64(decay)))
}
