package codec

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// Uint128 is an unsigned 128-bit integer, as used for pool liquidity amounts.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// MaxUint128 is 2^128 - 1.
var MaxUint128 = Uint128{Hi: math.MaxUint64, Lo: math.MaxUint64}

func Uint128FromUint64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// Uint128FromBig converts an ABI-decoded integer, rejecting negative or wider values.
func Uint128FromBig(v *big.Int) (Uint128, error) {
	if v == nil {
		return Uint128{}, nil
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return Uint128{}, &RangeError{Type: "uint128", Value: v.String()}
	}
	u, _ := uint256.FromBig(v)
	return Uint128{Hi: u[1], Lo: u[0]}, nil
}

func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Big returns u as a new big.Int.
func (u Uint128) Big() *big.Int {
	return new(uint256.Int).SetBytes(EncodeUint128(u)).ToBig()
}

func (u Uint128) String() string {
	return u.Big().String()
}

// EncodeUint128 returns 16 big-endian bytes.
func EncodeUint128(u Uint128) []byte {
	out := make([]byte, Uint128Len)
	binary.BigEndian.PutUint64(out[:8], u.Hi)
	binary.BigEndian.PutUint64(out[8:], u.Lo)
	return out
}

// DecodeUint128 requires exactly 16 bytes.
func DecodeUint128(b []byte) (Uint128, error) {
	if err := checkLen("uint128", b, Uint128Len); err != nil {
		return Uint128{}, err
	}
	return Uint128{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}, nil
}
