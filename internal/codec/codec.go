package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Fixed storage widths in bytes.
const (
	AddressLen = common.AddressLength
	HashLen    = common.HashLength
	Uint64Len  = 8
	Uint128Len = 16
	Uint256Len = 32
	Int256Len  = 32
)

var (
	// ErrInvalidLength is matched by every decode failure caused by a buffer of the wrong width.
	ErrInvalidLength = errors.New("invalid length")
	// ErrOutOfRange is matched when a value does not fit the target width.
	ErrOutOfRange = errors.New("value out of range")
)

var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// LengthError reports a decode on a buffer whose size differs from the type width.
type LengthError struct {
	Type string
	Want int
	Got  int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: %s: want %d bytes, got %d", ErrInvalidLength, e.Type, e.Want, e.Got)
}

func (e *LengthError) Is(target error) bool {
	return target == ErrInvalidLength
}

// RangeError reports a value that cannot be represented in the target width.
type RangeError struct {
	Type  string
	Value string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrOutOfRange, e.Type, e.Value)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

func checkLen(typ string, b []byte, want int) error {
	if len(b) != want {
		return &LengthError{Type: typ, Want: want, Got: len(b)}
	}
	return nil
}

// EncodeAddress returns the 20 address bytes.
func EncodeAddress(a common.Address) []byte {
	out := make([]byte, AddressLen)
	copy(out, a[:])
	return out
}

// DecodeAddress requires exactly 20 bytes.
func DecodeAddress(b []byte) (common.Address, error) {
	if err := checkLen("address", b, AddressLen); err != nil {
		return common.Address{}, err
	}
	var a common.Address
	copy(a[:], b)
	return a, nil
}

// EncodeHash returns the 32 hash bytes.
func EncodeHash(h common.Hash) []byte {
	out := make([]byte, HashLen)
	copy(out, h[:])
	return out
}

// DecodeHash requires exactly 32 bytes.
func DecodeHash(b []byte) (common.Hash, error) {
	if err := checkLen("hash", b, HashLen); err != nil {
		return common.Hash{}, err
	}
	var h common.Hash
	copy(h[:], b)
	return h, nil
}

// EncodeUint64 returns the 8-byte big-endian form of v.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, Uint64Len)
	binary.BigEndian.PutUint64(out, v)
	return out
}

// DecodeUint64 requires exactly 8 bytes.
func DecodeUint64(b []byte) (uint64, error) {
	if err := checkLen("uint64", b, Uint64Len); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeUint256 returns 32 big-endian bytes. A nil value encodes as zero.
func EncodeUint256(v *uint256.Int) []byte {
	if v == nil {
		return make([]byte, Uint256Len)
	}
	b := v.Bytes32()
	return b[:]
}

// DecodeUint256 requires exactly 32 bytes.
func DecodeUint256(b []byte) (*uint256.Int, error) {
	if err := checkLen("uint256", b, Uint256Len); err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(b), nil
}

// Uint256FromBig converts an ABI-decoded integer to a uint256, rejecting negative or
// wider values.
func Uint256FromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, &RangeError{Type: "uint256", Value: v.String()}
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, &RangeError{Type: "uint256", Value: v.String()}
	}
	return out, nil
}

// EncodeInt256 returns the 32-byte two's complement form of v. A nil value encodes as zero.
func EncodeInt256(v *big.Int) ([]byte, error) {
	if v == nil {
		return make([]byte, Int256Len), nil
	}
	if v.Cmp(maxInt256) > 0 || v.Cmp(minInt256) < 0 {
		return nil, &RangeError{Type: "int256", Value: v.String()}
	}
	// SetFromBig negates the magnitude for negative inputs, leaving the two's complement word.
	u, _ := uint256.FromBig(v)
	b := u.Bytes32()
	return b[:], nil
}

// DecodeInt256 requires exactly 32 bytes and interprets them as two's complement.
func DecodeInt256(b []byte) (*big.Int, error) {
	if err := checkLen("int256", b, Int256Len); err != nil {
		return nil, err
	}
	u := new(uint256.Int).SetBytes32(b)
	if u.Sign() >= 0 {
		return u.ToBig(), nil
	}
	abs := new(uint256.Int).Neg(u)
	return new(big.Int).Neg(abs.ToBig()), nil
}
