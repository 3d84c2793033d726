package types

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Amount is a borrow ceiling in token base units. It is a 256-bit unsigned integer
// that only ever crosses a serialization boundary as a decimal string.
type Amount struct {
	value uint256.Int
}

func NewAmount(v uint64) Amount {
	var a Amount
	a.value.SetUint64(v)
	return a
}

// ParseAmount parses a plain decimal integer string. Signs, exponents, fractions,
// separators and values above 2^256-1 are rejected with ErrEncoding.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, errors.Wrap(ErrEncoding, "amount is empty")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Amount{}, errors.Wrapf(ErrEncoding, "amount %q is not a decimal integer", s)
		}
	}

	digits := strings.TrimLeft(s, "0")
	if digits == "" {
		return Amount{}, nil
	}
	// 2^256-1 has 78 decimal digits
	if len(digits) > 78 {
		return Amount{}, errors.Wrapf(ErrEncoding, "amount %q exceeds uint256", s)
	}

	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Amount{}, errors.Wrapf(ErrEncoding, "amount %q is not a decimal integer", s)
	}

	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, errors.Wrapf(ErrEncoding, "amount %q exceeds uint256", s)
	}
	return Amount{value: *v}, nil
}

// MustParseAmount panics on invalid input. Intended for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) String() string {
	return a.value.ToBig().String()
}

func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

func (a Amount) Cmp(other Amount) int {
	return a.value.Cmp(&other.value)
}

func (a Amount) Equal(other Amount) bool {
	return a.value.Eq(&other.value)
}

// Add returns a+other and whether the sum overflowed 256 bits.
func (a Amount) Add(other Amount) (Amount, bool) {
	var sum Amount
	_, overflow := sum.value.AddOverflow(&a.value, &other.value)
	return sum, overflow
}

// Sub returns a-other and whether the subtraction underflowed.
func (a Amount) Sub(other Amount) (Amount, bool) {
	var diff Amount
	_, underflow := diff.value.SubOverflow(&a.value, &other.value)
	return diff, underflow
}

// Bytes32 is the big-endian uint256 encoding used by abi.encodePacked.
func (a Amount) Bytes32() [32]byte {
	return a.value.Bytes32()
}

func (a Amount) Big() *big.Int {
	return a.value.ToBig()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '"' {
		return errors.Wrapf(ErrEncoding, "amount must be a quoted decimal string, got %s", string(data))
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(ErrEncoding, "amount: %v", err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
