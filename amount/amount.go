package amount

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
	"github.com/iov-one/fundtool/errors"
	"github.com/shopspring/decimal"
)

//-------------- Unit -----------------------

// Unit is a denomination of the native asset expressed as a power of ten of
// the smallest unit.
type Unit struct {
	Name     string
	Decimals int
}

var (
	// Wei is the smallest, indivisible unit.
	Wei = Unit{Name: "wei", Decimals: 0}
	// Gwei is one billionth of an ether.
	Gwei = Unit{Name: "gwei", Decimals: 9}
	// Ether is the whole unit.
	Ether = Unit{Name: "ether", Decimals: 18}
)

// unitLabels maps all accepted (lower case) unit labels to their unit.
var unitLabels = map[string]Unit{
	"":      Wei,
	"wei":   Wei,
	"gwei":  Gwei,
	"eth":   Ether,
	"ether": Ether,
}

// LookupUnit returns the unit for given case-insensitive label.
func LookupUnit(label string) (Unit, bool) {
	u, ok := unitLabels[strings.ToLower(strings.TrimSpace(label))]
	return u, ok
}

// Size returns the amount that one of this unit is worth.
func (u Unit) Size() Amount {
	var a Amount
	a.v.Exp(uint256.NewInt(10), uint256.NewInt(uint64(u.Decimals)))
	return a
}

//-------------- Amount -----------------------

// Amount is a non-negative quantity of the native asset counted in the
// smallest unit. It can hold any 256 bit unsigned value. Zero value is a
// valid zero amount.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an amount of n smallest units.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// NewAmountIn returns an amount of n given units, for example
// NewAmountIn(5, Gwei).
func NewAmountIn(n uint64, u Unit) Amount {
	a := u.Size()
	// 2^64 * 10^18 fits in 256 bits, this cannot overflow.
	a.v.Mul(&a.v, uint256.NewInt(n))
	return a
}

// Max returns the highest representable amount.
func Max() Amount {
	var a Amount
	a.v.SetAllOne()
	return a
}

// FromBig converts a big integer into an amount. Negative values and values
// that do not fit in 256 bits are rejected.
func FromBig(b *big.Int) (Amount, error) {
	var a Amount
	if b == nil {
		return a, nil
	}
	if b.Sign() < 0 {
		return a, errors.Wrapf(errors.ErrInvalidAmount, "negative value %s", b)
	}
	if overflow := a.v.SetFromBig(b); overflow {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "value %s", b)
	}
	return a, nil
}

// Big returns the amount as a new big integer.
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// Uint256 returns a copy of the underlying value.
func (a Amount) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&a.v)
}

// Uint64 returns the amount as uint64 and reports if the conversion was
// lossless.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// IsZero returns true if the amount is 0.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Equals returns true if both amounts are of the same value.
func (a Amount) Equals(o Amount) bool {
	return a.v.Eq(&o.v)
}

// Compare returns 1 if a is larger, -1 if o is larger, 0 if equal.
func (a Amount) Compare(o Amount) int {
	return a.v.Cmp(&o.v)
}

// Add returns the sum of both amounts. It fails with ErrOverflow if the
// result does not fit in 256 bits.
func (a Amount) Add(o Amount) (Amount, error) {
	var res Amount
	if _, overflow := res.v.AddOverflow(&a.v, &o.v); overflow {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "adding %s to %s", o, a)
	}
	return res, nil
}

// Subtract returns a - o. It fails with ErrInsufficientAmount if o is
// greater than a.
func (a Amount) Subtract(o Amount) (Amount, error) {
	var res Amount
	if _, underflow := res.v.SubOverflow(&a.v, &o.v); underflow {
		return Amount{}, errors.Wrapf(errors.ErrInsufficientAmount, "subtracting %s from %s", o, a)
	}
	return res, nil
}

// Multiply returns the amount multiplied by given factor.
func (a Amount) Multiply(times uint64) (Amount, error) {
	var res Amount
	if _, overflow := res.v.MulOverflow(&a.v, uint256.NewInt(times)); overflow {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "multiplying %s by %d", a, times)
	}
	return res, nil
}

// Divide splits the amount into given number of equal pieces. It returns a
// single piece and the leftover that could not be split.
func (a Amount) Divide(pieces uint64) (one Amount, rest Amount, err error) {
	if pieces == 0 {
		return Amount{}, Amount{}, errors.Wrap(errors.ErrInput, "pieces must be greater than zero")
	}
	one.v.DivMod(&a.v, uint256.NewInt(pieces), &rest.v)
	return one, rest, nil
}

// In returns how many whole given units this amount is worth and whether
// the conversion is exact (there is no remainder finer than the unit).
func (a Amount) In(u Unit) (Amount, bool) {
	size := u.Size()
	var q, r uint256.Int
	q.DivMod(&a.v, &size.v, &r)
	return Amount{v: q}, r.IsZero()
}

// Sum adds all given amounts.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for i, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Amount{}, errors.Wrapf(err, "amount #%d", i)
		}
	}
	return total, nil
}

// String returns the amount as a decimal number of the smallest unit.
func (a Amount) String() string {
	return a.v.Dec()
}

// InUnit returns the amount as a decimal number of given unit, without
// trailing zeros, for example "1.5" for 1.5 ether.
func (a Amount) InUnit(u Unit) string {
	return decimal.NewFromBigInt(a.v.ToBig(), -int32(u.Decimals)).String()
}

// Human returns a short human readable representation in ether, rounded to
// given number of decimal places.
func (a Amount) Human(places int32) string {
	d := decimal.NewFromBigInt(a.v.ToBig(), -int32(Ether.Decimals))
	return d.Round(places).String() + " ETH"
}

// humanAmountRx matches "<integer>[.<fraction>] [unit]"
var humanAmountRx = regexp.MustCompile(`^\s*([0-9]+)(?:\.([0-9]*))?\s*([a-zA-Z]*)\s*$`)

// Parse reads an amount. Accepted format is a string
//   "<integer>[.<fraction>][ ][unit]"
// where the unit label is case insensitive and one of wei, gwei, eth, ether.
// An amount without a unit is counted in wei. The fraction is converted by
// decimal place padding and cannot be more precise than the smallest unit.
func Parse(s string) (Amount, error) {
	return ParseIn(s, Wei)
}

// ParseIn works like Parse, but a value without a unit label is counted in
// given default unit.
func ParseIn(s string, def Unit) (Amount, error) {
	m := humanAmountRx.FindStringSubmatch(s)
	if m == nil {
		return Amount{}, errors.Wrapf(errors.ErrInvalidAmount, "invalid format %q", s)
	}
	whole, frac, label := m[1], m[2], m[3]

	unit := def
	if label != "" {
		u, ok := LookupUnit(label)
		if !ok {
			return Amount{}, errors.Wrapf(errors.ErrInvalidAmount, "unknown unit %q", label)
		}
		unit = u
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > unit.Decimals {
		return Amount{}, errors.Wrapf(errors.ErrInvalidAmount,
			"%q is more precise than %d decimal places of %s", s, unit.Decimals, unit.Name)
	}
	digits := whole + frac + strings.Repeat("0", unit.Decimals-len(frac))

	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Amount{}, errors.Wrapf(errors.ErrInvalidAmount, "invalid number %q", s)
	}
	return FromBig(b)
}

// Set implements flag.Value interface.
func (a *Amount) Set(raw string) error {
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalJSON serializes the amount as a decimal string of the smallest
// unit, so that no precision is lost by JSON number decoders.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both a string in the Parse format and a JSON integer
// number of the smallest unit.
func (a *Amount) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return a.Set(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return errors.Wrapf(errors.ErrInvalidAmount, "cannot decode %s", raw)
	}
	return a.Set(n.String())
}

// GoString is used by %#v formatting.
func (a Amount) GoString() string {
	return fmt.Sprintf("amount.Amount(%s)", a.String())
}
