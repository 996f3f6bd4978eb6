// Package fixedpoint implements deterministic scaled-integer decimal
// arithmetic for the pricing engine.  Public values carry 18 fractional
// digits; Exp and Ln are evaluated at a wider 27-digit internal scale so
// that rounding introduced by argument reduction stays far below the
// 1e-6 relative error target.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────────────────────────────────

var (
	// ErrDivideByZero is returned by Div when the divisor is zero.
	ErrDivideByZero = errors.New("fixedpoint: division by zero")

	// ErrLnDomain is returned by Ln for arguments ≤ 0.
	ErrLnDomain = errors.New("fixedpoint: ln argument must be positive")

	// ErrExpOverflow is returned by Exp when the argument is too large for the
	// result to be representable.
	ErrExpOverflow = errors.New("fixedpoint: exp argument too large")
)

// ──────────────────────────────────────────────────────────────────────────────
// Scales
// ──────────────────────────────────────────────────────────────────────────────

const (
	// ScaleDigits is the number of fractional digits of a public Value.
	ScaleDigits = 18
	// wideDigits is the internal scale used by Exp and Ln.
	wideDigits = 27
)

var (
	scaleInt   = pow10(ScaleDigits)              // 1e18
	wideInt    = pow10(wideDigits)               // 1e27
	wideFactor = pow10(wideDigits - ScaleDigits) // 1e9
	halfWide   = new(big.Int).Div(wideInt, big.NewInt(2))
	twoWide    = new(big.Int).Mul(wideInt, big.NewInt(2))
	wideSq     = new(big.Int).Mul(wideInt, wideInt)

	// ln(2) at the wide scale, truncated.
	ln2Wide, _ = new(big.Int).SetString("693147180559945309417232121", 10)

	// Exp argument magnitude cap.  exp(130) ≈ 2.9e56 which is still cheap to
	// represent; anything beyond trips the overflow guard (positive side) or
	// flushes to zero (negative side, where the true value is below one ulp).
	expInputLimit = new(big.Int).Mul(big.NewInt(130), wideInt)
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ──────────────────────────────────────────────────────────────────────────────
// Value
// ──────────────────────────────────────────────────────────────────────────────

// Value is a signed fixed-point number scaled by 1e18.  The zero Value is
// ready to use and equals 0.  Values are immutable: every operation returns
// a fresh Value and never mutates its operands.
type Value struct {
	n *big.Int
}

func (v Value) unscaled() *big.Int {
	if v.n == nil {
		return new(big.Int)
	}
	return v.n
}

// Zero returns the Value 0.
func Zero() Value { return Value{} }

// One returns the Value 1.
func One() Value { return Value{n: new(big.Int).Set(scaleInt)} }

// FromInt converts an integer quantity to a Value.
func FromInt(i int64) Value {
	return Value{n: new(big.Int).Mul(big.NewInt(i), scaleInt)}
}

// FromDecimal converts a decimal to a Value, truncating fractional digits
// beyond the 18th.
func FromDecimal(d decimal.Decimal) Value {
	return Value{n: d.Shift(ScaleDigits).Truncate(0).BigInt()}
}

// Parse converts a decimal string ("2.5", "0.001") to a Value.
func Parse(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, fmt.Errorf("fixedpoint.Parse %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse that panics on malformed input.  Intended for constants
// and tests.
func MustParse(s string) Value {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Decimal converts the Value back to a decimal with 18 fractional digits.
func (v Value) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(v.unscaled(), -ScaleDigits)
}

// String renders the Value as a decimal string.
func (v Value) String() string { return v.Decimal().String() }

// ──────────────────────────────────────────────────────────────────────────────
// Arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// Add returns v + o.
func (v Value) Add(o Value) Value {
	return Value{n: new(big.Int).Add(v.unscaled(), o.unscaled())}
}

// Sub returns v − o.
func (v Value) Sub(o Value) Value {
	return Value{n: new(big.Int).Sub(v.unscaled(), o.unscaled())}
}

// Mul returns v × o, truncated toward zero (floor for non-negative operands).
func (v Value) Mul(o Value) Value {
	n := new(big.Int).Mul(v.unscaled(), o.unscaled())
	return Value{n: n.Quo(n, scaleInt)}
}

// Div returns v ÷ o, truncated toward zero (floor for non-negative operands).
func (v Value) Div(o Value) (Value, error) {
	if o.IsZero() {
		return Value{}, ErrDivideByZero
	}
	n := new(big.Int).Mul(v.unscaled(), scaleInt)
	return Value{n: n.Quo(n, o.unscaled())}, nil
}

// MulFrac returns v × num ⁄ den with floor rounding, without intermediate
// precision loss.  Used for basis-point fee splits.  Panics when den is zero.
func (v Value) MulFrac(num, den int64) Value {
	if den == 0 {
		panic("fixedpoint: MulFrac zero denominator")
	}
	n := new(big.Int).Mul(v.unscaled(), big.NewInt(num))
	return Value{n: n.Quo(n, big.NewInt(den))}
}

// Neg returns −v.
func (v Value) Neg() Value { return Value{n: new(big.Int).Neg(v.unscaled())} }

// Abs returns |v|.
func (v Value) Abs() Value { return Value{n: new(big.Int).Abs(v.unscaled())} }

// ──────────────────────────────────────────────────────────────────────────────
// Comparisons
// ──────────────────────────────────────────────────────────────────────────────

// Cmp compares v and o, returning −1, 0 or +1.
func (v Value) Cmp(o Value) int { return v.unscaled().Cmp(o.unscaled()) }

// Sign returns −1, 0 or +1 according to the sign of v.
func (v Value) Sign() int { return v.unscaled().Sign() }

// IsZero reports whether v equals 0.
func (v Value) IsZero() bool { return v.Sign() == 0 }

// IsNegative reports whether v is below 0.
func (v Value) IsNegative() bool { return v.Sign() < 0 }

// Equal reports whether v equals o.
func (v Value) Equal(o Value) bool { return v.Cmp(o) == 0 }

// LessThan reports v < o.
func (v Value) LessThan(o Value) bool { return v.Cmp(o) < 0 }

// GreaterThan reports v > o.
func (v Value) GreaterThan(o Value) bool { return v.Cmp(o) > 0 }

// Max returns the larger of a and b.
func Max(a, b Value) Value {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// ──────────────────────────────────────────────────────────────────────────────
// JSON
// ──────────────────────────────────────────────────────────────────────────────

// MarshalJSON renders the Value as a decimal JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.Decimal().MarshalJSON()
}

// UnmarshalJSON parses a decimal JSON string or number.
func (v *Value) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("fixedpoint: unmarshal: %w", err)
	}
	*v = FromDecimal(d)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Exp / Ln
// ──────────────────────────────────────────────────────────────────────────────

const (
	expMaxTerms = 40
	lnMaxTerms  = 81 // odd powers of z, |z| ≤ 1/3 after range reduction
)

func toWide(v Value) *big.Int {
	return new(big.Int).Mul(v.unscaled(), wideFactor)
}

func fromWide(w *big.Int) Value {
	return Value{n: new(big.Int).Quo(w, wideFactor)}
}

// Exp returns e^v.  Arguments with magnitude above 130 are rejected on the
// positive side with ErrExpOverflow; on the negative side the true value is
// below one ulp and 0 is returned.
func Exp(v Value) (Value, error) {
	w, err := expWide(toWide(v))
	if err != nil {
		return Value{}, err
	}
	return fromWide(w), nil
}

// expWide evaluates e^x on the wide scale using repeated argument halving
// followed by a Maclaurin series on the reduced argument, then squaring back.
// Negative arguments are handled by inverting e^|x| so the series only ever
// sees non-negative terms.
func expWide(x *big.Int) (*big.Int, error) {
	if x.Sign() == 0 {
		return new(big.Int).Set(wideInt), nil
	}

	neg := x.Sign() < 0
	a := new(big.Int).Abs(x)

	if a.Cmp(expInputLimit) > 0 {
		if neg {
			return new(big.Int), nil
		}
		return nil, ErrExpOverflow
	}

	// Halve until the argument is ≤ 0.5, where the series converges in a
	// handful of terms.
	halvings := 0
	for a.Cmp(halfWide) > 0 {
		a.Rsh(a, 1)
		halvings++
	}

	sum := new(big.Int).Set(wideInt)
	term := new(big.Int).Set(wideInt)
	for i := int64(1); i <= expMaxTerms; i++ {
		term.Mul(term, a)
		term.Quo(term, wideInt)
		term.Quo(term, big.NewInt(i))
		if term.Sign() == 0 {
			break
		}
		sum.Add(sum, term)
	}

	for ; halvings > 0; halvings-- {
		sum.Mul(sum, sum)
		sum.Quo(sum, wideInt)
	}

	if neg {
		sum.Quo(wideSq, sum)
	}
	return sum, nil
}

// Ln returns the natural logarithm of v.  Fails with ErrLnDomain for v ≤ 0.
func Ln(v Value) (Value, error) {
	if v.Sign() <= 0 {
		return Value{}, ErrLnDomain
	}
	return fromWide(lnWide(toWide(v))), nil
}

// lnWide evaluates ln(x) on the wide scale.  The argument is range-reduced
// into [0.5, 2) by powers of two, then ln(m) = 2·artanh((m−1)/(m+1)) is
// summed until the incremental term vanishes.  After reduction |z| ≤ 1/3 so
// each term gains roughly an order of magnitude.
func lnWide(x *big.Int) *big.Int {
	two := big.NewInt(2)

	a := new(big.Int).Set(x)
	pow := 0
	for a.Cmp(twoWide) >= 0 {
		a.Quo(a, two)
		pow++
	}
	for a.Cmp(halfWide) < 0 {
		a.Mul(a, two)
		pow--
	}

	num := new(big.Int).Sub(a, wideInt)
	den := new(big.Int).Add(a, wideInt)
	z := new(big.Int).Mul(num, wideInt)
	z.Quo(z, den)

	zsq := new(big.Int).Mul(z, z)
	zsq.Quo(zsq, wideInt)

	sum := new(big.Int).Set(z)
	term := new(big.Int).Set(z)
	inc := new(big.Int)
	for i := int64(3); i <= lnMaxTerms; i += 2 {
		term.Mul(term, zsq)
		term.Quo(term, wideInt)
		inc.Quo(term, big.NewInt(i))
		if inc.Sign() == 0 {
			break
		}
		sum.Add(sum, inc)
	}

	res := new(big.Int).Mul(sum, two)
	if pow != 0 {
		shift := new(big.Int).Mul(big.NewInt(int64(pow)), ln2Wide)
		res.Add(res, shift)
	}
	return res
}
