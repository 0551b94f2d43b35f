package rational

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rational is an exact fraction in lowest terms with a positive denominator.
// The zero value is 0. Integers are stored with den == 0 so that two equal
// values always compare equal with ==, which lets Rational be used as a map key.
type Rational struct {
	num int64
	den int64
}

var (
	Zero        = Rational{}
	One         = Int(1)
	Half        = New(1, 2)
	Quarter     = New(1, 4)
	ThreeHalves = New(3, 2)
	TwoThirds   = New(2, 3)
)

var ErrSyntax = errors.New("invalid rational syntax")

// New builds num/den reduced. It panics when den is zero.
func New(num, den int64) Rational {
	if den == 0 {
		panic("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Zero
	}
	g := gcd(abs(num), den)
	num, den = num/g, den/g
	if den == 1 {
		den = 0
	}
	return Rational{num: num, den: den}
}

// Int returns n/1.
func Int(n int64) Rational {
	return Rational{num: n}
}

func (r Rational) Num() int64 { return r.num }

func (r Rational) Den() int64 {
	if r.den == 0 {
		return 1
	}
	return r.den
}

func (r Rational) Plus(o Rational) Rational {
	return New(r.num*o.Den()+o.num*r.Den(), r.Den()*o.Den())
}

func (r Rational) Minus(o Rational) Rational {
	return New(r.num*o.Den()-o.num*r.Den(), r.Den()*o.Den())
}

func (r Rational) Times(o Rational) Rational {
	return New(r.num*o.num, r.Den()*o.Den())
}

func (r Rational) TimesInt(n int64) Rational {
	return New(r.num*n, r.Den())
}

// Divides returns r / o. It panics when o is zero.
func (r Rational) Divides(o Rational) Rational {
	if o.num == 0 {
		panic("rational: division by zero")
	}
	return New(r.num*o.Den(), r.Den()*o.num)
}

func (r Rational) Neg() Rational {
	return Rational{num: -r.num, den: r.den}
}

// Cmp returns -1, 0 or +1.
func (r Rational) Cmp(o Rational) int {
	lhs := r.num * o.Den()
	rhs := o.num * r.Den()
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (r Rational) Equal(o Rational) bool { return r == o }

func (r Rational) Less(o Rational) bool { return r.Cmp(o) < 0 }

func (r Rational) IsZero() bool { return r.num == 0 }

func (r Rational) Sign() int {
	switch {
	case r.num < 0:
		return -1
	case r.num > 0:
		return 1
	default:
		return 0
	}
}

func (r Rational) Float64() float64 {
	return float64(r.num) / float64(r.Den())
}

// Ptr returns a pointer to a copy of r, handy for optional values.
func (r Rational) Ptr() *Rational {
	return &r
}

func (r Rational) String() string {
	if r.den == 0 {
		return strconv.FormatInt(r.num, 10)
	}
	return fmt.Sprintf("%d/%d", r.num, r.den)
}

func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rational) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Parse reads "n", "n/d" or "-n/d".
func Parse(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrSyntax)
	}
	numStr, denStr, hasSlash := strings.Cut(s, "/")
	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	if !hasSlash {
		return Int(num), nil
	}
	den, err := strconv.ParseInt(strings.TrimSpace(denStr), 10, 64)
	if err != nil || den == 0 {
		return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	return New(num, den), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Rational {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders an optional value, "" when nil.
func String(r *Rational) string {
	if r == nil {
		return ""
	}
	return r.String()
}

// ParsePtr is the inverse of String: "" gives nil.
func ParsePtr(s string) (*Rational, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	r, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EqualPtr reports whether two optional values are both nil or both equal.
func EqualPtr(a, b *Rational) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func Min(a, b Rational) Rational {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func Max(a, b Rational) Rational {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// GCD of two positive integers.
func GCD(a, b int64) int64 {
	return gcd(abs(a), abs(b))
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
