// Package scale implements Scale, a real number stored as a log-magnitude
// and a sign.
//
// Tensors carry a Scale next to their buffer so that long chains of products
// neither overflow nor underflow float64: the true value of every element is
// buffer[i] * scale.
package scale

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Errors returned when a Scale cannot be represented as a float64.
var (
	ErrTooBig   = errors.New("scale too large for float64")
	ErrTooSmall = errors.New("scale too small for float64")
)

var (
	// maxLog is log(math.MaxFloat64), about 709.78.
	maxLog = math.Log(math.MaxFloat64)
	// minLog is the log of the smallest normal float64, about -708.40.
	minLog = math.Log(0x1p-1022)
)

// Scale is a real number represented as sign * exp(logNum).
//
// A zero sign denotes exact zero; logNum is then meaningless.
// The zero value is zero.
type Scale struct {
	logNum float64
	sign   int
}

// One returns the Scale representing 1.
func One() Scale {
	return Scale{logNum: 0, sign: 1}
}

// Zero returns the Scale representing 0.
func Zero() Scale {
	return Scale{}
}

// New builds a Scale from its log-magnitude and sign.
func New(logNum float64, sign int) Scale {
	switch {
	case sign > 0:
		sign = 1
	case sign < 0:
		sign = -1
	}
	return Scale{logNum: logNum, sign: sign}
}

// FromReal converts a float64 to a Scale.
func FromReal(x float64) Scale {
	switch {
	case x == 0:
		return Zero()
	case x < 0:
		return Scale{logNum: math.Log(-x), sign: -1}
	default:
		return Scale{logNum: math.Log(x), sign: 1}
	}
}

// LogNum returns the natural log of the magnitude.
func (s Scale) LogNum() float64 { return s.logNum }

// Sign returns -1, 0 or 1.
func (s Scale) Sign() int { return s.sign }

// IsZero reports whether s is exactly zero.
func (s Scale) IsZero() bool { return s.sign == 0 }

// Real returns s as a float64.
//
// It returns ErrTooBig or ErrTooSmall when the magnitude is outside the
// normal float64 range.
func (s Scale) Real() (float64, error) {
	if s.sign == 0 {
		return 0, nil
	}
	if s.logNum > maxLog {
		return 0, errors.Wrapf(ErrTooBig, "log magnitude %g", s.logNum)
	}
	if s.logNum < minLog {
		return 0, errors.Wrapf(ErrTooSmall, "log magnitude %g", s.logNum)
	}
	return float64(s.sign) * math.Exp(s.logNum), nil
}

// Real0 is like Real but maps magnitudes below the float64 range to 0.
func (s Scale) Real0() (float64, error) {
	if s.sign != 0 && s.logNum < minLog {
		return 0, nil
	}
	return s.Real()
}

// IsTooBigForReal reports whether Real would fail with ErrTooBig.
func (s Scale) IsTooBigForReal() bool {
	return s.sign != 0 && s.logNum > maxLog
}

// IsRealZero reports whether s is zero or too small to be a float64.
func (s Scale) IsRealZero() bool {
	return s.sign == 0 || s.logNum < minLog
}

// IsFiniteReal reports whether s converts to a nonzero finite float64.
func (s Scale) IsFiniteReal() bool {
	return s.sign != 0 && s.logNum >= minLog && s.logNum <= maxLog
}

// Mul returns s * o.
func (s Scale) Mul(o Scale) Scale {
	if s.sign == 0 || o.sign == 0 {
		return Zero()
	}
	return Scale{logNum: s.logNum + o.logNum, sign: s.sign * o.sign}
}

// Div returns s / o. Div panics if o is zero.
func (s Scale) Div(o Scale) Scale {
	if o.sign == 0 {
		panic("scale: division by zero")
	}
	if s.sign == 0 {
		return Zero()
	}
	return Scale{logNum: s.logNum - o.logNum, sign: s.sign * o.sign}
}

// MulReal returns s * x.
func (s Scale) MulReal(x float64) Scale {
	return s.Mul(FromReal(x))
}

// Pow returns s raised to p. Negative values are only allowed for integral p.
func (s Scale) Pow(p float64) Scale {
	if s.sign == 0 {
		if p == 0 {
			return One()
		}
		return Zero()
	}
	sign := 1
	if s.sign < 0 && math.Mod(p, 2) != 0 {
		sign = -1
	}
	return Scale{logNum: s.logNum * p, sign: sign}
}

// Negate returns -s.
func (s Scale) Negate() Scale {
	return Scale{logNum: s.logNum, sign: -s.sign}
}

// Abs returns |s|.
func (s Scale) Abs() Scale {
	if s.sign == 0 {
		return s
	}
	return Scale{logNum: s.logNum, sign: 1}
}

// MagnitudeLessThan reports whether |s| < |o|.
func (s Scale) MagnitudeLessThan(o Scale) bool {
	if o.sign == 0 {
		return false
	}
	if s.sign == 0 {
		return true
	}
	return s.logNum < o.logNum
}

// Equal reports whether s and o represent the same number.
func (s Scale) Equal(o Scale) bool {
	if s.sign == 0 || o.sign == 0 {
		return s.sign == o.sign
	}
	return s.sign == o.sign && s.logNum == o.logNum
}

// String implements fmt.Stringer.
func (s Scale) String() string {
	if s.sign == 0 {
		return "0"
	}
	if r, err := s.Real(); err == nil {
		return fmt.Sprintf("%g", r)
	}
	sign := ""
	if s.sign < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%sexp(%g)", sign, s.logNum)
}
