package command

import (
	"strconv"
	"strings"
)

// ArgType tags the closed set of wire argument variants.
type ArgType int

const (
	ArgString ArgType = iota
	ArgInt
	ArgFloat
)

// Arg is one typed command argument. A closed tagged variant replaces the
// untyped payloads of ad hoc control protocols: malformed input fails at the
// parse boundary, not at point of use.
type Arg struct {
	Type  ArgType
	Str   string
	Int   int64
	Float float64
}

func String(s string) Arg { return Arg{Type: ArgString, Str: s} }
func Int(i int64) Arg     { return Arg{Type: ArgInt, Int: i} }
func Float(f float64) Arg { return Arg{Type: ArgFloat, Float: f} }

// AsString renders any variant as a string, the common denominator of the
// wire protocol.
func (a Arg) AsString() string {
	switch a.Type {
	case ArgInt:
		return strconv.FormatInt(a.Int, 10)
	case ArgFloat:
		return strconv.FormatFloat(a.Float, 'f', -1, 64)
	default:
		return a.Str
	}
}

// AsInt returns the argument as an integer when the variant permits it.
func (a Arg) AsInt() (int64, bool) {
	switch a.Type {
	case ArgInt:
		return a.Int, true
	case ArgString:
		n, err := strconv.ParseInt(strings.TrimSpace(a.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ParseArg turns one wire token into its most specific variant.
func ParseArg(token string) Arg {
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return Float(f)
	}
	return String(token)
}
