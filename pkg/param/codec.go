package param

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Text of boolean and bit-field values.
const (
	TextOn     = "ON"
	TextOff    = "OFF"
	TextToggle = "TOGGLE"
)

var widthRanges = [shmem.NumTypes]struct{ min, max int64 }{
	shmem.TypeU8:  {0, math.MaxUint8},
	shmem.TypeS8:  {math.MinInt8, math.MaxInt8},
	shmem.TypeU16: {0, math.MaxUint16},
	shmem.TypeS16: {math.MinInt16, math.MaxInt16},
	shmem.TypeU32: {0, math.MaxUint32},
	shmem.TypeS32: {math.MinInt32, math.MaxInt32},
}

// AppendFloat appends v rendered with a fixed number of decimals.
// A negative precision renders the shortest text parsing back to the
// same float32. With a positive digit budget, decimals are dropped
// until the number of digits fits, never below zero decimals.
func AppendFloat(dst []byte, v float32, precision, digits int) []byte {
	if precision < 0 {
		return strconv.AppendFloat(dst, float64(v), 'f', -1, 32)
	}
	start := len(dst)
	for {
		dst = strconv.AppendFloat(dst[:start], float64(v), 'f', precision, 64)
		if digits <= 0 || precision == 0 || countDigits(dst[start:]) <= digits {
			return dst
		}
		precision--
	}
}

// FormatFloat is AppendFloat returning a string.
func FormatFloat(v float32, precision, digits int) string {
	return string(AppendFloat(nil, v, precision, digits))
}

func countDigits(b []byte) (n int) {
	for _, c := range b {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return
}

// AppendValue appends the text of v as read through d.
func AppendValue(dst []byte, d *Descriptor, v Value) []byte {
	switch d.Type {
	case shmem.TypeBool:
		return append(dst, onOff(v.AsBool())...)
	case shmem.TypeBits:
		return append(dst, onOff(v.Op == BitSet)...)
	case shmem.TypeFloat:
		precision, ok := d.Aux.Decimals()
		if !ok {
			precision = -1
		}
		return AppendFloat(dst, v.AsFloat(), precision, d.Digits)
	case shmem.TypeU8:
		if _, ok := d.Aux.Case(); ok && int(v.Word) < len(d.Cases) {
			return append(dst, d.Cases[v.Word]...)
		}
	}
	return strconv.AppendInt(dst, v.AsInt(), 10)
}

// FormatValue renders v as read through d, optionally with the unit suffix.
func FormatValue(d *Descriptor, v Value, withUnit bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = AppendValue(buf.B, d, v)
	if withUnit && d.Unit.IsValid() {
		buf.WriteString(d.Unit.Suffix())
	}
	return buf.String()
}

func onOff(on bool) string {
	if on {
		return TextOn
	}
	return TextOff
}

// ParseValue parses text into a value for d. An optional trailing unit
// suffix is accepted. Malformed text yields InvalidText, text which does
// not fit the slot's width yields OutOfRange.
func ParseValue(d *Descriptor, text string) (Value, error) {
	s := strings.TrimSpace(text)
	if d.Unit.IsValid() {
		s = strings.TrimSpace(strings.TrimSuffix(s, d.Unit.Suffix()))
	}
	if s == "" {
		return Value{}, invalidText(text)
	}
	switch d.Type {
	case shmem.TypeBool:
		on, ok := parseOnOff(s)
		if !ok {
			return Value{}, invalidText(text)
		}
		return Bool(on), nil
	case shmem.TypeBits:
		if strings.EqualFold(s, TextToggle) {
			return Bits(BitToggle), nil
		}
		on, ok := parseOnOff(s)
		if !ok {
			return Value{}, invalidText(text)
		}
		return Flag(on), nil
	case shmem.TypeFloat:
		return parseFloat(text, s)
	case shmem.TypeU8:
		if _, ok := d.Aux.Case(); ok {
			for n, name := range d.Cases {
				if strings.EqualFold(s, name) {
					return U8(uint8(n)), nil
				}
			}
			v, err := parseInt(d.Type, text, s)
			if err == nil && v.Word > 0xf {
				return Value{}, fmt.Errorf("%q: %w", text, rpc.OutOfRange)
			}
			return v, err
		}
	}
	return parseInt(d.Type, text, s)
}

func parseOnOff(s string) (on, ok bool) {
	switch strings.ToUpper(s) {
	case TextOn, "1", "TRUE":
		return true, true
	case TextOff, "0", "FALSE":
		return false, true
	}
	return false, false
}

func parseFloat(text, s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("%q: %w", text, rpc.OutOfRange)
		}
		return Value{}, invalidText(text)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, invalidText(text)
	}
	return Float(float32(f)), nil
}

func parseInt(t BaseType, text, s string) (Value, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("%q: %w", text, rpc.OutOfRange)
		}
		return Value{}, invalidText(text)
	}
	if r := widthRanges[t]; n < r.min || n > r.max {
		return Value{}, fmt.Errorf("%q exceeds %s: %w", text, t, rpc.OutOfRange)
	}
	return Value{Type: t, Word: uint32(n)}, nil
}

func invalidText(text string) error {
	return fmt.Errorf("%q: %w", text, rpc.InvalidText)
}
