package value

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Tokens used for non-finite floats in literal encodings. JSON has no
// spelling for them, so the strict JSON encoder rejects them instead.
const (
	nanLiteral    = "NaN"
	posInfLiteral = "Infinity"
	negInfLiteral = "-Infinity"
)

// ErrNonFinite is returned by the strict JSON encoder for NaN and infinite floats.
var ErrNonFinite = errors.New("non-finite float has no JSON representation")

// EncodeLiteral returns the text form of v used by type-erasing formats.
// Text is written verbatim; every other kind is written as its canonical
// structural literal (true, 12, 3.0, [1,2], {"a":1}, null).
func EncodeLiteral(v Value) string {
	if v.kind == KindText {
		return v.s
	}
	return string(AppendLiteral(nil, v))
}

// AppendLiteral appends the canonical structural literal of v to dst.
// Unlike EncodeLiteral, Text is quoted.
func AppendLiteral(dst []byte, v Value) []byte {
	out, _ := appendValue(dst, v, false)
	return out
}

// AppendJSON appends the JSON encoding of v to dst. It fails on non-finite floats.
func AppendJSON(dst []byte, v Value) ([]byte, error) {
	return appendValue(dst, v, true)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, v)
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers without a
// fraction or exponent decode as Int, all other numbers as Float.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = Infer(raw)
	return nil
}

func appendValue(dst []byte, v Value, strict bool) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindBool:
		return strconv.AppendBool(dst, v.b), nil
	case KindInt:
		return strconv.AppendInt(dst, v.i, 10), nil
	case KindFloat:
		if strict && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
			return dst, ErrNonFinite
		}
		return append(dst, FormatFloat(v.f)...), nil
	case KindText:
		return append(dst, Quote(v.s)...), nil
	case KindList:
		dst = append(dst, '[')
		for i, item := range v.list {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendValue(dst, item, strict); err != nil {
				return dst, err
			}
		}
		return append(dst, ']'), nil
	case KindMap:
		dst = append(dst, '{')
		for i, k := range v.Keys() {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = append(dst, Quote(k)...)
			dst = append(dst, ':')
			var err error
			if dst, err = appendValue(dst, v.m[k], strict); err != nil {
				return dst, err
			}
		}
		return append(dst, '}'), nil
	}
	return dst, fmt.Errorf("unknown value kind %d", v.kind)
}

// FormatFloat renders f so that it always reads back as a float: integral
// values keep a ".0" suffix and non-finite values use NaN/Infinity tokens.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return nanLiteral
	case math.IsInf(f, 1):
		return posInfLiteral
	case math.IsInf(f, -1):
		return negInfLiteral
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Quote returns s as a JSON string literal without HTML escaping.
func Quote(s string) string {
	b, err := json.MarshalWithOption(s, json.DisableHTMLEscape())
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}

// ParseLiteral attempts to read s as a structural literal. Surrounding
// whitespace is ignored. The second result is false when s is not a literal,
// in which case callers keep the raw text.
func ParseLiteral(s string) (Value, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Null(), false
	}
	switch trimmed {
	case nanLiteral:
		return Float(math.NaN()), true
	case posInfLiteral:
		return Float(math.Inf(1)), true
	case negInfLiteral:
		return Float(math.Inf(-1)), true
	}
	if !looksLikeLiteral(trimmed) {
		return Null(), false
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null(), false
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Null(), false
	}
	return Infer(raw), true
}

// looksLikeLiteral rejects plain words before the decoder sees them.
func looksLikeLiteral(s string) bool {
	switch s[0] {
	case '{', '[', '"', '-', 't', 'f', 'n':
		return true
	}
	return s[0] >= '0' && s[0] <= '9'
}

// DecodeCell applies the literal-or-text rule to one cell of a type-erasing format.
func DecodeCell(s string) Value {
	if v, ok := ParseLiteral(s); ok {
		return v
	}
	return Text(s)
}

// numberValue classifies a JSON number token.
func numberValue(n string) Value {
	if !strings.ContainsAny(n, ".eE") {
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return Int(i)
		}
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return Text(n)
	}
	return Float(f)
}
