package webhook

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// stringifier writes a JSON value the way JSON.stringify(JSON.parse(v)) does:
// strings decoded and re-escaped minimally, numbers in their shortest
// round-trip form, duplicate keys collapsed to the last value, and
// array-index keys ahead of the rest. With sortKeys every object is instead
// ordered bytewise by key.
type stringifier struct {
	buf      bytes.Buffer
	sortKeys bool
}

type member struct {
	key   string
	value []byte
	typ   jsonparser.ValueType
}

func (s *stringifier) value(v []byte, typ jsonparser.ValueType) error {
	switch typ {
	case jsonparser.Object:
		return s.object(v, "")
	case jsonparser.Array:
		return s.array(v)
	case jsonparser.String:
		str, err := jsonparser.ParseString(v)
		if err != nil {
			return err
		}
		writeJSString(&s.buf, str)
	case jsonparser.Number:
		s.buf.WriteString(jsNumber(v))
	case jsonparser.Boolean, jsonparser.Null:
		s.buf.Write(v)
	default:
		return fmt.Errorf("unexpected value %q", v)
	}
	return nil
}

// object writes data, leaving out every occurrence of skip when it is set.
func (s *stringifier) object(data []byte, skip string) error {
	members, err := objectMembers(data, skip)
	if err != nil {
		return err
	}
	orderMembers(members, s.sortKeys)

	s.buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			s.buf.WriteByte(',')
		}
		writeJSString(&s.buf, m.key)
		s.buf.WriteByte(':')
		if err := s.value(m.value, m.typ); err != nil {
			return err
		}
	}
	s.buf.WriteByte('}')

	return nil
}

func (s *stringifier) array(data []byte) error {
	s.buf.WriteByte('[')

	var (
		n    int
		werr error
	)
	_, err := jsonparser.ArrayEach(data, func(v []byte, typ jsonparser.ValueType, _ int, _ error) {
		if werr != nil {
			return
		}
		if n > 0 {
			s.buf.WriteByte(',')
		}
		n++
		werr = s.value(v, typ)
	})
	if err != nil {
		return err
	}
	if werr != nil {
		return werr
	}

	s.buf.WriteByte(']')
	return nil
}

// objectMembers lists the members of data in first-seen order. A repeated
// key keeps its first position and takes the last value.
func objectMembers(data []byte, skip string) ([]member, error) {
	var members []member
	index := make(map[string]int)

	err := jsonparser.ObjectEach(data, func(k, v []byte, typ jsonparser.ValueType, _ int) error {
		key := string(k)
		if skip != "" && key == skip {
			return nil
		}
		if i, ok := index[key]; ok {
			members[i].value, members[i].typ = v, typ
			return nil
		}
		index[key] = len(members)
		members = append(members, member{key: key, value: v, typ: typ})
		return nil
	})

	return members, err
}

// lastMember returns the final occurrence of a top-level key.
func lastMember(data []byte, key string) ([]byte, jsonparser.ValueType, bool) {
	var (
		val   []byte
		typ   jsonparser.ValueType
		found bool
	)
	_ = jsonparser.ObjectEach(data, func(k, v []byte, t jsonparser.ValueType, _ int) error {
		if string(k) == key {
			val, typ, found = v, t, true
		}
		return nil
	})
	return val, typ, found
}

func orderMembers(members []member, sortKeys bool) {
	if sortKeys {
		sort.SliceStable(members, func(i, j int) bool { return members[i].key < members[j].key })
		return
	}

	sort.SliceStable(members, func(i, j int) bool {
		a, aok := arrayIndex(members[i].key)
		b, bok := arrayIndex(members[j].key)
		switch {
		case aok && bok:
			return a < b
		default:
			return aok && !bok
		}
	})
}

// arrayIndex reports whether key is the canonical text of an integer in
// [0, 2^32-2], the keys a JS object enumerates first.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

const hexDigits = "0123456789abcdef"

// writeJSString quotes s escaping only '"', '\' and control characters.
// Invalid UTF-8 becomes U+FFFD.
func writeJSString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				if c < 0x20 {
					buf.WriteString(`\u00`)
					buf.WriteByte(hexDigits[c>>4])
					buf.WriteByte(hexDigits[c&0xf])
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString("\uFFFD")
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// jsNumber renders a JSON number literal the way JS prints the parsed value.
// Values outside the float64 range print as null.
func jsNumber(raw []byte) string {
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil && !math.IsInf(f, 0) {
		return string(raw)
	}
	return formatJSNumber(f)
}

func formatJSNumber(f float64) string {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return "null"
	case f == 0:
		return "0"
	}

	sign := ""
	if f < 0 {
		sign, f = "-", -f
	}

	mant, expText, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expText)

	k, n := len(digits), exp+1
	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	e, esign := n-1, "+"
	if e < 0 {
		e, esign = -e, "-"
	}
	head := digits[:1]
	if k > 1 {
		head += "." + digits[1:]
	}
	return sign + head + "e" + esign + strconv.Itoa(e)
}
