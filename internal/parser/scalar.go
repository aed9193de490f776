package parser

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	decimalPattern = regexp2.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`, regexp2.ECMAScript)
	hexPattern     = regexp2.MustCompile(`^[+-]?0[xX][0-9a-fA-F]+$`, regexp2.None)
)

// scalar converts unquoted text: numbers first, then special values
// (case-insensitively), otherwise the text itself.
func (p *Parser) scalar(s string) any {
	if n, ok := Number(s); ok {
		return n
	}
	if v, ok := p.opts.SpecialValues[strings.ToUpper(s)]; ok {
		if list, isList := v.([]any); isList {
			return append([]any{}, list...)
		}
		return v
	}
	return s
}

// Number parses decimal, leading-zero octal and 0x hex integers, and floats
// (a decimal point or an exponent). Integers that overflow become floats.
func Number(s string) (any, bool) {
	if ok, _ := hexPattern.MatchString(s); ok {
		if n, err := strconv.ParseInt(s, 0, 0); err == nil {
			return int(n), true
		}
		return nil, false
	}
	if ok, _ := decimalPattern.MatchString(s); !ok {
		return nil, false
	}
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	n, err := strconv.ParseInt(s, 0, 0)
	if err != nil {
		// 08 and 09 are not octal.
		n, err = strconv.ParseInt(s, 10, 0)
	}
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		return f, ferr == nil
	}
	return int(n), true
}

// unescapeC resolves C-style backslash escapes: \n \t \r \a \v \b \f, \xHH,
// octal \NNN, and a backslash before any other byte yields that byte.
func unescapeC(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch c = s[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'v':
			b.WriteByte('\v')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'x':
			if i+1 < len(s) && isHex(s[i+1]) {
				v := 0
				for n := 0; n < 2 && i+1 < len(s) && isHex(s[i+1]); n++ {
					i++
					v = v*16 + hexValue(s[i])
				}
				b.WriteByte(byte(v))
				continue
			}
			b.WriteByte(c)
		default:
			if c >= '0' && c <= '7' {
				v := int(c - '0')
				for n := 1; n < 3 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; n++ {
					i++
					v = v*8 + int(s[i]-'0')
				}
				b.WriteByte(byte(v))
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case c >= 'a':
		return int(c-'a') + 10
	case c >= 'A':
		return int(c-'A') + 10
	}
	return int(c - '0')
}
