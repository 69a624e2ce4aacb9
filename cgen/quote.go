package cgen

import (
	"strings"
)

// QuoteString returns a C string literal whose bytes (excluding the
// terminating NUL) are exactly s.
//
// Printable ASCII is kept as is except for the quote, the backslash and
// '?', which is escaped so no trigraph can form. Every other byte becomes a
// three-digit octal escape; octal escapes stop after three digits, so a
// following digit is never absorbed.
func QuoteString(s []byte) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, c := range s {
		switch {
		case c == '"' || c == '\\' || c == '?':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			writeOctal(&b, c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteChar returns a C character constant for c.
func QuoteChar(c byte) string {
	var b strings.Builder
	b.WriteByte('\'')
	switch {
	case c == '\'' || c == '\\':
		b.WriteByte('\\')
		b.WriteByte(c)
	case c >= 0x20 && c < 0x7f:
		b.WriteByte(c)
	default:
		writeOctal(&b, c)
	}
	b.WriteByte('\'')
	return b.String()
}

func writeOctal(b *strings.Builder, c byte) {
	b.WriteByte('\\')
	b.WriteByte('0' + c>>6)
	b.WriteByte('0' + c>>3&7)
	b.WriteByte('0' + c&7)
}

// isIdentifier reports whether name is a valid C identifier.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
