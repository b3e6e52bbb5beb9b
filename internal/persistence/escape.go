package persistence

import "strings"

// escape makes s safe to store between the tab and newline delimiters of
// a persistence record: a literal backslash, tab, or newline in the
// source string is replaced with a two-byte escape sequence so it can
// never be confused with a record delimiter. Without this, a key or value
// containing '\t' or '\n' would silently corrupt the file on the next
// load (records would be mis-split on the wrong byte) — the original
// implementation has exactly this bug.
func escape(s string) string {
	if !strings.ContainsAny(s, "\\\t\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescape reverses escape. Any backslash not followed by '\\', 't', or
// 'n' is passed through verbatim rather than treated as an error, since
// the file format has no other way to signal corruption here and a
// conservative reader is preferable to a crashing one.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
