package normalize

import "strings"

// Python removes comments and statement-level string literals (docstrings),
// then drops lines left blank. Strings used as values are kept verbatim.
func Python(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	depth := 0
	lineStart := true
	col := 0

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '#':
			j := strings.IndexByte(src[i:], '\n')
			if j < 0 {
				i = len(src)
			} else {
				i += j
			}
			continue
		case c == '\n':
			b.WriteByte(c)
			i++
			col = 0
			if depth == 0 {
				lineStart = true
			}
			continue
		case c == ' ' || c == '\t' || c == '\r':
			b.WriteByte(c)
			i++
			col++
			continue
		case c == '\\' && i+1 < len(src) && src[i+1] == '\n':
			b.WriteString("\\\n")
			i += 2
			col = 0
			continue
		}

		start := i
		if isIdentStart(c) {
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			word := src[i:j]
			if !(j < len(src) && isQuote(src[j]) && isStringPrefix(word)) {
				b.WriteString(word)
				col += j - i
				i = j
				lineStart = false
				continue
			}
			i = j
		}

		if isQuote(src[i]) {
			end := stringEnd(src, i)
			lit := src[start:end]
			docstring := col == 0 || (lineStart && depth == 0)
			if !docstring {
				b.WriteString(lit)
			}
			if k := strings.LastIndexByte(lit, '\n'); k >= 0 {
				col = len(lit) - k - 1
			} else {
				col += len(lit)
			}
			i = end
			lineStart = false
			continue
		}

		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
		b.WriteByte(c)
		i++
		col++
		lineStart = false
	}

	return dropBlankLines(b.String())
}

// stringEnd returns the index just past the string literal whose opening
// quote is at i. Unterminated literals end at the line (or input) end.
func stringEnd(src string, i int) int {
	q := src[i]
	if i+2 < len(src) && src[i+1] == q && src[i+2] == q {
		for j := i + 3; j < len(src); j++ {
			if src[j] == '\\' {
				j++
				continue
			}
			if j+2 < len(src) && src[j] == q && src[j+1] == q && src[j+2] == q {
				return j + 3
			}
		}
		return len(src)
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '\n':
			return j
		case q:
			return j + 1
		}
	}
	return len(src)
}

func dropBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func isQuote(c byte) bool { return c == '"' || c == '\'' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }

func isStringPrefix(w string) bool {
	if len(w) > 2 {
		return false
	}
	for i := 0; i < len(w); i++ {
		switch w[i] {
		case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
		default:
			return false
		}
	}
	return true
}
