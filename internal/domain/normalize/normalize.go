// Package normalize strips language noise from code before it is vectorized.
package normalize

import "strings"

// Normalizer rewrites code text into its canonical form.
type Normalizer interface {
	Normalize(code string) string
}

// Func adapts a plain function to Normalizer.
type Func func(string) string

// Normalize calls f.
func (f Func) Normalize(code string) string { return f(code) }

// Supported languages.
const (
	LangPython = "python"
	LangSQL    = "sql"
)

// Identity leaves code untouched.
var Identity Normalizer = Func(func(code string) string { return code })

// For returns the normalizer for language. The boolean is false when the
// language is unknown and Identity was returned instead.
func For(language string) (Normalizer, bool) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case LangPython:
		return Func(Python), true
	case LangSQL:
		return Func(SQL), true
	case "":
		return Identity, true
	default:
		return Identity, false
	}
}
