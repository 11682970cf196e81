package document

import (
	"strings"
	"unicode"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
)

// EscapeMarkdown escapes characters with a meaning inside markdown tables
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// StripUnprintable removes control characters except new lines and tabs
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
