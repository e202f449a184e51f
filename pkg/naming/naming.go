// Package naming converts user supplied names into identifier forms.
package naming

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var rules = inflect.NewDefaultRuleset()

// initialisms are upper-cased as a whole in Pascal and Camel forms.
var initialisms = map[string]string{
	"api":  "API",
	"html": "HTML",
	"http": "HTTP",
	"id":   "ID",
	"ids":  "IDs",
	"ip":   "IP",
	"json": "JSON",
	"sql":  "SQL",
	"url":  "URL",
	"uuid": "UUID",
}

// Words splits s on whitespace, '_', '-', '.' and case changes.
// "HTTPServer" gives [HTTP Server] and "user_id" gives [user id].
func Words(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r) || r == '_' || r == '-' || r == '.':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func title(w string) string {
	if v, ok := initialisms[strings.ToLower(w)]; ok {
		return v
	}
	return cases.Title(language.Und).String(w)
}

// Pascal returns the exported Go identifier form, e.g. "blog post" -> "BlogPost".
func Pascal(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(title(w))
	}
	return b.String()
}

// Camel returns the unexported Go identifier form, e.g. "BlogPost" -> "blogPost".
func Camel(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(title(w))
	}
	return b.String()
}

// Snake returns the lower snake_case form.
func Snake(s string) string {
	return join(s, "_")
}

// Kebab returns the lower kebab-case form.
func Kebab(s string) string {
	return join(s, "-")
}

func join(s, sep string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

// Key is the form used to compare names for uniqueness. Two names with the
// same key would produce the same identifiers.
func Key(s string) string {
	return Snake(s)
}

// Plural pluralizes the last word of a snake_case name.
func Plural(snake string) string {
	i := strings.LastIndexByte(snake, '_')
	return snake[:i+1] + strings.ToLower(rules.Pluralize(snake[i+1:]))
}
