package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const relPrefix = "rel."

// decodeText parses the line-oriented key=value format:
//
//	name = Blog
//	database = postgres
//
//	[Post]
//	title = string, required, default="Untitled"
//	author = reference, ref=User
//	rel.User = one-to-many
func decodeText(_ string, data []byte) (Raw, error) {
	raw := Raw{}
	var (
		entities []any
		current  map[string]any
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';' {
			continue
		}
		indent := strings.Index(line, trimmed) + 1

		if trimmed[0] == '[' {
			if !strings.HasSuffix(trimmed, "]") {
				return nil, syntaxErrorAt(lineNo, indent+len(trimmed), "unterminated section header", nil)
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, syntaxErrorAt(lineNo, indent, "empty section name", nil)
			}
			current = map[string]any{
				KeyName:          name,
				KeyFields:        []any{},
				KeyRelationships: []any{},
			}
			entities = append(entities, current)
			continue
		}

		eq := strings.IndexByte(trimmed, '=')
		if eq < 0 {
			return nil, syntaxErrorAt(lineNo, indent, fmt.Sprintf("expected key = value, got %q", trimmed), nil)
		}
		key := strings.TrimSpace(trimmed[:eq])
		if key == "" {
			return nil, syntaxErrorAt(lineNo, indent, "missing key before '='", nil)
		}
		value := strings.TrimSpace(trimmed[eq+1:])
		valueCol := indent + eq + 1 + (len(trimmed[eq+1:]) - len(strings.TrimLeft(trimmed[eq+1:], " \t")))

		if current == nil {
			raw[key] = literal(value)
			continue
		}

		if target, ok := strings.CutPrefix(key, relPrefix); ok {
			current[KeyRelationships] = append(current[KeyRelationships].([]any), map[string]any{
				KeyTarget:      strings.TrimSpace(target),
				KeyCardinality: value,
			})
			continue
		}

		field, err := parseFieldSpec(key, value)
		if err != nil {
			return nil, syntaxErrorAt(lineNo, valueCol+err.offset, err.msg, nil)
		}
		current[KeyFields] = append(current[KeyFields].([]any), field)
	}
	if err := sc.Err(); err != nil {
		return nil, syntaxErrorAt(lineNo+1, 0, err.Error(), err)
	}

	if entities != nil {
		raw[KeyEntities] = entities
	}
	return raw, nil
}

type textError struct {
	offset int
	msg    string
}

// parseFieldSpec parses "type[, required][, default=<literal>][, ref=<Entity>]".
func parseFieldSpec(name, value string) (map[string]any, *textError) {
	field := map[string]any{KeyName: name}

	parts, err := splitOptions(value)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 || parts[0].text == "" {
		return nil, &textError{msg: fmt.Sprintf("field %q has no type", name)}
	}
	field[KeyType] = parts[0].text

	for _, part := range parts[1:] {
		k, v, hasValue := strings.Cut(part.text, "=")
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch {
		case k == KeyRequired && !hasValue:
			field[KeyRequired] = true
		case k == "optional" && !hasValue:
			field[KeyRequired] = false
		case k == KeyDefault && hasValue:
			field[KeyDefault] = literal(v)
		case k == KeyRef && hasValue:
			field[KeyRef] = v
		default:
			return nil, &textError{offset: part.offset, msg: fmt.Sprintf("unknown field option %q", part.text)}
		}
	}
	return field, nil
}

type option struct {
	text   string
	offset int
}

// splitOptions splits on commas outside double quotes.
func splitOptions(s string) ([]option, *textError) {
	var (
		out     []option
		start   int
		inQuote bool
		escaped bool
	)
	flush := func(end int) {
		seg := s[start:end]
		lead := len(seg) - len(strings.TrimLeft(seg, " \t"))
		out = append(out, option{text: strings.TrimSpace(seg), offset: start + lead})
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			flush(i)
			start = i + 1
		}
	}
	if inQuote {
		return nil, &textError{offset: start, msg: "unterminated string literal"}
	}
	flush(len(s))
	return out, nil
}

// literal decodes JSON scalars and falls back to the raw text.
func literal(s string) any {
	if s == "" {
		return s
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	switch v.(type) {
	case string, bool, json.Number, nil:
		return v
	default:
		return s
	}
}
