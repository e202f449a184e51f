package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type decoder func(filename string, data []byte) (Raw, error)

var decoders = map[string]decoder{
	".json": decodeJSON,
	".txt":  decodeText,
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".toml": decodeTOML,
	".hcl":  decodeHCL,
}

func decodeJSON(_ string, data []byte) (Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, jsonError(data, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			line, col := position(data, int(dec.InputOffset()))
			return nil, syntaxErrorAt(line, col, "unexpected extra content after JSON document", nil)
		}
		return nil, jsonError(data, err)
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return nil, syntaxErrorAt(1, 1, "top-level value must be an object", nil)
	}
	return toRaw(m), nil
}

func jsonError(data []byte, err error) error {
	var serr *json.SyntaxError
	if errors.As(err, &serr) {
		line, col := position(data, int(serr.Offset))
		return syntaxErrorAt(line, col, serr.Error(), err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		line, col := position(data, len(data))
		return syntaxErrorAt(line, col, "unexpected end of JSON input", err)
	}
	return syntaxErrorAt(0, 0, err.Error(), err)
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func decodeYAML(_ string, data []byte) (Raw, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return Raw{}, nil
		}
		return nil, yamlError(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, syntaxErrorAt(0, 0, "unexpected extra YAML document", nil)
		}
		return nil, yamlError(err)
	}
	return toRaw(doc), nil
}

func yamlError(err error) error {
	line := 0
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return syntaxErrorAt(line, 0, err.Error(), err)
}

func decodeTOML(_ string, data []byte) (Raw, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			_, col := position(data, perr.Position.Start+1)
			return nil, syntaxErrorAt(perr.Position.Line, col, perr.Message, err)
		}
		return nil, syntaxErrorAt(0, 0, err.Error(), err)
	}
	return toRaw(doc), nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int) (int, int) {
	if offset > len(data) {
		offset = len(data)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := data[:offset]
	line := bytes.Count(prefix, []byte{'\n'}) + 1
	col := offset - (bytes.LastIndexByte(prefix, '\n') + 1)
	if col < 1 {
		col = 1
	}
	return line, col
}

func toRaw(m map[string]any) Raw {
	out := make(Raw, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// normalize flattens the container types the decoders produce into
// map[string]any and []any, and native dates into strings.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = normalize(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprint(k)] = normalize(v)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = normalize(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = normalize(v)
		}
		return out
	case time.Time:
		return dateLiteral(t)
	default:
		return v
	}
}

// dateLiteral turns a native TOML or YAML date into the string form date
// defaults are written in.
func dateLiteral(t time.Time) string {
	// TOML local values carry these zone names.
	switch name, _ := t.Zone(); name {
	case "date-local":
		return t.Format(time.DateOnly)
	case "datetime-local":
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t.Format(time.RFC3339Nano)
}
