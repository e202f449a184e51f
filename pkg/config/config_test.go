package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func entities(t *testing.T, raw Raw) []any {
	t.Helper()
	list, ok := raw[KeyEntities].([]any)
	require.True(t, ok, "entities should decode to []any, got %T", raw[KeyEntities])
	return list
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "blog.json",
			content: `{
  "name": "Blog",
  "database": "postgres",
  "entities": [
    {"name": "Post", "fields": [{"name": "title", "type": "string", "required": true}],
     "relationships": [{"target": "User", "cardinality": "one-to-many"}]}
  ]
}`,
		},
		{
			name: "yaml",
			file: "blog.yaml",
			content: `name: Blog
database: postgres
entities:
  - name: Post
    fields:
      - name: title
        type: string
        required: true
    relationships:
      - target: User
        cardinality: one-to-many
`,
		},
		{
			name: "toml",
			file: "blog.toml",
			content: `name = "Blog"
database = "postgres"

[[entities]]
name = "Post"

[[entities.fields]]
name = "title"
type = "string"
required = true

[[entities.relationships]]
target = "User"
cardinality = "one-to-many"
`,
		},
		{
			name: "hcl",
			file: "blog.hcl",
			content: `name     = "Blog"
database = "postgres"

entity "Post" {
  field "title" {
    type     = "string"
    required = true
  }
  relationship {
    target      = "User"
    cardinality = "one-to-many"
  }
}
`,
		},
		{
			name: "txt",
			file: "blog.txt",
			content: `# blog
name = Blog
database = postgres

[Post]
title = string, required
rel.User = one-to-many
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "Blog", raw[KeyName])
			assert.Equal(t, "postgres", raw[KeyDatabase])

			list := entities(t, raw)
			require.Len(t, list, 1)
			post := list[0].(map[string]any)
			assert.Equal(t, "Post", post[KeyName])

			fields := post[KeyFields].([]any)
			require.Len(t, fields, 1)
			title := fields[0].(map[string]any)
			assert.Equal(t, "title", title[KeyName])
			assert.Equal(t, "string", title[KeyType])
			assert.Equal(t, true, title[KeyRequired])

			rels := post[KeyRelationships].([]any)
			require.Len(t, rels, 1)
			rel := rels[0].(map[string]any)
			assert.Equal(t, "User", rel[KeyTarget])
			assert.Equal(t, "one-to-many", rel[KeyCardinality])
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, NotFound, cerr.Kind)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := Load(writeFile(t, "blog.ini", "name=Blog"))
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, UnsupportedFormat, cerr.Kind)
	})

	t.Run("directory is unreadable", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "conf.json")
		require.NoError(t, os.Mkdir(dir, 0o755))
		_, err := Load(dir)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, Unreadable, cerr.Kind)
	})
}

func TestJSONSyntaxPosition(t *testing.T) {
	_, err := Decode("bad.json", []byte("{\n  \"name\": ,\n}"))

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, SyntaxError, cerr.Kind)
	assert.Equal(t, "bad.json", cerr.Path)
	assert.Equal(t, 2, cerr.Line)
	assert.Equal(t, 11, cerr.Column)
	assert.Contains(t, cerr.Error(), "bad.json:2:11")
}

func TestJSONStrictness(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"trailing document", `{"name":"a"} {"name":"b"}`},
		{"top-level array", `[1, 2]`},
		{"truncated", `{"name": "a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("x.json", []byte(tt.data))
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, SyntaxError, cerr.Kind)
			assert.Positive(t, cerr.Line)
		})
	}
}

func TestJSONKeepsNumbers(t *testing.T) {
	raw, err := Decode("x.json", []byte(`{"n": 3}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), raw["n"])
}

func TestTextLiterals(t *testing.T) {
	raw, err := Decode("x.txt", []byte(`name = Shop
[Item]
label = string, default="a, b"
count = int, default=42
price = float, default=9.5
active = bool, required, default=true
owner = reference, ref=User
note = string, default=plain words
`))
	require.NoError(t, err)

	fields := entities(t, raw)[0].(map[string]any)[KeyFields].([]any)
	require.Len(t, fields, 6)

	get := func(i int) map[string]any { return fields[i].(map[string]any) }
	assert.Equal(t, "a, b", get(0)[KeyDefault])
	assert.Equal(t, json.Number("42"), get(1)[KeyDefault])
	assert.Equal(t, json.Number("9.5"), get(2)[KeyDefault])
	assert.Equal(t, true, get(3)[KeyDefault])
	assert.Equal(t, true, get(3)[KeyRequired])
	assert.Equal(t, "User", get(4)[KeyRef])
	assert.Equal(t, "plain words", get(5)[KeyDefault])
}

func TestTextSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
	}{
		{"missing equals", "name = a\njunk line\n", 2},
		{"unterminated section", "[Post\n", 1},
		{"empty section", "[ ]\n", 1},
		{"unknown option", "[Post]\ntitle = string, unique\n", 2},
		{"unterminated quote", "[Post]\ntitle = string, default=\"abc\n", 2},
		{"no type", "[Post]\ntitle =\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("x.txt", []byte(tt.data))
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, SyntaxError, cerr.Kind)
			assert.Equal(t, tt.line, cerr.Line)
		})
	}
}

func TestHCLSyntaxPosition(t *testing.T) {
	_, err := Decode("x.hcl", []byte("name = \"a\"\nentity \"Post\" {\n  field \"t\" {\n"))
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, SyntaxError, cerr.Kind)
	assert.Positive(t, cerr.Line)
}

func TestYAMLSyntaxLine(t *testing.T) {
	_, err := Decode("x.yaml", []byte("name: Blog\ndatabase: [postgres\n"))
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, SyntaxError, cerr.Kind)
	assert.True(t, errors.Unwrap(cerr) != nil)
}

func TestNativeDates(t *testing.T) {
	tests := []struct {
		name string
		file string
		doc  string
		want string
	}{
		{
			name: "toml local date",
			file: "x.toml",
			doc:  "name = \"Blog\"\n[[entities]]\nname = \"Post\"\n[[entities.fields]]\nname = \"published\"\ntype = \"date\"\ndefault = 2024-01-02\n",
			want: "2024-01-02",
		},
		{
			name: "toml offset datetime",
			file: "x.toml",
			doc:  "name = \"Blog\"\n[[entities]]\nname = \"Post\"\n[[entities.fields]]\nname = \"published\"\ntype = \"date\"\ndefault = 2024-01-02T10:30:00+02:00\n",
			want: "2024-01-02T10:30:00+02:00",
		},
		{
			name: "toml local datetime",
			file: "x.toml",
			doc:  "name = \"Blog\"\n[[entities]]\nname = \"Post\"\n[[entities.fields]]\nname = \"published\"\ntype = \"date\"\ndefault = 2024-01-02T10:30:00\n",
			want: "2024-01-02T10:30:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Decode(tt.file, []byte(tt.doc))
			require.NoError(t, err)

			post, ok := entities(t, raw)[0].(map[string]any)
			require.True(t, ok)
			fields, ok := post[KeyFields].([]any)
			require.True(t, ok)
			field, ok := fields[0].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.want, field[KeyDefault])
		})
	}
}

func TestEmptyDocuments(t *testing.T) {
	for _, name := range []string{"x.yaml", "x.txt", "x.toml"} {
		raw, err := Decode(name, nil)
		require.NoError(t, err, name)
		assert.Empty(t, raw, name)
	}
}
