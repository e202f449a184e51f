package config

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Every attribute is optional here; presence is checked by the validator so
// that all problems are reported together.
type hclDocument struct {
	Name       string      `hcl:"name,optional"`
	Database   string      `hcl:"database,optional"`
	Module     string      `hcl:"module,optional"`
	MinVersion string      `hcl:"fiberforge,optional"`
	Entities   []hclEntity `hcl:"entity,block"`
}

type hclEntity struct {
	Name          string            `hcl:"name,label"`
	Fields        []hclField        `hcl:"field,block"`
	Relationships []hclRelationship `hcl:"relationship,block"`
}

type hclField struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type,optional"`
	Required bool      `hcl:"required,optional"`
	Default  cty.Value `hcl:"default,optional"`
	Ref      string    `hcl:"ref,optional"`
}

type hclRelationship struct {
	Target      string `hcl:"target,optional"`
	Cardinality string `hcl:"cardinality,optional"`
}

// unsupportedLiteral marks an HCL default that is not a scalar.
type unsupportedLiteral string

func decodeHCL(filename string, data []byte) (Raw, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, hclError(diags)
	}

	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, hclError(diags)
	}

	raw := Raw{}
	setString(raw, KeyName, doc.Name)
	setString(raw, KeyDatabase, doc.Database)
	setString(raw, KeyModule, doc.Module)
	setString(raw, KeyMinVersion, doc.MinVersion)

	if len(doc.Entities) > 0 {
		entities := make([]any, 0, len(doc.Entities))
		for _, e := range doc.Entities {
			fields := make([]any, 0, len(e.Fields))
			for _, f := range e.Fields {
				field := map[string]any{KeyName: f.Name}
				setString(field, KeyType, f.Type)
				if f.Required {
					field[KeyRequired] = true
				}
				if !f.Default.IsNull() {
					field[KeyDefault] = ctyLiteral(f.Default)
				}
				setString(field, KeyRef, f.Ref)
				fields = append(fields, field)
			}

			rels := make([]any, 0, len(e.Relationships))
			for _, r := range e.Relationships {
				rel := map[string]any{}
				setString(rel, KeyTarget, r.Target)
				setString(rel, KeyCardinality, r.Cardinality)
				rels = append(rels, rel)
			}

			entities = append(entities, map[string]any{
				KeyName:          e.Name,
				KeyFields:        fields,
				KeyRelationships: rels,
			})
		}
		raw[KeyEntities] = entities
	}

	return raw, nil
}

func setString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func ctyLiteral(v cty.Value) any {
	if !v.IsKnown() {
		return unsupportedLiteral("unknown")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return v.True()
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i
			}
		}
		f, _ := bf.Float64()
		return f
	default:
		return unsupportedLiteral(v.Type().FriendlyName())
	}
}

func hclError(diags hcl.Diagnostics) error {
	var first *hcl.Diagnostic
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if first == nil {
			first = d
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		msgs = append(msgs, msg)
	}

	line, col := 0, 0
	if first != nil && first.Subject != nil {
		line, col = first.Subject.Start.Line, first.Subject.Start.Column
	}
	return syntaxErrorAt(line, col, strings.Join(msgs, "; "), diags)
}
