package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olimci/fiberforge/pkg/config"
	"github.com/olimci/fiberforge/pkg/naming"
	"github.com/olimci/fiberforge/pkg/version"
)

var (
	projectNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	identRe       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	moduleRe      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._~/-]*$`)
)

const (
	maxNameLength = 64
	// reservedField is generated as the primary key of every model.
	reservedField = "id"
)

// reservedMethods are generated on every SQL model and cannot double as
// struct fields.
var reservedMethods = map[string]bool{"Values": true, "Pointers": true}

// DateLayouts are the accepted layouts for date defaults.
var DateLayouts = []string{time.RFC3339, time.DateOnly}

var (
	topLevelKeys     = keySet(config.KeyName, config.KeyDatabase, config.KeyModule, config.KeyMinVersion, config.KeyEntities)
	entityKeys       = keySet(config.KeyName, config.KeyFields, config.KeyRelationships)
	fieldKeys        = keySet(config.KeyName, config.KeyType, config.KeyRequired, config.KeyDefault, config.KeyRef)
	relationshipKeys = keySet(config.KeyTarget, config.KeyTargetEntity, config.KeyCardinality)
)

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// Validate checks raw and builds a Project. On failure the error is a
// ValidationErrors holding every problem in the document.
func Validate(raw config.Raw) (*Project, error) {
	v := &validator{
		entityIndex: make(map[string]*Entity),
		keys:        make(map[string]*Entity),
	}
	p := v.project(raw)
	v.resolve(p.Database)

	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return p, nil
}

type pendingRelationship struct {
	path   string
	owner  *Entity
	target string
	card   Cardinality
}

type pendingRef struct {
	path  string
	field *Field
}

type validator struct {
	errs ValidationErrors

	// entityIndex is keyed by the lower-cased name, keys by naming.Key.
	entityIndex map[string]*Entity
	keys        map[string]*Entity
	rels        []pendingRelationship
	refs        []pendingRef
}

func (v *validator) report(kind Kind, path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) unknownKeys(m map[string]any, allowed map[string]struct{}, path string) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if _, ok := allowed[k]; !ok {
			v.report(UnknownKey, join(path, k), "unknown key %q", k)
		}
	}
}

func (v *validator) project(raw config.Raw) *Project {
	p := &Project{}
	v.unknownKeys(raw, topLevelKeys, "")

	if name, ok := v.requiredString(raw, config.KeyName, ""); ok {
		if !projectNameRe.MatchString(name) || len(name) > maxNameLength {
			v.report(InvalidName, config.KeyName, "project name %q must start with a letter or digit and contain only letters, digits, '.', '_' or '-' (max %d characters)", name, maxNameLength)
		} else {
			p.Name = name
		}
	}

	if db, ok := v.requiredString(raw, config.KeyDatabase, ""); ok {
		if d, ok := ParseDatabase(db); ok {
			p.Database = d
		} else {
			v.report(UnsupportedDatabase, config.KeyDatabase, "database %q is not supported (expected one of %s)", db, oneOf(Databases()))
		}
	}

	if mod, ok := v.optionalString(raw, config.KeyModule, ""); ok {
		if !moduleRe.MatchString(mod) || strings.Contains(mod, "//") || strings.HasSuffix(mod, "/") {
			v.report(MalformedValue, config.KeyModule, "module path %q is not a valid Go module path", mod)
		} else {
			p.Module = mod
		}
	}
	if p.Module == "" && p.Name != "" {
		p.Module = naming.Kebab(p.Name)
	}

	v.minVersion(raw, p)

	if val, ok := raw[config.KeyEntities]; ok && val != nil {
		list, ok := val.([]any)
		if !ok {
			v.report(MalformedValue, config.KeyEntities, "expected a list of entities, got %s", describe(val))
		} else {
			for i, item := range list {
				if e := v.entity(item, fmt.Sprintf("%s[%d]", config.KeyEntities, i)); e != nil {
					p.Entities = append(p.Entities, e)
				}
			}
		}
	}

	return p
}

func (v *validator) minVersion(raw config.Raw, p *Project) {
	val, ok := raw[config.KeyMinVersion]
	if !ok || val == nil {
		return
	}

	var s string
	switch t := val.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case int, int64, float64:
		s = fmt.Sprint(t)
	default:
		v.report(MalformedValue, config.KeyMinVersion, "expected a version string, got %s", describe(val))
		return
	}

	want, err := version.Parse(s)
	if err != nil {
		v.report(MalformedValue, config.KeyMinVersion, "%v", err)
		return
	}
	if version.Current().Less(want) {
		v.report(IncompatibleVersion, config.KeyMinVersion, "config requires fiberforge %s or newer, this is %s", want, version.Current())
		return
	}
	p.MinVersion = want.String()
}

func (v *validator) entity(item any, path string) *Entity {
	m, ok := item.(map[string]any)
	if !ok {
		v.report(MalformedValue, path, "expected an entity object, got %s", describe(item))
		return nil
	}
	v.unknownKeys(m, entityKeys, path)

	e := &Entity{}
	valid := false
	if name, ok := v.requiredString(m, config.KeyName, path); ok {
		namePath := join(path, config.KeyName)
		fold, key := strings.ToLower(name), naming.Key(name)
		switch {
		case !identRe.MatchString(name) || len(name) > maxNameLength:
			v.report(InvalidName, namePath, "entity name %q must start with a letter and contain only letters, digits or '_'", name)
		case v.entityIndex[fold] != nil:
			v.report(DuplicateEntity, namePath, "entity %q is already declared as %q", name, v.entityIndex[fold].Name)
		case v.keys[key] != nil:
			v.report(DuplicateEntity, namePath, "entity %q generates the same identifiers as %q", name, v.keys[key].Name)
		default:
			e.Name = name
			v.entityIndex[fold] = e
			v.keys[key] = e
			valid = true
		}
	}

	v.fields(e, m, path)
	v.relationships(e, m, path)

	if !valid {
		return nil
	}
	return e
}

func (v *validator) fields(e *Entity, m map[string]any, path string) {
	fieldsPath := join(path, config.KeyFields)
	val, ok := m[config.KeyFields]
	if !ok || val == nil {
		v.report(EmptyEntity, fieldsPath, "entity %s declares no fields", quoteOr(e.Name, path))
		return
	}
	list, ok := val.([]any)
	if !ok {
		v.report(MalformedValue, fieldsPath, "expected a list of fields, got %s", describe(val))
		return
	}
	if len(list) == 0 {
		v.report(EmptyEntity, fieldsPath, "entity %s declares no fields", quoteOr(e.Name, path))
		return
	}

	seen := make(map[string]string)
	for i, item := range list {
		if f := v.field(item, fmt.Sprintf("%s[%d]", fieldsPath, i), seen); f != nil {
			e.Fields = append(e.Fields, f)
		}
	}
}

func (v *validator) field(item any, path string, seen map[string]string) *Field {
	m, ok := item.(map[string]any)
	if !ok {
		v.report(MalformedValue, path, "expected a field object, got %s", describe(item))
		return nil
	}
	v.unknownKeys(m, fieldKeys, path)

	f := &Field{}
	valid := true

	if name, ok := v.requiredString(m, config.KeyName, path); ok {
		namePath := join(path, config.KeyName)
		fold, key := strings.ToLower(name), naming.Key(name)
		switch {
		case !identRe.MatchString(name) || len(name) > maxNameLength:
			v.report(InvalidName, namePath, "field name %q must start with a letter and contain only letters, digits or '_'", name)
			valid = false
		case key == reservedField:
			v.report(ReservedField, namePath, "field name %q is reserved for the generated primary key", name)
			valid = false
		case reservedMethods[naming.Pascal(name)]:
			v.report(ReservedField, namePath, "field name %q clashes with the generated %s method", name, naming.Pascal(name))
			valid = false
		case seen[fold] != "":
			v.report(DuplicateField, namePath, "field %q is already declared as %q", name, seen[fold])
			valid = false
		case seen[key] != "":
			v.report(DuplicateField, namePath, "field %q generates the same column as %q", name, seen[key])
			valid = false
		default:
			f.Name = name
			seen[fold] = name
			seen[key] = name
		}
	} else {
		valid = false
	}

	typeKnown := false
	if typ, ok := v.requiredString(m, config.KeyType, path); ok {
		if t, ok := ParseFieldType(typ); ok {
			f.Type = t
			typeKnown = true
		} else {
			v.report(UnknownFieldType, join(path, config.KeyType), "unknown field type %q (expected one of %s)", typ, oneOf(FieldTypes()))
			valid = false
		}
	} else {
		valid = false
	}

	if val, ok := m[config.KeyRequired]; ok && val != nil {
		if b, ok := val.(bool); ok {
			f.Required = b
		} else {
			v.report(MalformedValue, join(path, config.KeyRequired), "expected true or false, got %s", describe(val))
			valid = false
		}
	}

	if val, ok := m[config.KeyDefault]; ok && val != nil && typeKnown {
		def, err := defaultValue(f.Type, val)
		if err != nil {
			v.report(InvalidDefault, join(path, config.KeyDefault), "%v", err)
			valid = false
		} else {
			f.Default = def
		}
	}

	if ref, ok := v.optionalString(m, config.KeyRef, path); ok {
		refPath := join(path, config.KeyRef)
		switch {
		case typeKnown && f.Type != Reference:
			v.report(MalformedValue, refPath, "ref is only allowed on reference fields, field type is %s", f.Type)
			valid = false
		default:
			f.Ref = ref
			v.refs = append(v.refs, pendingRef{path: refPath, field: f})
		}
	}

	if !valid {
		return nil
	}
	return f
}

func (v *validator) relationships(e *Entity, m map[string]any, path string) {
	relsPath := join(path, config.KeyRelationships)
	val, ok := m[config.KeyRelationships]
	if !ok || val == nil {
		return
	}
	list, ok := val.([]any)
	if !ok {
		v.report(MalformedValue, relsPath, "expected a list of relationships, got %s", describe(val))
		return
	}

	for i, item := range list {
		itemPath := fmt.Sprintf("%s[%d]", relsPath, i)
		rm, ok := item.(map[string]any)
		if !ok {
			v.report(MalformedValue, itemPath, "expected a relationship object, got %s", describe(item))
			continue
		}
		v.unknownKeys(rm, relationshipKeys, itemPath)

		target, targetOK := v.relationshipTarget(rm, itemPath)

		var card Cardinality
		cardOK := false
		if c, ok := v.requiredString(rm, config.KeyCardinality, itemPath); ok {
			if card, cardOK = ParseCardinality(c); !cardOK {
				v.report(UnknownCardinality, join(itemPath, config.KeyCardinality), "unknown cardinality %q (expected one of %s)", c, oneOf(Cardinalities()))
			}
		}

		if targetOK && cardOK {
			v.rels = append(v.rels, pendingRelationship{path: itemPath, owner: e, target: target, card: card})
		}
	}
}

func (v *validator) relationshipTarget(m map[string]any, path string) (string, bool) {
	target, hasTarget := v.optionalString(m, config.KeyTarget, path)
	alias, hasAlias := v.optionalString(m, config.KeyTargetEntity, path)

	switch {
	case hasTarget && hasAlias && !strings.EqualFold(target, alias):
		v.report(MalformedValue, join(path, config.KeyTargetEntity), "target %q and targetEntity %q disagree", target, alias)
		return "", false
	case hasTarget:
		return target, true
	case hasAlias:
		return alias, true
	}

	_, t := m[config.KeyTarget]
	_, a := m[config.KeyTargetEntity]
	if !t && !a {
		v.report(MissingField, join(path, config.KeyTarget), "relationship has no target")
	}
	return "", false
}

// resolve runs after every entity is known so forward references work.
func (v *validator) resolve(db Database) {
	type relKey struct {
		owner  *Entity
		target string
	}
	seen := make(map[relKey]Cardinality)
	columns := make(map[*Entity]map[string]string)

	for _, r := range v.rels {
		targetPath := join(r.path, config.KeyTarget)
		target := v.entityIndex[strings.ToLower(r.target)]
		if target == nil {
			v.report(DanglingReference, targetPath, "relationship target %q is not a declared entity", r.target)
			continue
		}
		// The owner may have been rejected; its errors are already reported.
		if r.owner.Name == "" {
			continue
		}

		key := relKey{owner: r.owner, target: target.Name}
		if prev, ok := seen[key]; ok {
			if prev != r.card {
				v.report(ConflictingRelationship, join(r.path, config.KeyCardinality), "entity %q already relates to %q as %s, cannot also be %s", r.owner.Name, target.Name, prev, r.card)
			}
			continue
		}
		seen[key] = r.card

		if on, col := RelationshipColumn(db, r.owner, target, r.card); col != "" {
			if columns[on] == nil {
				columns[on] = fieldColumns(on)
			}
			if prev, ok := columns[on][col]; ok {
				v.report(ConflictingRelationship, targetPath, "%s relationship to %q adds column %q to entity %q, which is already used by %s", r.card, target.Name, col, on.Name, prev)
				continue
			}
			columns[on][col] = fmt.Sprintf("the %s relationship from %q to %q", r.card, r.owner.Name, target.Name)
		}
		r.owner.Relationships = append(r.owner.Relationships, Relationship{Target: target.Name, Cardinality: r.card})
	}

	for _, r := range v.refs {
		target := v.entityIndex[strings.ToLower(r.field.Ref)]
		if target == nil {
			v.report(DanglingReference, r.path, "referenced entity %q is not declared", r.field.Ref)
			continue
		}
		r.field.Ref = target.Name
	}
}

// RelationshipColumn returns the foreign key column a relationship adds on
// db and the entity that holds it. Many-to-many relationships on SQL
// databases use a join table and add no column.
func RelationshipColumn(db Database, owner, target *Entity, c Cardinality) (*Entity, string) {
	switch {
	case db == MongoDB && c == OneToOne:
		return owner, naming.Key(target.Name) + "_id"
	case db == MongoDB:
		return owner, naming.Key(target.Name) + "_ids"
	case !db.SQL():
		return nil, ""
	case c == OneToOne:
		return owner, naming.Key(target.Name) + "_id"
	case c == OneToMany:
		return target, naming.Key(owner.Name) + "_id"
	}
	return nil, ""
}

func fieldColumns(e *Entity) map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[naming.Key(f.Name)] = fmt.Sprintf("field %q", f.Name)
	}
	return m
}

func oneOf[T ~string](values []T) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}

func (v *validator) requiredString(m map[string]any, key, path string) (string, bool) {
	val, ok := m[key]
	if !ok || val == nil {
		v.report(MissingField, join(path, key), "%s is required", key)
		return "", false
	}
	s, ok := val.(string)
	if !ok {
		v.report(MalformedValue, join(path, key), "expected a string, got %s", describe(val))
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		v.report(MissingField, join(path, key), "%s must not be empty", key)
		return "", false
	}
	return s, true
}

// optionalString reports a MalformedValue for non-string values and treats
// blank strings as absent.
func (v *validator) optionalString(m map[string]any, key, path string) (string, bool) {
	val, ok := m[key]
	if !ok || val == nil {
		return "", false
	}
	s, ok := val.(string)
	if !ok {
		v.report(MalformedValue, join(path, key), "expected a string, got %s", describe(val))
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func defaultValue(t FieldType, val any) (any, error) {
	switch t {
	case String:
		if s, ok := val.(string); ok {
			return s, nil
		}
	case Int:
		if i, ok := toInt(val); ok {
			return i, nil
		}
	case Float:
		if f, ok := toFloat(val); ok {
			return f, nil
		}
	case Bool:
		if b, ok := val.(bool); ok {
			return b, nil
		}
	case Date:
		if ts, ok := val.(time.Time); ok {
			return ts.Format(time.RFC3339Nano), nil
		}
		if s, ok := val.(string); ok {
			for _, layout := range DateLayouts {
				if _, err := time.Parse(layout, s); err == nil {
					return s, nil
				}
			}
			return nil, fmt.Errorf("default %q is not a date (expected YYYY-MM-DD or RFC 3339)", s)
		}
	case Reference:
		return nil, fmt.Errorf("reference fields cannot have a default")
	}
	return nil, fmt.Errorf("default %s does not match field type %s", describe(val), t)
}

func toInt(val any) (int64, bool) {
	switch n := val.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func describe(val any) string {
	switch t := val.(type) {
	case string:
		return fmt.Sprintf("string %q", t)
	case bool:
		return fmt.Sprintf("bool %t", t)
	case json.Number, int, int64, float64:
		return fmt.Sprintf("number %v", t)
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", val)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func quoteOr(name, path string) string {
	if name != "" {
		return strconv.Quote(name)
	}
	return "at " + path
}
