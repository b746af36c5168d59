package openapi

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-openapi/spec"
)

const definitionsPrefix = "#/definitions/"

var (
	timeType       = reflect.TypeOf(time.Time{})
	durationType   = reflect.TypeOf(time.Duration(0))
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// schemaBuilder derives schemas from Go types, collecting named structs
// into definitions.
type schemaBuilder struct {
	definitions spec.Definitions
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{definitions: spec.Definitions{}}
}

// schemaOf returns the schema of v's type, or nil when v is nil.
func (b *schemaBuilder) schemaOf(v any) *spec.Schema {
	if v == nil {
		return nil
	}
	return b.schemaFor(reflect.TypeOf(v))
}

func (b *schemaBuilder) schemaFor(t reflect.Type) *spec.Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return spec.DateTimeProperty()
	case durationType:
		return spec.StringProperty().WithDescription("duration, e.g. 1m30s")
	case rawMessageType:
		return &spec.Schema{}
	}

	switch t.Kind() {
	case reflect.Bool:
		return spec.BoolProperty()
	case reflect.Int8:
		return spec.Int8Property()
	case reflect.Int16:
		return spec.Int16Property()
	case reflect.Int32:
		return spec.Int32Property()
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return spec.Int64Property()
	case reflect.Float32:
		return spec.Float32Property()
	case reflect.Float64:
		return spec.Float64Property()
	case reflect.String:
		return spec.StringProperty()
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return spec.StrFmtProperty("byte")
		}
		return spec.ArrayProperty(b.schemaFor(t.Elem()))
	case reflect.Map:
		return spec.MapProperty(b.schemaFor(t.Elem()))
	case reflect.Struct:
		if t.Name() == "" {
			return b.structSchema(t)
		}
		return b.definitionRef(t)
	default:
		return &spec.Schema{}
	}
}

// definitionRef registers a named struct once and returns a $ref to it. The
// placeholder entry stops recursion on self-referencing types.
func (b *schemaBuilder) definitionRef(t reflect.Type) *spec.Schema {
	name := definitionName(t)
	if _, ok := b.definitions[name]; !ok {
		b.definitions[name] = spec.Schema{}
		b.definitions[name] = *b.structSchema(t)
	}
	return spec.RefSchema(definitionsPrefix + name)
}

func (b *schemaBuilder) structSchema(t reflect.Type) *spec.Schema {
	s := &spec.Schema{}
	s.Typed("object", "")
	b.addFields(s, t)
	return s
}

func (b *schemaBuilder) addFields(s *spec.Schema, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := jsonField(f)
		if skip {
			continue
		}
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				b.addFields(s, ft)
				continue
			}
		}
		if name == "" {
			name = f.Name
		}

		prop := b.schemaFor(f.Type)
		if desc := f.Tag.Get("description"); desc != "" && len(prop.Type) > 0 {
			prop.WithDescription(desc)
		}
		s.SetProperty(name, *prop)
		if isRequired(f) {
			s.AddRequired(name)
		}
	}
}

// jsonField reads the field name from the json tag and reports whether the
// field is skipped.
func jsonField(f reflect.StructField) (name string, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ = strings.Cut(tag, ",")
	return name, false
}

// isRequired reports a "required" rule in the validate or binding tag.
func isRequired(f reflect.StructField) bool {
	for _, key := range []string{"validate", "binding"} {
		for _, rule := range strings.Split(f.Tag.Get(key), ",") {
			if rule == "required" {
				return true
			}
		}
	}
	return false
}

// definitionName is the type name with generic arguments flattened:
// "Page[github.com/acme/api.Item]" becomes "Page_Item".
func definitionName(t reflect.Type) string {
	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}
	base := name[:open]
	args := strings.Split(strings.TrimSuffix(name[open+1:], "]"), ",")
	for i, arg := range args {
		if idx := strings.LastIndexAny(arg, "./"); idx >= 0 {
			arg = arg[idx+1:]
		}
		args[i] = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, arg)
	}
	return base + "_" + strings.Join(args, "_")
}
