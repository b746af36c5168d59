package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-openapi/spec"

	apperrors "github.com/kbukum/mywebapi/errors"
)

const (
	// DefaultDocumentName is the document served at /swagger/v1/swagger.json.
	DefaultDocumentName = "v1"
	// SecuritySchemeName names the bearer token scheme in the document.
	SecuritySchemeName = "Bearer"
)

// Info is the document's info block.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Option configures a Generator.
type Option func(*Generator)

// WithInfo sets the title, version and description.
func WithInfo(info Info) Option {
	return func(g *Generator) {
		if info.Title != "" {
			g.info.Title = info.Title
		}
		if info.Version != "" {
			g.info.Version = info.Version
		}
		if info.Description != "" {
			g.info.Description = info.Description
		}
	}
}

// WithDocumentName sets the document name used in the schema URL and for
// the swag registration.
func WithDocumentName(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.name = name
		}
	}
}

// Generator builds a Swagger 2.0 document from the endpoints recorded by an
// Explorer.
type Generator struct {
	explorer *Explorer
	info     Info
	name     string

	mu          sync.Mutex
	cached      []byte
	cachedAt    uint64
	cachedValid bool
}

// NewGenerator creates a generator over explorer.
func NewGenerator(explorer *Explorer, opts ...Option) *Generator {
	g := &Generator{
		explorer: explorer,
		info:     Info{Title: "API", Version: "v1"},
		name:     DefaultDocumentName,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the document name.
func (g *Generator) Name() string { return g.name }

// Info returns the document's info block.
func (g *Generator) Info() Info { return g.info }

// Document builds the document from the current endpoints.
func (g *Generator) Document() *spec.Swagger {
	b := newSchemaBuilder()
	errorRef := b.schemaOf(apperrors.ErrorResponse{})

	doc := &spec.Swagger{SwaggerProps: spec.SwaggerProps{
		Swagger: "2.0",
		Info: &spec.Info{InfoProps: spec.InfoProps{
			Title:       g.info.Title,
			Version:     g.info.Version,
			Description: g.info.Description,
		}},
		BasePath: "/",
		Consumes: []string{"application/json"},
		Produces: []string{"application/json"},
		Paths:    &spec.Paths{Paths: map[string]spec.PathItem{}},
		SecurityDefinitions: spec.SecurityDefinitions{
			SecuritySchemeName: bearerScheme(),
		},
	}}

	for _, ep := range g.explorer.Endpoints() {
		item := doc.Paths.Paths[ep.Path]
		op := g.operation(b, ep, errorRef)
		if !setOperation(&item, ep.Method, op) {
			continue
		}
		doc.Paths.Paths[ep.Path] = item
	}
	doc.Definitions = b.definitions
	return doc
}

// JSON renders the document. The rendering is cached until another
// endpoint is recorded.
func (g *Generator) JSON() ([]byte, error) {
	version := g.explorer.Version()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cachedValid && g.cachedAt == version {
		return g.cached, nil
	}
	data, err := json.Marshal(g.Document())
	if err != nil {
		return nil, err
	}
	g.cached, g.cachedAt, g.cachedValid = data, version, true
	return data, nil
}

// ReadDoc renders the document for swaggo/swag.
func (g *Generator) ReadDoc() string {
	data, err := g.JSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

func bearerScheme() *spec.SecurityScheme {
	s := spec.APIKeyAuth("Authorization", "header")
	s.Description = `JWT bearer token, sent as "Authorization: Bearer <token>".`
	return s
}

func (g *Generator) operation(b *schemaBuilder, ep Endpoint, errorRef *spec.Schema) *spec.Operation {
	id := ep.OperationID
	if id == "" {
		id = operationID(ep.Method, ep.Path)
	}
	op := spec.NewOperation(id).
		WithSummary(ep.Summary).
		WithDescription(ep.Description)
	if len(ep.Tags) > 0 {
		op.WithTags(ep.Tags...)
	}

	for _, name := range pathParams(ep.Path) {
		op.AddParam(spec.PathParam(name).Typed("string", ""))
	}
	if ep.Request != nil {
		if hasBody(ep.Method) {
			op.AddParam(spec.BodyParam("body", b.schemaOf(ep.Request)).AsRequired())
		} else {
			for _, p := range queryParams(ep.Request) {
				op.AddParam(p)
			}
		}
		op.RespondsWith(http.StatusBadRequest, errorResponse(http.StatusBadRequest, errorRef))
	}

	status := ep.Status
	if status == 0 {
		status = http.StatusOK
	}
	resp := spec.NewResponse().WithDescription(http.StatusText(status))
	if ep.Response != nil && status != http.StatusNoContent {
		resp.WithSchema(b.schemaOf(ep.Response))
	}
	op.RespondsWith(status, resp)

	if ep.Secured {
		op.Security = append(op.Security, map[string][]string{SecuritySchemeName: {}})
		op.RespondsWith(http.StatusUnauthorized, errorResponse(http.StatusUnauthorized, errorRef))
		if ep.Permission != "" {
			op.RespondsWith(http.StatusForbidden, errorResponse(http.StatusForbidden, errorRef))
			op.AddExtension("x-permission", ep.Permission)
		}
	}
	return op
}

func errorResponse(status int, schema *spec.Schema) *spec.Response {
	return spec.NewResponse().WithDescription(http.StatusText(status)).WithSchema(schema)
}

func setOperation(item *spec.PathItem, method string, op *spec.Operation) bool {
	switch method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPut:
		item.Put = op
	case http.MethodPatch:
		item.Patch = op
	case http.MethodDelete:
		item.Delete = op
	case http.MethodHead:
		item.Head = op
	case http.MethodOptions:
		item.Options = op
	default:
		return false
	}
	return true
}

func hasBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return false
	}
	return true
}

// queryParams describes the scalar fields of a GET request struct as query
// parameters, named by their form or json tag.
func queryParams(v any) []*spec.Parameter {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var params []*spec.Parameter
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" {
			var skip bool
			if name, skip = jsonField(f); skip {
				continue
			}
		}
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		tpe, format, ok := scalarType(f.Type)
		if !ok {
			continue
		}
		p := spec.QueryParam(name).Typed(tpe, format)
		if isRequired(f) {
			p.AsRequired()
		}
		params = append(params, p)
	}
	return params
}

func scalarType(t reflect.Type) (tpe, format string, ok bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean", "", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer", "int64", true
	case reflect.Float32, reflect.Float64:
		return "number", "double", true
	case reflect.String:
		return "string", "", true
	}
	return "", "", false
}

// operationID derives "getApiItemsById" from "GET /api/items/{id}".
func operationID(method, path string) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") {
			sb.WriteString("By")
			seg = strings.Trim(seg, "{}")
		}
		for _, part := range strings.FieldsFunc(seg, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			runes := []rune(part)
			runes[0] = unicode.ToUpper(runes[0])
			sb.WriteString(string(runes))
		}
	}
	return sb.String()
}
