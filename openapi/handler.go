package openapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"

	apperrors "github.com/kbukum/mywebapi/errors"
)

// DefaultPrefix is where the documents and the UI are served.
const DefaultPrefix = "/swagger"

var (
	swagMu   sync.RWMutex
	swagDocs = map[string]swag.Swagger{}
)

// swagDoc is what gets registered with swag. It looks the generator up on
// every read, so re-registering a name swaps the document instead of
// panicking in swag.Register.
type swagDoc struct{ name string }

func (d swagDoc) ReadDoc() string {
	swagMu.RLock()
	s := swagDocs[d.name]
	swagMu.RUnlock()
	if s == nil {
		return "{}"
	}
	return s.ReadDoc()
}

// Register publishes doc with swaggo/swag under name, replacing any document
// earlier registered through this function.
func Register(name string, doc swag.Swagger) {
	swagMu.Lock()
	defer swagMu.Unlock()
	if _, ok := swagDocs[name]; !ok && swag.GetSwagger(name) == nil {
		swag.Register(name, swagDoc{name: name})
	}
	swagDocs[name] = doc
}

// SchemaHandler serves the generator's document as JSON.
func SchemaHandler(gen *Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := gen.JSON()
		if err != nil {
			appErr := apperrors.Internal(err)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}

// UIConfig configures the Swagger UI.
type UIConfig struct {
	// DocumentURL is the schema the UI loads.
	DocumentURL string
	// DocumentName is the swag registration the UI falls back to for
	// "doc.json".
	DocumentName         string
	DocExpansion         string
	DeepLinking          bool
	PersistAuthorization bool
}

// DefaultUIConfig points the UI at /swagger/v1/swagger.json.
func DefaultUIConfig() UIConfig {
	return UIConfig{
		DocumentURL:  DocumentPath(DefaultPrefix, DefaultDocumentName),
		DocumentName: DefaultDocumentName,
		DocExpansion: "list",
		DeepLinking:  true,
	}
}

// UIHandler serves the Swagger UI assets through swaggo/http-swagger.
func UIHandler(cfg UIConfig) gin.HandlerFunc {
	if cfg.DocExpansion == "" {
		cfg.DocExpansion = "list"
	}
	h := httpSwagger.Handler(
		httpSwagger.URL(cfg.DocumentURL),
		httpSwagger.InstanceName(cfg.DocumentName),
		httpSwagger.DocExpansion(cfg.DocExpansion),
		httpSwagger.DeepLinking(cfg.DeepLinking),
		httpSwagger.PersistAuthorization(cfg.PersistAuthorization),
	)
	return gin.WrapH(h)
}

// DocumentPath returns "<prefix>/<name>/swagger.json".
func DocumentPath(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name + "/swagger.json"
}

// Docs serves schema documents and the UI below one prefix. Gin does not
// allow a catch-all next to static routes, so a single "<prefix>/*any"
// route dispatches to the document or the UI.
type Docs struct {
	prefix string

	mu        sync.RWMutex
	documents map[string]gin.HandlerFunc
	ui        gin.HandlerFunc
	mounted   bool
}

// NewDocs creates a Docs rooted at prefix, DefaultPrefix when empty.
func NewDocs(prefix string) *Docs {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Docs{prefix: strings.TrimSuffix(prefix, "/"), documents: map[string]gin.HandlerFunc{}}
}

// Prefix returns the mount prefix.
func (d *Docs) Prefix() string { return d.prefix }

// AddDocument serves h at DocumentPath(prefix, name).
func (d *Docs) AddDocument(name string, h gin.HandlerFunc) {
	d.mu.Lock()
	d.documents["/"+name+"/swagger.json"] = h
	d.mu.Unlock()
}

// SetUI serves h for every other path below the prefix.
func (d *Docs) SetUI(h gin.HandlerFunc) {
	d.mu.Lock()
	d.ui = h
	d.mu.Unlock()
}

// Mount registers the routes on r. Later calls are no-ops.
func (d *Docs) Mount(r gin.IRoutes) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mounted {
		return
	}
	d.mounted = true
	r.GET(d.prefix, d.redirect)
	r.GET(d.prefix+"/*any", d.serve)
}

func (d *Docs) redirect(c *gin.Context) {
	d.mu.RLock()
	ui := d.ui
	d.mu.RUnlock()
	if ui == nil {
		notFound(c)
		return
	}
	c.Redirect(http.StatusMovedPermanently, d.prefix+"/index.html")
}

func (d *Docs) serve(c *gin.Context) {
	d.mu.RLock()
	doc, ui := d.documents[c.Param("any")], d.ui
	d.mu.RUnlock()
	switch {
	case doc != nil:
		doc(c)
	case ui != nil:
		ui(c)
	default:
		notFound(c)
	}
}

func notFound(c *gin.Context) {
	err := apperrors.NotFound("route")
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
