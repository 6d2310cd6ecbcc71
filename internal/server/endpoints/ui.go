package endpoints

import (
	"bytes"
	"html/template"
	"net/http"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/highlight"
	"github.com/jackzampolin/marquee/internal/svcctx"
	"github.com/jackzampolin/marquee/web"
)

// pageData feeds index.html.tmpl.
type pageData struct {
	Schemas  []string
	Selected string

	SchemaName string
	Result     template.HTML
	JSONSchema template.HTML
	Error      string
}

var (
	pageOnce sync.Once
	pageTmpl *template.Template
	pageErr  error
)

func indexTemplate() (*template.Template, error) {
	pageOnce.Do(func() {
		fsys, err := web.TemplatesFS()
		if err != nil {
			pageErr = err
			return
		}
		pageTmpl, pageErr = template.ParseFS(fsys, "index.html.tmpl")
	})
	return pageTmpl, pageErr
}

// renderPage buffers the template so a failure still yields a clean 500.
func renderPage(w http.ResponseWriter, status int, data pageData) {
	tmpl, err := indexTemplate()
	if err != nil {
		http.Error(w, "UI not available", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func newPageData(r *http.Request) pageData {
	data := pageData{}
	if schemas := svcctx.SchemasFrom(r.Context()); schemas != nil {
		data.Schemas = schemas.Names()
	}
	if len(data.Schemas) > 0 {
		data.Selected = data.Schemas[0]
	}
	return data
}

// UIIndexEndpoint serves the upload form at GET /.
type UIIndexEndpoint struct{}

var _ api.Endpoint = (*UIIndexEndpoint)(nil)

func (e *UIIndexEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *UIIndexEndpoint) RequiresInit() bool { return false }

func (e *UIIndexEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, newPageData(r))
}

func (e *UIIndexEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "ui",
		Hidden: true,
		Short:  "Print the web UI address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("Open in browser:", getServerURL()+"/")
			return nil
		},
	}
}

// UIExtractEndpoint handles the form post at POST /ui/extract and renders
// the result with server-side JSON highlighting.
type UIExtractEndpoint struct{}

var _ api.Endpoint = (*UIExtractEndpoint)(nil)

func (e *UIExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/ui/extract", e.handler
}

func (e *UIExtractEndpoint) RequiresInit() bool { return false }

func (e *UIExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	data := newPageData(r)
	logger := svcctx.LoggerFrom(r.Context())

	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		data.Error = "extraction pipeline not initialized"
		renderPage(w, http.StatusServiceUnavailable, data)
		return
	}

	req, err := readExtractForm(w, r, pipeline.MaxUploadBytes())
	if err != nil {
		status, code := extractErrorStatus(err)
		logger.Warn("rejected extract request", "code", code, "error", err)
		data.Error = err.Error()
		renderPage(w, status, data)
		return
	}
	data.Selected = req.SchemaName

	result, err := pipeline.Extract(r.Context(), req)
	if err != nil {
		status, code := extractErrorStatus(err)
		if code == codeSchemaNotFound {
			logger.Warn("unknown schema requested", "schema", req.SchemaName)
		}
		data.Error = err.Error()
		renderPage(w, status, data)
		return
	}

	resultHTML, err := highlight.HTML(result.ModelOutput)
	if err != nil {
		data.Error = err.Error()
		renderPage(w, http.StatusInternalServerError, data)
		return
	}
	schemaHTML, err := highlight.HTML(result.JSONSchema)
	if err != nil {
		data.Error = err.Error()
		renderPage(w, http.StatusInternalServerError, data)
		return
	}

	data.SchemaName = result.SchemaName
	// highlight.HTML escapes every token before wrapping it.
	data.Result = template.HTML(resultHTML)
	data.JSONSchema = template.HTML(schemaHTML)
	renderPage(w, http.StatusOK, data)
}

func (e *UIExtractEndpoint) Command(_ func() string) *cobra.Command {
	return nil // form post only; use "api extract"
}
