package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/schema"
	"github.com/jackzampolin/marquee/internal/svcctx"
)

// ListSchemasResponse is the response for GET /api/schemas.
type ListSchemasResponse struct {
	Result []string `json:"result"`
}

// ListSchemasEndpoint handles GET /api/schemas.
type ListSchemasEndpoint struct{}

var _ api.Endpoint = (*ListSchemasEndpoint)(nil)

func (e *ListSchemasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas", e.handler
}

func (e *ListSchemasEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List extraction schemas
//	@Description	Names of all schemas a poster can be extracted with, in registry order
//	@Tags			schemas
//	@Produce		json
//	@Success		200	{object}	ListSchemasResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/schemas [get]
func (e *ListSchemasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	schemas := svcctx.SchemasFrom(r.Context())
	if schemas == nil {
		writeError(w, http.StatusServiceUnavailable, "schema registry not initialized")
		return
	}
	writeJSON(w, http.StatusOK, ListSchemasResponse{Result: schemas.Names()})
}

func (e *ListSchemasEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List extraction schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListSchemasResponse
			if err := client.Get(cmd.Context(), "/api/schemas", &resp); err != nil {
				return err
			}
			return api.Output(resp.Result)
		},
	}
}

// SchemaResponse is the response for GET /api/schemas/{name}.
type SchemaResponse struct {
	Name       string          `json:"name"`
	JSONSchema json.RawMessage `json:"jsonSchema" swaggertype:"object"`
}

// GetSchemaEndpoint handles GET /api/schemas/{name}.
type GetSchemaEndpoint struct{}

var _ api.Endpoint = (*GetSchemaEndpoint)(nil)

func (e *GetSchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas/{name}", e.handler
}

func (e *GetSchemaEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get a compiled schema
//	@Description	The JSON Schema document sent to the model for this schema
//	@Tags			schemas
//	@Produce		json
//	@Param			name	path		string	true	"Schema name"
//	@Success		200		{object}	SchemaResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/schemas/{name} [get]
func (e *GetSchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	schemas := svcctx.SchemasFrom(r.Context())
	if schemas == nil {
		writeError(w, http.StatusServiceUnavailable, "schema registry not initialized")
		return
	}

	name := r.PathValue("name")
	def, err := schemas.Resolve(name)
	if errors.Is(err, schema.ErrSchemaNotFound) {
		svcctx.LoggerFrom(r.Context()).Warn("unknown schema requested", "schema", name)
		writeCodedError(w, http.StatusNotFound, codeSchemaNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	compiled, err := schema.Compile(*def)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SchemaResponse{Name: def.Name, JSONSchema: compiled})
}

func (e *GetSchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <name>",
		Short: "Show the compiled JSON Schema for a schema name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SchemaResponse
			path := fmt.Sprintf("/api/schemas/%s", url.PathEscape(args[0]))
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
