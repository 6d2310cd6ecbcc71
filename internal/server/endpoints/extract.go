package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/extract"
	"github.com/jackzampolin/marquee/internal/highlight"
	"github.com/jackzampolin/marquee/internal/schema"
	"github.com/jackzampolin/marquee/internal/svcctx"
)

// Error codes distinguishing failures that share a status.
const (
	codeMissingField   = "missing_field"
	codeInvalidUpload  = "invalid_upload"
	codeSchemaNotFound = "schema_not_found"
	codeNoProvider     = "no_provider"
	codeModelError     = "model_error"
	codeInternal       = "internal"
)

// multipartOverhead is allowed on top of the image limit for headers and the schema field.
const multipartOverhead = 1 << 20

// ExtractResponse is the response for POST /api/extract.
type ExtractResponse struct {
	SchemaName string          `json:"schemaName"`
	Result     json.RawMessage `json:"result" swaggertype:"object"`
	JSONSchema json.RawMessage `json:"jsonSchema" swaggertype:"object"`
}

// ExtractEndpoint handles POST /api/extract.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract structured data from a poster
//	@Description	Sends the uploaded image to the default model constrained by the named schema.
//	@Description	Missing fields, invalid uploads and unknown schemas all return 404; the code field tells them apart.
//	@Tags			extract
//	@Accept			mpfd
//	@Produce		json
//	@Param			schema	formData	string	true	"Schema name"
//	@Param			upload	formData	file	true	"Poster image"
//	@Success		200		{object}	ExtractResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	pipeline := svcctx.PipelineFrom(r.Context())
	if pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction pipeline not initialized")
		return
	}

	req, err := readExtractForm(w, r, pipeline.MaxUploadBytes())
	if err != nil {
		status, code := extractErrorStatus(err)
		svcctx.LoggerFrom(r.Context()).Warn("rejected extract request", "code", code, "error", err)
		writeCodedError(w, status, code, err.Error())
		return
	}

	result, err := pipeline.Extract(r.Context(), req)
	if err != nil {
		status, code := extractErrorStatus(err)
		if code == codeSchemaNotFound {
			svcctx.LoggerFrom(r.Context()).Warn("unknown schema requested", "schema", req.SchemaName)
		}
		writeCodedError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		SchemaName: result.SchemaName,
		Result:     result.ModelOutput,
		JSONSchema: result.JSONSchema,
	})
}

// errMissingField marks a required form field that was not sent.
var errMissingField = errors.New("missing form field")

// readExtractForm parses the multipart form into an extraction request.
// The uploaded bytes live only as long as the request.
func readExtractForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (extract.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return extract.Request{}, fmt.Errorf("%w: request exceeds %d bytes", extract.ErrInvalidUpload, tooLarge.Limit)
		}
		return extract.Request{}, fmt.Errorf("%w: schema and upload are required: %v", errMissingField, err)
	}
	defer r.MultipartForm.RemoveAll()

	name := r.FormValue("schema")
	if name == "" {
		return extract.Request{}, fmt.Errorf("%w: schema", errMissingField)
	}

	file, header, err := r.FormFile("upload")
	if errors.Is(err, http.ErrMissingFile) {
		return extract.Request{}, fmt.Errorf("%w: upload", errMissingField)
	}
	if err != nil {
		return extract.Request{}, fmt.Errorf("%w: %v", extract.ErrInvalidUpload, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		return extract.Request{}, fmt.Errorf("%w: failed to read upload: %v", extract.ErrInvalidUpload, err)
	}
	if int64(len(data)) > maxUpload {
		return extract.Request{}, fmt.Errorf("%w: upload exceeds %d bytes", extract.ErrInvalidUpload, maxUpload)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return extract.Request{
		SchemaName: name,
		Image:      data,
		MIMEType:   contentType,
		RequestID:  svcctx.RequestIDFrom(r.Context()),
	}, nil
}

// extractErrorStatus maps an extraction error to an HTTP status and error code.
func extractErrorStatus(err error) (int, string) {
	var modelErr *extract.ModelError
	switch {
	case errors.Is(err, errMissingField):
		return http.StatusNotFound, codeMissingField
	case errors.Is(err, extract.ErrInvalidUpload):
		return http.StatusNotFound, codeInvalidUpload
	case errors.Is(err, schema.ErrSchemaNotFound):
		return http.StatusNotFound, codeSchemaNotFound
	case errors.Is(err, extract.ErrNoProvider):
		return http.StatusServiceUnavailable, codeNoProvider
	case errors.As(err, &modelErr):
		return http.StatusBadGateway, codeModelError
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var schemaName string
	var highlighted bool
	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract structured data from a poster image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			contentType := mime.TypeByExtension(filepath.Ext(path))
			if contentType == "" {
				contentType = http.DetectContentType(data)
			}

			client := api.NewClient(getServerURL())
			var resp ExtractResponse
			err = client.PostMultipart(cmd.Context(), "/api/extract",
				map[string]string{"schema": schemaName},
				[]api.FilePart{{Field: "upload", FileName: filepath.Base(path), ContentType: contentType, Data: data}},
				&resp,
			)
			if err != nil {
				return err
			}

			if highlighted {
				out, err := highlight.ANSI(resp.Result)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", schema.EventsName, "schema to extract with")
	cmd.Flags().BoolVar(&highlighted, "highlight", false, "print only the result, syntax highlighted")
	return cmd
}
