package httpadapter

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openapiDocument []byte

// loadOpenAPIRouter parses the embedded contract once per process; every
// Router handed out afterwards shares the same route table.
var loadOpenAPIRouter = sync.OnceValues(func() (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, fmt.Errorf("parse embedded openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate embedded openapi document: %w", err)
	}
	return legacyrouter.NewRouter(doc)
})

// requestValidationMiddleware rejects JSON requests that do not conform to
// the embedded OpenAPI document. Non-JSON traffic (multipart uploads, GETs,
// metrics scrapes) passes through untouched.
func requestValidationMiddleware(next http.Handler) http.Handler {
	specRouter, err := loadOpenAPIRouter()
	if err != nil {
		slog.Error("openapi_validation_disabled", "error", err)
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			next.ServeHTTP(w, r)
			return
		}

		route, pathParams, err := specRouter.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeError(w, http.StatusBadRequest, requestValidationMessage(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestValidationMessage flattens kin-openapi's multi-line errors into a
// single response line.
func requestValidationMessage(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}
