package httpadapter

import (
	"net/http"
	"strings"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

func (rt *Router) uploadFiling(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	entity := strings.TrimSpace(r.FormValue("entity"))
	year := strings.TrimSpace(r.FormValue("year"))
	if entity == "" {
		writeError(w, http.StatusBadRequest, "form field 'entity' is required")
		return
	}
	if year == "" {
		writeError(w, http.StatusBadRequest, "form field 'year' is required")
		return
	}

	filing, err := rt.ingest.Upload(r.Context(), domain.FilingUpload{
		Entity:    entity,
		Year:      year,
		Filename:  fileHeader.Filename,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		SourceURL: strings.TrimSpace(r.FormValue("source_url")),
		Body:      file,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, filing)
}

func (rt *Router) getFilingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/filings/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "filing id is required")
		return
	}

	filing, err := rt.filings.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filing)
}
