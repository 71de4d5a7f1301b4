package seed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "corpus.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
filings:
  - entity: ACME
    year: "2023"
    file: acme-2023.pdf
    source_url: https://filings.example.com/acme-2023.pdf
  - entity: ACME
    year: "2022"
    file: acme-2022.pdf
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(manifest.Filings) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(manifest.Filings))
	}
	first := manifest.Filings[0]
	if first.Entity != "ACME" || first.Year != "2023" || first.File != "acme-2023.pdf" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.SourceURL != "https://filings.example.com/acme-2023.pdf" {
		t.Fatalf("unexpected source_url: %q", first.SourceURL)
	}
	if manifest.Filings[1].SourceURL != "" {
		t.Fatalf("expected empty source_url, got %q", manifest.Filings[1].SourceURL)
	}
}

func TestLoadManifestRejectsIncompleteEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
filings:
  - year: "2023"
    file: acme-2023.pdf
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error for entry without entity")
	} else if !strings.Contains(err.Error(), "entity is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadManifestRejectsEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "filings: []\n")

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}

func TestUploadSendsMultipartFiling(t *testing.T) {
	dir := t.TempDir()
	filingPath := filepath.Join(dir, "acme-2023.txt")
	if err := os.WriteFile(filingPath, []byte("Item 7. Revenue grew."), 0o600); err != nil {
		t.Fatalf("write filing file: %v", err)
	}

	var gotEntity, gotYear, gotSourceURL, gotFilename, gotContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/filings" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			t.Errorf("read uploaded file: %v", err)
		}
		gotFilename = header.Filename
		gotContent = string(content)
		gotEntity = r.FormValue("entity")
		gotYear = r.FormValue("year")
		gotSourceURL = r.FormValue("source_url")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"filing-7","status":"uploaded"}`))
	}))
	defer server.Close()

	uploader := NewUploader(server.URL, dir)
	id, err := uploader.Upload(context.Background(), Entry{
		Entity:    "ACME",
		Year:      "2023",
		File:      "acme-2023.txt",
		SourceURL: "https://filings.example.com/acme",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id != "filing-7" {
		t.Fatalf("expected filing-7, got %q", id)
	}
	if gotEntity != "ACME" || gotYear != "2023" {
		t.Fatalf("unexpected form fields: entity=%q year=%q", gotEntity, gotYear)
	}
	if gotSourceURL != "https://filings.example.com/acme" {
		t.Fatalf("unexpected source_url: %q", gotSourceURL)
	}
	if gotFilename != "acme-2023.txt" {
		t.Fatalf("unexpected filename: %q", gotFilename)
	}
	if gotContent != "Item 7. Revenue grew." {
		t.Fatalf("unexpected file content: %q", gotContent)
	}
}

func TestUploadAllStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("text"), 0o600); err != nil {
			t.Fatalf("write filing file: %v", err)
		}
	}

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"retrieval backend unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"filing-1"}`))
	}))
	defer server.Close()

	manifest := &Manifest{Filings: []Entry{
		{Entity: "ACME", Year: "2022", File: "a.txt"},
		{Entity: "ACME", Year: "2023", File: "b.txt"},
		{Entity: "ACME", Year: "2024", File: "c.txt"},
	}}

	uploader := NewUploader(server.URL, dir)
	ids, err := uploader.UploadAll(context.Background(), manifest)
	if err == nil {
		t.Fatal("expected error from second upload")
	}
	if !strings.Contains(err.Error(), "entry 2 (ACME 2023)") {
		t.Fatalf("error should name the failing entry: %v", err)
	}
	if len(ids) != 1 || ids[0] != "filing-1" {
		t.Fatalf("expected ids from successful uploads, got %v", ids)
	}
	if calls != 2 {
		t.Fatalf("expected 2 upload attempts, got %d", calls)
	}
}

func TestUploadReportsMissingFile(t *testing.T) {
	uploader := NewUploader("http://localhost:0", t.TempDir())
	_, err := uploader.Upload(context.Background(), Entry{Entity: "ACME", Year: "2023", File: "missing.pdf"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "open filing file") {
		t.Fatalf("unexpected error: %v", err)
	}
}
