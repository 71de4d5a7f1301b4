package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const uploadTimeout = 60 * time.Second

// Uploader pushes manifest entries to a running API instance.
type Uploader struct {
	apiURL     string
	baseDir    string
	httpClient *http.Client
}

// NewUploader targets the API at apiURL. Relative file paths in manifest
// entries are resolved against baseDir.
func NewUploader(apiURL, baseDir string) *Uploader {
	return &Uploader{
		apiURL:     strings.TrimRight(apiURL, "/"),
		baseDir:    baseDir,
		httpClient: &http.Client{Timeout: uploadTimeout},
	}
}

// UploadAll uploads every entry in manifest order and stops at the first
// failure. The IDs of filings created before the failure are returned
// alongside the error.
func (u *Uploader) UploadAll(ctx context.Context, manifest *Manifest) ([]string, error) {
	ids := make([]string, 0, len(manifest.Filings))
	for i, entry := range manifest.Filings {
		id, err := u.Upload(ctx, entry)
		if err != nil {
			return ids, fmt.Errorf("entry %d (%s %s): %w", i+1, entry.Entity, entry.Year, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Upload sends one filing through the multipart ingestion endpoint and
// returns the created filing ID.
func (u *Uploader) Upload(ctx context.Context, entry Entry) (string, error) {
	path := entry.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(u.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open filing file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read filing file: %w", err)
	}
	if err := writer.WriteField("entity", entry.Entity); err != nil {
		return "", fmt.Errorf("write entity field: %w", err)
	}
	if err := writer.WriteField("year", entry.Year); err != nil {
		return "", fmt.Errorf("write year field: %w", err)
	}
	if entry.SourceURL != "" {
		if err := writer.WriteField("source_url", entry.SourceURL); err != nil {
			return "", fmt.Errorf("write source_url field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.apiURL+"/v1/filings", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload filing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("upload rejected: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return created.ID, nil
}
