package domain

import (
	"io"
	"time"
)

type FilingStatus string

const (
	FilingUploaded   FilingStatus = "uploaded"
	FilingProcessing FilingStatus = "processing"
	FilingReady      FilingStatus = "ready"
	FilingFailed     FilingStatus = "failed"
)

// Filing is one uploaded source document (a 10-K, an exhibit) for one entity
// and fiscal year. Passages are derived from it by the worker.
type Filing struct {
	ID           string       `json:"id"`
	Entity       string       `json:"entity"`
	Year         string       `json:"year"`
	Filename     string       `json:"filename"`
	MimeType     string       `json:"mime_type"`
	StoragePath  string       `json:"storage_path"`
	SourceURL    string       `json:"source_url,omitempty"`
	Status       FilingStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	PassageCount int          `json:"passage_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FilingUpload is the inbound payload for filing ingestion.
type FilingUpload struct {
	Entity    string
	Year      string
	Filename  string
	MimeType  string
	SourceURL string
	Body      io.Reader
}
