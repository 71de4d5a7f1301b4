package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

type statusCall struct {
	status domain.FilingStatus
	errMsg string
}

type filingStoreFake struct {
	filing        *domain.Filing
	created       *domain.Filing
	createErr     error
	getErr        error
	statusErr     error
	failStatusErr error
	readyErr      error
	statusCalls   []statusCall
	readyID       string
	readyCount    int
}

func (f *filingStoreFake) Create(_ context.Context, filing *domain.Filing) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyFiling := *filing
	f.created = &copyFiling
	return nil
}

func (f *filingStoreFake) GetByID(context.Context, string) (*domain.Filing, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyFiling := *f.filing
	return &copyFiling, nil
}

func (f *filingStoreFake) UpdateStatus(_ context.Context, _ string, status domain.FilingStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.FilingFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *filingStoreFake) MarkReady(_ context.Context, id string, passageCount int) error {
	if f.readyErr != nil {
		return f.readyErr
	}
	f.readyID = id
	f.readyCount = passageCount
	return nil
}

type objectStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *objectStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *objectStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type queueFake struct {
	ingestedID string
	corpusID   string
	ingestErr  error
	corpusErr  error
}

func (f *queueFake) PublishFilingIngested(_ context.Context, filingID string) error {
	if f.ingestErr != nil {
		return f.ingestErr
	}
	f.ingestedID = filingID
	return nil
}

func (f *queueFake) SubscribeFilingIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func (f *queueFake) PublishCorpusUpdated(_ context.Context, filingID string) error {
	if f.corpusErr != nil {
		return f.corpusErr
	}
	f.corpusID = filingID
	return nil
}

func (f *queueFake) SubscribeCorpusUpdated(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestIngestUploadSuccess(t *testing.T) {
	store := &filingStoreFake{}
	storage := &objectStorageFake{}
	queue := &queueFake{}
	uc := NewIngestFilingUseCase(store, storage, queue)

	filing, err := uc.Upload(context.Background(), domain.FilingUpload{
		Entity:    " acme ",
		Year:      "2023",
		Filename:  "acme 10-K 2023.txt",
		MimeType:  "text/plain",
		SourceURL: "https://filings.example.com/acme-2023",
		Body:      bytes.NewBufferString("annual report"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if filing.ID == "" {
		t.Fatalf("expected filing id")
	}
	if filing.Entity != "ACME" {
		t.Fatalf("expected normalized entity ACME, got %s", filing.Entity)
	}
	if filing.Status != domain.FilingUploaded {
		t.Fatalf("expected status uploaded, got %s", filing.Status)
	}
	if store.created == nil {
		t.Fatalf("expected filing record created")
	}
	if queue.ingestedID != filing.ID {
		t.Fatalf("expected queued filing id %s, got %s", filing.ID, queue.ingestedID)
	}
	if !strings.Contains(storage.savedKey, "_acme_10-K_2023.txt") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "annual report" {
		t.Fatalf("expected saved body, got %s", storage.savedBody)
	}
}

func TestIngestUploadRejectsMissingEntity(t *testing.T) {
	storage := &objectStorageFake{}
	uc := NewIngestFilingUseCase(&filingStoreFake{}, storage, &queueFake{})

	_, err := uc.Upload(context.Background(), domain.FilingUpload{
		Year:     "2023",
		Filename: "report.txt",
		Body:     bytes.NewBufferString("x"),
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
	if storage.savedKey != "" {
		t.Fatalf("storage touched for rejected upload")
	}
}

func TestIngestUploadRejectsBadYear(t *testing.T) {
	uc := NewIngestFilingUseCase(&filingStoreFake{}, &objectStorageFake{}, &queueFake{})

	for _, year := range []string{"", "23", "20X3", "20233"} {
		_, err := uc.Upload(context.Background(), domain.FilingUpload{
			Entity:   "ACME",
			Year:     year,
			Filename: "report.txt",
			Body:     bytes.NewBufferString("x"),
		})
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("year %q: expected invalid input kind, got %v", year, err)
		}
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	queue := &queueFake{ingestErr: errors.New("queue down")}
	uc := NewIngestFilingUseCase(&filingStoreFake{}, &objectStorageFake{}, queue)

	_, err := uc.Upload(context.Background(), domain.FilingUpload{
		Entity:   "ACME",
		Year:     "2023",
		Filename: "report.txt",
		Body:     bytes.NewBufferString("x"),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
