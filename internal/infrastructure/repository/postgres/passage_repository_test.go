package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

func newPassageRepoWithMock(t *testing.T) (*PassageRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &PassageRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestReplaceForFilingDeletesThenInserts(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM passages").
		WithArgs("filing-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO passages").
		WithArgs("filing-1", "ACME", "2023", "Item 1A", "10k.txt#0", "first passage").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO passages").
		WithArgs("filing-1", "ACME", "2023", "Item 1A", "10k.txt#1", "second passage").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	passages := []domain.Passage{
		{
			Content: "first passage",
			Metadata: domain.PassageMetadata{
				Entity: "ACME", Year: "2023", Section: "Item 1A", SourceLocator: "10k.txt#0",
			},
		},
		{
			Content: "second passage",
			Metadata: domain.PassageMetadata{
				Entity: "ACME", Year: "2023", Section: "Item 1A", SourceLocator: "10k.txt#1",
			},
		},
	}
	if err := repo.ReplaceForFiling(context.Background(), "filing-1", passages); err != nil {
		t.Fatalf("ReplaceForFiling() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceForFilingRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM passages").
		WithArgs("filing-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO passages").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	passages := []domain.Passage{
		{Content: "only", Metadata: domain.PassageMetadata{Entity: "ACME", Year: "2023"}},
	}
	if err := repo.ReplaceForFiling(context.Background(), "filing-1", passages); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAllReturnsCorpusOrder(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"entity", "year", "section", "source_locator", "content"}).
		AddRow("ACME", "2022", "Item 1A", "a#0", "older passage").
		AddRow("ACME", "2023", "Item 7", "b#0", "newer passage")

	mock.ExpectQuery("FROM passages").WillReturnRows(rows)

	passages, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].Content != "older passage" || passages[1].Content != "newer passage" {
		t.Fatalf("unexpected order: %q then %q", passages[0].Content, passages[1].Content)
	}
	if passages[0].Metadata.Entity != "ACME" || passages[0].Metadata.Section != "Item 1A" {
		t.Fatalf("unexpected metadata mapping: %+v", passages[0].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
