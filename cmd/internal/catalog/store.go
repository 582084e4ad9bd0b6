package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookFilter narrows ListBooks. Zero value lists every book.
type BookFilter struct {
	// Available keeps books that have at least one available copy.
	Available bool
	AuthorID  *int64
	GenreID   *int64
}

// InstanceFilter narrows ListInstances. Zero value lists every copy.
type InstanceFilter struct {
	BookID     *int64
	BorrowerID *string
	Status     *Status
}

// Store is the catalog persistence boundary.
//
// List methods return the requested window and the total row count; a limit
// <= 0 returns every row from offset. Books are ordered by id, authors by first
// then last name, genres and languages by id, copies by due date ascending with
// undated copies last.
//
// The loan transitions are compare-and-set: they report applied=false without
// error when the row is missing or its state does not satisfy the precondition,
// and the caller re-reads to classify the failure.
type Store interface {
	CreateAuthor(ctx context.Context, in AuthorInput) (Author, error)
	UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (Author, error)
	DeleteAuthor(ctx context.Context, id int64) error
	GetAuthor(ctx context.Context, id int64) (Author, error)
	ListAuthors(ctx context.Context, offset, limit int) ([]Author, int, error)

	CreateGenre(ctx context.Context, name string) (Genre, error)
	GetGenre(ctx context.Context, id int64) (Genre, error)
	ListGenres(ctx context.Context, offset, limit int) ([]Genre, int, error)

	CreateLanguage(ctx context.Context, name string) (Language, error)
	ListLanguages(ctx context.Context) ([]Language, error)

	CreateBook(ctx context.Context, in BookInput) (Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (Book, error)
	ListBooks(ctx context.Context, f BookFilter, offset, limit int) ([]Book, int, error)

	CreateInstance(ctx context.Context, in InstanceInput) (BookInstance, error)
	// UpdateInstance edits a copy that is not on loan. applied=false when the
	// copy is missing or currently on loan.
	UpdateInstance(ctx context.Context, id uuid.UUID, in InstanceInput) (applied bool, err error)
	DeleteInstance(ctx context.Context, id uuid.UUID) error
	GetInstance(ctx context.Context, id uuid.UUID) (BookInstance, error)
	ListInstances(ctx context.Context, f InstanceFilter, offset, limit int) ([]BookInstance, int, error)

	// MarkOnLoan applies status<>'o' -> ('o', borrower, due).
	MarkOnLoan(ctx context.Context, id uuid.UUID, borrowerID string, due time.Time) (applied bool, err error)
	// MarkReturned applies (status='o' AND due_back >= today) -> ('m', no borrower, no due date).
	MarkReturned(ctx context.Context, id uuid.UUID, today time.Time) (applied bool, err error)
	// SetDueBack applies status='o' -> due date only.
	SetDueBack(ctx context.Context, id uuid.UUID, due time.Time) (applied bool, err error)

	// Counts returns the home counters; word is matched case-insensitively
	// against book summaries.
	Counts(ctx context.Context, word string) (Counts, error)
}
