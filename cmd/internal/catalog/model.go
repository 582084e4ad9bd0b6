package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author writes books. Dates are calendar dates (UTC midnight).
type Author struct {
	ID          int64
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	DateOfDeath *time.Time
}

// Name is the display form "First Last".
func (a Author) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Genre struct {
	ID   int64
	Name string
}

type Language struct {
	ID   int64
	Name string
}

// Book is a catalog entry. Author is nil once the author has been deleted.
type Book struct {
	ID       int64
	Title    string
	Summary  string
	ISBN     string
	AuthorID *int64
	Author   *Author

	Genres    []Genre
	Languages []Language
}

// DisplayGenre joins the genre names with ", ".
func (b Book) DisplayGenre() string {
	names := make([]string, 0, len(b.Genres))
	for _, g := range b.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// DisplayLanguage joins the language names with ", ".
func (b Book) DisplayLanguage() string {
	names := make([]string, 0, len(b.Languages))
	for _, l := range b.Languages {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

// BookInstance is a physical copy of a Book that can be borrowed.
type BookInstance struct {
	ID        uuid.UUID
	BookID    int64
	BookTitle string
	Imprint   string
	DueBack   *time.Time
	Status    Status
	// BorrowerID is set iff Status == StatusOnLoan.
	BorrowerID *string
}

// IsOverdue reports whether the copy has a due date strictly before today.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	return bi.DueBack != nil && today.After(*bi.DueBack)
}

// BookDetail is a book together with all of its copies.
type BookDetail struct {
	Book      Book
	Instances []BookInstance
}

type AuthorDetail struct {
	Author Author
	Books  []Book
}

type GenreDetail struct {
	Genre Genre
	Books []Book
}

// Counts are the home page counters.
type Counts struct {
	Books              int
	Instances          int
	InstancesAvailable int
	Authors            int
	Genres             int
	BooksWithWord      int
}

// AuthorInput is the create/update payload for an author.
type AuthorInput struct {
	FirstName   string `validate:"required,max=100"`
	LastName    string `validate:"required,max=100"`
	DateOfBirth *time.Time
	DateOfDeath *time.Time
}

// BookInput is the create/update payload for a book.
type BookInput struct {
	Title       string  `validate:"required,max=200"`
	Summary     string  `validate:"required"`
	ISBN        string  `validate:"required,max=13"`
	AuthorID    *int64  `validate:"omitempty,gt=0"`
	GenreIDs    []int64 `validate:"dive,gt=0"`
	LanguageIDs []int64 `validate:"dive,gt=0"`
}

// InstanceInput is the create/update payload for a book copy. Status defaults to
// maintenance on create.
type InstanceInput struct {
	BookID  int64  `validate:"required,gt=0"`
	Imprint string `validate:"required,max=200"`
	Status  Status `validate:"omitempty,oneof=m o a r"`
	DueBack *time.Time
}
