package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultFineNotice is the message attached to a refused overdue return.
const DefaultFineNotice = "Return Failed due to overdue loan period. Please pay fine of Rs. 150/- and handover the book in person."

// SummaryWord is the word counted by the home page "books mentioning" counter.
const SummaryWord = "love"

const authorDatesMsg = "Invalid dates - Date of Birth can't be greater than Date of Death."

// Recorder observes loan transitions; outcome is "ok" or an error kind.
type Recorder interface {
	LoanTransition(action, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LoanTransition(string, string) {}

// Service implements the catalog operations and the loan lifecycle.
type Service struct {
	store      Store
	now        Clock
	loc        *time.Location
	rec        Recorder
	log        *slog.Logger
	fineNotice string
	validate   *validator.Validate
}

// Option configures a Service.
type Option func(*Service) error

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) error {
		if c == nil {
			return fmt.Errorf("catalog: nil clock")
		}
		s.now = c
		return nil
	}
}

// WithLocation sets the library time zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) error {
		if loc == nil {
			return fmt.Errorf("catalog: nil location")
		}
		s.loc = loc
		return nil
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) error {
		if r != nil {
			s.rec = r
		}
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) error {
		if l != nil {
			s.log = l
		}
		return nil
	}
}

// WithFineNotice replaces the overdue return message.
func WithFineNotice(msg string) Option {
	return func(s *Service) error {
		if strings.TrimSpace(msg) != "" {
			s.fineNotice = msg
		}
		return nil
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog: nil store")
	}
	s := &Service{
		store:      store,
		now:        time.Now,
		loc:        time.UTC,
		rec:        nopRecorder{},
		log:        slog.Default(),
		fineNotice: DefaultFineNotice,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Today is the current calendar date in the library time zone.
func (s *Service) Today() time.Time { return DateOf(s.now(), s.loc) }

// ProposedRenewalDate is the initial value of the renewal form.
func (s *Service) ProposedRenewalDate() time.Time { return s.Today().Add(LoanPeriod) }

// ---- loans ----

// Borrow puts copy id on loan to borrowerID for LoanPeriod.
func (s *Service) Borrow(ctx context.Context, id uuid.UUID, borrowerID string) (BookInstance, error) {
	const op = "catalog.Borrow"

	if strings.TrimSpace(borrowerID) == "" {
		return BookInstance{}, OpError{Op: op, Kind: ErrUnauthenticated, Msg: "login required"}
	}
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return BookInstance{}, s.loanFailed(ctx, "borrow", id, err)
	}
	if err := checkBorrow(op, inst); err != nil {
		return BookInstance{}, s.loanFailed(ctx, "borrow", id, err)
	}

	due := s.Today().Add(LoanPeriod)
	ok, err := s.store.MarkOnLoan(ctx, id, borrowerID, due)
	if err != nil {
		return BookInstance{}, s.loanFailed(ctx, "borrow", id, err)
	}
	if !ok {
		// Lost the race against a concurrent borrow, or the copy vanished.
		_, rerr := s.store.GetInstance(ctx, id)
		if rerr != nil {
			return BookInstance{}, s.loanFailed(ctx, "borrow", id, rerr)
		}
		return BookInstance{}, s.loanFailed(ctx, "borrow", id, conflict(op, "book copy is already on loan"))
	}

	inst.Status = StatusOnLoan
	inst.BorrowerID = &borrowerID
	inst.DueBack = &due
	s.loanDone("borrow", inst)
	return inst, nil
}

// Return ends the loan of copy id. An overdue copy is refused with
// ErrPolicyViolation carrying the fine notice and left unchanged. The copy is
// returned as it was before the return so callers can report its title.
func (s *Service) Return(ctx context.Context, id uuid.UUID) (BookInstance, error) {
	const op = "catalog.Return"

	today := s.Today()
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return BookInstance{}, s.loanFailed(ctx, "return", id, err)
	}
	if err := checkReturn(op, inst, today, s.fineNotice); err != nil {
		return inst, s.loanFailed(ctx, "return", id, err)
	}

	ok, err := s.store.MarkReturned(ctx, id, today)
	if err != nil {
		return BookInstance{}, s.loanFailed(ctx, "return", id, err)
	}
	if !ok {
		cur, rerr := s.store.GetInstance(ctx, id)
		if rerr != nil {
			return BookInstance{}, s.loanFailed(ctx, "return", id, rerr)
		}
		if err := checkReturn(op, cur, today, s.fineNotice); err != nil {
			return cur, s.loanFailed(ctx, "return", id, err)
		}
		return cur, s.loanFailed(ctx, "return", id, conflict(op, "book copy changed concurrently"))
	}

	s.loanDone("return", inst)
	return inst, nil
}

// Renew moves the due date of a copy on loan to due.
func (s *Service) Renew(ctx context.Context, id uuid.UUID, due time.Time) (BookInstance, error) {
	const op = "catalog.Renew"

	due = DateOf(due, time.UTC)
	if err := checkRenewalDate(op, due, s.Today()); err != nil {
		return BookInstance{}, s.loanFailed(ctx, "renew", id, err)
	}
	inst, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return BookInstance{}, s.loanFailed(ctx, "renew", id, err)
	}
	if err := checkRenew(op, inst); err != nil {
		return BookInstance{}, s.loanFailed(ctx, "renew", id, err)
	}

	ok, err := s.store.SetDueBack(ctx, id, due)
	if err != nil {
		return BookInstance{}, s.loanFailed(ctx, "renew", id, err)
	}
	if !ok {
		if _, rerr := s.store.GetInstance(ctx, id); rerr != nil {
			return BookInstance{}, s.loanFailed(ctx, "renew", id, rerr)
		}
		return BookInstance{}, s.loanFailed(ctx, "renew", id, conflict(op, "book copy is not on loan"))
	}

	inst.DueBack = &due
	s.loanDone("renew", inst)
	return inst, nil
}

// ListBorrowedBy pages the copies on loan to userID, earliest due first.
func (s *Service) ListBorrowedBy(ctx context.Context, userID string, page int) (Page[BookInstance], error) {
	onLoan := StatusOnLoan
	f := InstanceFilter{BorrowerID: &userID, Status: &onLoan}
	return pageOf(ctx, "catalog.ListBorrowedBy", page, BorrowedPerPage, func(offset, limit int) ([]BookInstance, int, error) {
		return s.store.ListInstances(ctx, f, offset, limit)
	})
}

// ListAllOnLoan lists every copy on loan, earliest due first.
func (s *Service) ListAllOnLoan(ctx context.Context) ([]BookInstance, error) {
	onLoan := StatusOnLoan
	out, _, err := s.store.ListInstances(ctx, InstanceFilter{Status: &onLoan}, 0, 0)
	return out, err
}

func (s *Service) loanFailed(ctx context.Context, action string, id uuid.UUID, err error) error {
	s.rec.LoanTransition(action, Outcome(err))
	lvl := slog.LevelInfo
	if Outcome(err) == "error" {
		lvl = slog.LevelError
	}
	s.log.Log(ctx, lvl, "catalog."+action+".fail",
		"instance_id", id.String(),
		"err", err,
	)
	return err
}

func (s *Service) loanDone(action string, inst BookInstance) {
	s.rec.LoanTransition(action, "ok")
	s.log.Info("catalog."+action+".ok",
		"instance_id", inst.ID.String(),
		"book_id", inst.BookID,
		"due_back", FormatDate(inst.DueBack),
	)
}

// Outcome names the error kind of err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "validation"
	case IsPolicyViolation(err):
		return "overdue"
	case IsConflict(err):
		return "conflict"
	case IsNotFound(err):
		return "not_found"
	case IsForbidden(err):
		return "forbidden"
	case IsUnauthenticated(err):
		return "unauthenticated"
	default:
		return "error"
	}
}

// ---- authors ----

func (s *Service) CreateAuthor(ctx context.Context, in AuthorInput) (Author, error) {
	const op = "catalog.CreateAuthor"
	if err := s.checkAuthor(op, &in); err != nil {
		return Author{}, err
	}
	return s.store.CreateAuthor(ctx, in)
}

func (s *Service) UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (Author, error) {
	const op = "catalog.UpdateAuthor"
	if err := s.checkAuthor(op, &in); err != nil {
		return Author{}, err
	}
	return s.store.UpdateAuthor(ctx, id, in)
}

// DeleteAuthor removes the author; their books keep existing without an author.
func (s *Service) DeleteAuthor(ctx context.Context, id int64) error {
	return s.store.DeleteAuthor(ctx, id)
}

// AuthorDetail returns the author with their books.
func (s *Service) AuthorDetail(ctx context.Context, id int64) (AuthorDetail, error) {
	a, err := s.store.GetAuthor(ctx, id)
	if err != nil {
		return AuthorDetail{}, err
	}
	books, _, err := s.store.ListBooks(ctx, BookFilter{AuthorID: &id}, 0, 0)
	if err != nil {
		return AuthorDetail{}, err
	}
	return AuthorDetail{Author: a, Books: books}, nil
}

func (s *Service) ListAuthors(ctx context.Context, page int) (Page[Author], error) {
	return pageOf(ctx, "catalog.ListAuthors", page, AuthorsPerPage, func(offset, limit int) ([]Author, int, error) {
		return s.store.ListAuthors(ctx, offset, limit)
	})
}

func (s *Service) checkAuthor(op string, in *AuthorInput) error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.check(op, in); err != nil {
		return err
	}
	if in.DateOfBirth != nil && in.DateOfDeath != nil && in.DateOfDeath.Before(*in.DateOfBirth) {
		return invalid(op, authorDatesMsg)
	}
	return nil
}

// ---- genres & languages ----

func (s *Service) CreateGenre(ctx context.Context, name string) (Genre, error) {
	name = strings.TrimSpace(name)
	if err := s.checkName("catalog.CreateGenre", name, 200); err != nil {
		return Genre{}, err
	}
	return s.store.CreateGenre(ctx, name)
}

// GenreDetail returns the genre with its books.
func (s *Service) GenreDetail(ctx context.Context, id int64) (GenreDetail, error) {
	g, err := s.store.GetGenre(ctx, id)
	if err != nil {
		return GenreDetail{}, err
	}
	books, _, err := s.store.ListBooks(ctx, BookFilter{GenreID: &id}, 0, 0)
	if err != nil {
		return GenreDetail{}, err
	}
	return GenreDetail{Genre: g, Books: books}, nil
}

func (s *Service) ListGenres(ctx context.Context, page int) (Page[Genre], error) {
	return pageOf(ctx, "catalog.ListGenres", page, GenresPerPage, func(offset, limit int) ([]Genre, int, error) {
		return s.store.ListGenres(ctx, offset, limit)
	})
}

func (s *Service) CreateLanguage(ctx context.Context, name string) (Language, error) {
	name = strings.TrimSpace(name)
	if err := s.checkName("catalog.CreateLanguage", name, 100); err != nil {
		return Language{}, err
	}
	return s.store.CreateLanguage(ctx, name)
}

func (s *Service) ListLanguages(ctx context.Context) ([]Language, error) {
	return s.store.ListLanguages(ctx)
}

func (s *Service) checkName(op, name string, max int) error {
	if err := s.validate.Var(name, fmt.Sprintf("required,max=%d", max)); err != nil {
		return invalid(op, "name: "+describe(err))
	}
	return nil
}

// ---- books ----

func (s *Service) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	const op = "catalog.CreateBook"
	if err := s.checkBook(op, &in); err != nil {
		return Book{}, err
	}
	return s.store.CreateBook(ctx, in)
}

func (s *Service) UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	const op = "catalog.UpdateBook"
	if err := s.checkBook(op, &in); err != nil {
		return Book{}, err
	}
	return s.store.UpdateBook(ctx, id, in)
}

// DeleteBook removes a book. A book that still has copies is a Conflict.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.store.DeleteBook(ctx, id)
}

// BookDetail returns the book with all of its copies.
func (s *Service) BookDetail(ctx context.Context, id int64) (BookDetail, error) {
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return BookDetail{}, err
	}
	insts, _, err := s.store.ListInstances(ctx, InstanceFilter{BookID: &id}, 0, 0)
	if err != nil {
		return BookDetail{}, err
	}
	return BookDetail{Book: b, Instances: insts}, nil
}

func (s *Service) ListBooks(ctx context.Context, page int) (Page[Book], error) {
	return pageOf(ctx, "catalog.ListBooks", page, BooksPerPage, func(offset, limit int) ([]Book, int, error) {
		return s.store.ListBooks(ctx, BookFilter{}, offset, limit)
	})
}

// ListAvailableBooks lists, once each, the books that have an available copy.
func (s *Service) ListAvailableBooks(ctx context.Context) ([]Book, error) {
	out, _, err := s.store.ListBooks(ctx, BookFilter{Available: true}, 0, 0)
	return out, err
}

func (s *Service) checkBook(op string, in *BookInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.TrimSpace(in.ISBN)
	return s.check(op, in)
}

// ---- instances ----

// AddInstance creates a copy of a book. New copies default to maintenance and
// cannot start on loan.
func (s *Service) AddInstance(ctx context.Context, in InstanceInput) (BookInstance, error) {
	const op = "catalog.AddInstance"
	in.Imprint = strings.TrimSpace(in.Imprint)
	if err := s.check(op, &in); err != nil {
		return BookInstance{}, err
	}
	if in.Status == "" {
		in.Status = StatusMaintenance
	}
	if err := checkEdit(op, BookInstance{Status: StatusMaintenance}, in.Status); err != nil {
		return BookInstance{}, err
	}
	// Only a loan carries a due date.
	in.DueBack = nil
	return s.store.CreateInstance(ctx, in)
}

// UpdateInstance edits imprint, book and non-loan status of a copy that is
// not on loan. The due date is cleared because no loan backs it.
func (s *Service) UpdateInstance(ctx context.Context, id uuid.UUID, in InstanceInput) (BookInstance, error) {
	const op = "catalog.UpdateInstance"
	in.Imprint = strings.TrimSpace(in.Imprint)
	if err := s.check(op, &in); err != nil {
		return BookInstance{}, err
	}
	cur, err := s.store.GetInstance(ctx, id)
	if err != nil {
		return BookInstance{}, err
	}
	if in.Status == "" {
		in.Status = cur.Status
	}
	if err := checkEdit(op, cur, in.Status); err != nil {
		return BookInstance{}, err
	}
	in.DueBack = nil
	ok, err := s.store.UpdateInstance(ctx, id, in)
	if err != nil {
		return BookInstance{}, err
	}
	if !ok {
		if _, rerr := s.store.GetInstance(ctx, id); rerr != nil {
			return BookInstance{}, rerr
		}
		return BookInstance{}, conflict(op, "book copy went on loan concurrently")
	}
	return s.store.GetInstance(ctx, id)
}

func (s *Service) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteInstance(ctx, id)
}

func (s *Service) GetInstance(ctx context.Context, id uuid.UUID) (BookInstance, error) {
	return s.store.GetInstance(ctx, id)
}

// Counts returns the home page counters.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.store.Counts(ctx, SummaryWord)
}

// ---- helpers ----

func (s *Service) check(op string, v any) error {
	if err := s.validate.Struct(v); err != nil {
		return invalid(op, describe(err))
	}
	return nil
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = "value"
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func pageOf[T any](ctx context.Context, op string, number, perPage int, list func(offset, limit int) ([]T, int, error)) (Page[T], error) {
	if err := ctx.Err(); err != nil {
		return Page[T]{}, err
	}
	if number < 1 {
		return Page[T]{}, OpError{Op: op, Kind: ErrNotFound, Msg: "invalid page"}
	}
	items, total, err := list((number-1)*perPage, perPage)
	if err != nil {
		return Page[T]{}, err
	}
	numPages, err := pageCount(op, number, perPage, total)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Number: number, PerPage: perPage, Total: total, NumPages: numPages}, nil
}
