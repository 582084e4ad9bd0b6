package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for dev mode and tests.
// A single mutex serializes every operation, so loan transitions have the same
// compare-and-set outcome as the conditional updates of PostgresStore.
type MemoryStore struct {
	mu sync.Mutex

	nextAuthor, nextGenre, nextLanguage, nextBook int64

	authors   map[int64]Author
	genres    map[int64]Genre
	languages map[int64]Language
	books     map[int64]memBook
	instances map[uuid.UUID]BookInstance
}

type memBook struct {
	Book
	genreIDs    []int64
	languageIDs []int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		authors:   make(map[int64]Author),
		genres:    make(map[int64]Genre),
		languages: make(map[int64]Language),
		books:     make(map[int64]memBook),
		instances: make(map[uuid.UUID]BookInstance),
	}
}

var _ Store = (*MemoryStore)(nil)

// ---- authors ----

func (s *MemoryStore) CreateAuthor(ctx context.Context, in AuthorInput) (Author, error) {
	if err := ctx.Err(); err != nil {
		return Author{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAuthor++
	a := Author{ID: s.nextAuthor}
	applyAuthor(&a, in)
	s.authors[a.ID] = a
	return a, nil
}

func (s *MemoryStore) UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (Author, error) {
	if err := ctx.Err(); err != nil {
		return Author{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.authors[id]
	if !ok {
		return Author{}, notFound("catalog.UpdateAuthor", "author")
	}
	applyAuthor(&a, in)
	s.authors[id] = a
	return a, nil
}

func (s *MemoryStore) DeleteAuthor(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authors[id]; !ok {
		return notFound("catalog.DeleteAuthor", "author")
	}
	delete(s.authors, id)
	for bid, b := range s.books {
		if b.AuthorID != nil && *b.AuthorID == id {
			b.AuthorID = nil
			s.books[bid] = b
		}
	}
	return nil
}

func (s *MemoryStore) GetAuthor(ctx context.Context, id int64) (Author, error) {
	if err := ctx.Err(); err != nil {
		return Author{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.authors[id]
	if !ok {
		return Author{}, notFound("catalog.GetAuthor", "author")
	}
	return a, nil
}

func (s *MemoryStore) ListAuthors(ctx context.Context, offset, limit int) ([]Author, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]Author, 0, len(s.authors))
	for _, a := range s.authors {
		all = append(all, a)
	}
	slices.SortFunc(all, func(x, y Author) int {
		return cmp.Or(
			cmp.Compare(x.FirstName, y.FirstName),
			cmp.Compare(x.LastName, y.LastName),
			cmp.Compare(x.ID, y.ID),
		)
	})
	return window(all, offset, limit), len(all), nil
}

func applyAuthor(a *Author, in AuthorInput) {
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.DateOfBirth = in.DateOfBirth
	a.DateOfDeath = in.DateOfDeath
}

// ---- genres & languages ----

func (s *MemoryStore) CreateGenre(ctx context.Context, name string) (Genre, error) {
	if err := ctx.Err(); err != nil {
		return Genre{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGenre++
	g := Genre{ID: s.nextGenre, Name: name}
	s.genres[g.ID] = g
	return g, nil
}

func (s *MemoryStore) GetGenre(ctx context.Context, id int64) (Genre, error) {
	if err := ctx.Err(); err != nil {
		return Genre{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.genres[id]
	if !ok {
		return Genre{}, notFound("catalog.GetGenre", "genre")
	}
	return g, nil
}

func (s *MemoryStore) ListGenres(ctx context.Context, offset, limit int) ([]Genre, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := sortedByID(s.genres, func(g Genre) int64 { return g.ID })
	return window(all, offset, limit), len(all), nil
}

func (s *MemoryStore) CreateLanguage(ctx context.Context, name string) (Language, error) {
	if err := ctx.Err(); err != nil {
		return Language{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLanguage++
	l := Language{ID: s.nextLanguage, Name: name}
	s.languages[l.ID] = l
	return l, nil
}

func (s *MemoryStore) ListLanguages(ctx context.Context) ([]Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedByID(s.languages, func(l Language) int64 { return l.ID }), nil
}

// ---- books ----

func (s *MemoryStore) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	const op = "catalog.CreateBook"
	if err := ctx.Err(); err != nil {
		return Book{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBookRefs(op, 0, in); err != nil {
		return Book{}, err
	}
	s.nextBook++
	b := memBook{Book: Book{ID: s.nextBook}}
	applyBook(&b, in)
	s.books[b.ID] = b
	return s.hydrate(b), nil
}

func (s *MemoryStore) UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	const op = "catalog.UpdateBook"
	if err := ctx.Err(); err != nil {
		return Book{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return Book{}, notFound(op, "book")
	}
	if err := s.checkBookRefs(op, id, in); err != nil {
		return Book{}, err
	}
	applyBook(&b, in)
	s.books[id] = b
	return s.hydrate(b), nil
}

func (s *MemoryStore) DeleteBook(ctx context.Context, id int64) error {
	const op = "catalog.DeleteBook"
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return notFound(op, "book")
	}
	for _, inst := range s.instances {
		if inst.BookID == id {
			return conflict(op, "book still has copies")
		}
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) GetBook(ctx context.Context, id int64) (Book, error) {
	if err := ctx.Err(); err != nil {
		return Book{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return Book{}, notFound("catalog.GetBook", "book")
	}
	return s.hydrate(b), nil
}

func (s *MemoryStore) ListBooks(ctx context.Context, f BookFilter, offset, limit int) ([]Book, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var available map[int64]bool
	if f.Available {
		available = make(map[int64]bool)
		for _, inst := range s.instances {
			if inst.Status == StatusAvailable {
				available[inst.BookID] = true
			}
		}
	}

	all := make([]Book, 0, len(s.books))
	for _, b := range sortedByID(s.books, func(b memBook) int64 { return b.ID }) {
		if f.Available && !available[b.ID] {
			continue
		}
		if f.AuthorID != nil && (b.AuthorID == nil || *b.AuthorID != *f.AuthorID) {
			continue
		}
		if f.GenreID != nil && !slices.Contains(b.genreIDs, *f.GenreID) {
			continue
		}
		all = append(all, s.hydrate(b))
	}
	return window(all, offset, limit), len(all), nil
}

func (s *MemoryStore) checkBookRefs(op string, self int64, in BookInput) error {
	isbn := strings.TrimSpace(in.ISBN)
	for id, b := range s.books {
		if id != self && b.ISBN == isbn {
			return conflict(op, "book with this ISBN already exists")
		}
	}
	if in.AuthorID != nil {
		if _, ok := s.authors[*in.AuthorID]; !ok {
			return notFound(op, "author")
		}
	}
	for _, gid := range in.GenreIDs {
		if _, ok := s.genres[gid]; !ok {
			return notFound(op, "genre")
		}
	}
	for _, lid := range in.LanguageIDs {
		if _, ok := s.languages[lid]; !ok {
			return notFound(op, "language")
		}
	}
	return nil
}

func applyBook(b *memBook, in BookInput) {
	b.Title = in.Title
	b.Summary = in.Summary
	b.ISBN = strings.TrimSpace(in.ISBN)
	b.AuthorID = in.AuthorID
	b.genreIDs = uniqueIDs(in.GenreIDs)
	b.languageIDs = uniqueIDs(in.LanguageIDs)
}

// hydrate resolves the author and M2M references of b. Caller holds s.mu.
func (s *MemoryStore) hydrate(b memBook) Book {
	out := b.Book
	out.Author = nil
	if b.AuthorID != nil {
		if a, ok := s.authors[*b.AuthorID]; ok {
			out.Author = &a
		}
	}
	out.Genres = make([]Genre, 0, len(b.genreIDs))
	for _, id := range b.genreIDs {
		if g, ok := s.genres[id]; ok {
			out.Genres = append(out.Genres, g)
		}
	}
	out.Languages = make([]Language, 0, len(b.languageIDs))
	for _, id := range b.languageIDs {
		if l, ok := s.languages[id]; ok {
			out.Languages = append(out.Languages, l)
		}
	}
	return out
}

// ---- instances ----

func (s *MemoryStore) CreateInstance(ctx context.Context, in InstanceInput) (BookInstance, error) {
	const op = "catalog.CreateInstance"
	if err := ctx.Err(); err != nil {
		return BookInstance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[in.BookID]
	if !ok {
		return BookInstance{}, notFound(op, "book")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return BookInstance{}, err
	}
	inst := BookInstance{
		ID:        id,
		BookID:    b.ID,
		BookTitle: b.Title,
		Imprint:   in.Imprint,
		DueBack:   in.DueBack,
		Status:    cmp.Or(in.Status, StatusMaintenance),
	}
	s.instances[id] = inst
	return inst, nil
}

func (s *MemoryStore) UpdateInstance(ctx context.Context, id uuid.UUID, in InstanceInput) (bool, error) {
	const op = "catalog.UpdateInstance"
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok || inst.Status == StatusOnLoan {
		return false, nil
	}
	if _, ok := s.books[in.BookID]; !ok {
		return false, notFound(op, "book")
	}
	inst.BookID = in.BookID
	inst.Imprint = in.Imprint
	inst.Status = cmp.Or(in.Status, inst.Status)
	inst.DueBack = nil
	if inst.Status == StatusOnLoan {
		inst.DueBack = in.DueBack
	}
	s.instances[id] = inst
	return true, nil
}

func (s *MemoryStore) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; !ok {
		return notFound("catalog.DeleteInstance", "book instance")
	}
	delete(s.instances, id)
	return nil
}

func (s *MemoryStore) GetInstance(ctx context.Context, id uuid.UUID) (BookInstance, error) {
	if err := ctx.Err(); err != nil {
		return BookInstance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return BookInstance{}, notFound("catalog.GetInstance", "book instance")
	}
	return s.withTitle(inst), nil
}

func (s *MemoryStore) ListInstances(ctx context.Context, f InstanceFilter, offset, limit int) ([]BookInstance, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]BookInstance, 0)
	for _, inst := range s.instances {
		if f.BookID != nil && inst.BookID != *f.BookID {
			continue
		}
		if f.BorrowerID != nil && (inst.BorrowerID == nil || *inst.BorrowerID != *f.BorrowerID) {
			continue
		}
		if f.Status != nil && inst.Status != *f.Status {
			continue
		}
		all = append(all, s.withTitle(inst))
	}
	slices.SortFunc(all, compareInstances)
	return window(all, offset, limit), len(all), nil
}

func (s *MemoryStore) MarkOnLoan(ctx context.Context, id uuid.UUID, borrowerID string, due time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok || inst.Status == StatusOnLoan {
		return false, nil
	}
	inst.Status = StatusOnLoan
	inst.BorrowerID = &borrowerID
	inst.DueBack = &due
	s.instances[id] = inst
	return true, nil
}

func (s *MemoryStore) MarkReturned(ctx context.Context, id uuid.UUID, today time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok || inst.Status != StatusOnLoan || inst.IsOverdue(today) {
		return false, nil
	}
	inst.Status = StatusMaintenance
	inst.BorrowerID = nil
	inst.DueBack = nil
	s.instances[id] = inst
	return true, nil
}

func (s *MemoryStore) SetDueBack(ctx context.Context, id uuid.UUID, due time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok || inst.Status != StatusOnLoan {
		return false, nil
	}
	inst.DueBack = &due
	s.instances[id] = inst
	return true, nil
}

func (s *MemoryStore) Counts(ctx context.Context, word string) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Counts{
		Books:     len(s.books),
		Instances: len(s.instances),
		Authors:   len(s.authors),
		Genres:    len(s.genres),
	}
	for _, inst := range s.instances {
		if inst.Status == StatusAvailable {
			c.InstancesAvailable++
		}
	}
	word = strings.ToLower(word)
	for _, b := range s.books {
		if word != "" && strings.Contains(strings.ToLower(b.Summary), word) {
			c.BooksWithWord++
		}
	}
	return c, nil
}

func (s *MemoryStore) withTitle(inst BookInstance) BookInstance {
	if b, ok := s.books[inst.BookID]; ok {
		inst.BookTitle = b.Title
	}
	return inst
}

// ---- helpers ----

// compareInstances orders by due date ascending, undated last.
func compareInstances(x, y BookInstance) int {
	switch {
	case x.DueBack == nil && y.DueBack != nil:
		return 1
	case x.DueBack != nil && y.DueBack == nil:
		return -1
	case x.DueBack != nil && y.DueBack != nil:
		if c := x.DueBack.Compare(*y.DueBack); c != 0 {
			return c
		}
	}
	return strings.Compare(x.ID.String(), y.ID.String())
}

func sortedByID[T any](m map[int64]T, id func(T) int64) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(x, y T) int { return cmp.Compare(id(x), id(y)) })
	return out
}

func window[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
