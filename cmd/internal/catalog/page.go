package catalog

// Page sizes of the paginated listings.
const (
	BooksPerPage    = 5
	AuthorsPerPage  = 10
	GenresPerPage   = 10
	BorrowedPerPage = 10
)

// Page is one page of a listing. Number is 1-based.
type Page[T any] struct {
	Items    []T
	Number   int
	PerPage  int
	Total    int
	NumPages int
}

// IsPaginated reports whether the listing spans more than one page.
func (p Page[T]) IsPaginated() bool { return p.NumPages > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p Page[T]) HasPrevious() bool { return p.Number > 1 }

// pageCount returns the number of pages for total rows and rejects a page
// number outside it. An empty listing still has page 1.
func pageCount(op string, number, perPage, total int) (int, error) {
	numPages := (total + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}
	if number < 1 || number > numPages {
		return numPages, OpError{Op: op, Kind: ErrNotFound, Msg: "invalid page"}
	}
	return numPages, nil
}
