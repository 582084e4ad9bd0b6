package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Listings are built with goqu in prepared mode, writes are plain SQL.
// - Loan transitions are single conditional UPDATEs; RowsAffected decides the outcome.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	qb     goqu.DialectWrapper
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "locallibrary").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("catalog: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("catalog: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "locallibrary",
		qb:     goqu.Dialect("postgres"),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("catalog: nil pool")
	}
	return st, nil
}

var _ Store = (*PostgresStore)(nil)

// ---- authors ----

const authorCols = `id, first_name, last_name, date_of_birth, date_of_death`

func (s *PostgresStore) CreateAuthor(ctx context.Context, in AuthorInput) (Author, error) {
	const op = "catalog.CreateAuthor"

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.ident("authors")+` (first_name, last_name, date_of_birth, date_of_death)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+authorCols,
		in.FirstName, in.LastName, in.DateOfBirth, in.DateOfDeath,
	)
	a, err := scanAuthor(row)
	if err != nil {
		return Author{}, pgClassify(op, err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (Author, error) {
	const op = "catalog.UpdateAuthor"

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.ident("authors")+`
		    SET first_name = $2, last_name = $3, date_of_birth = $4, date_of_death = $5
		  WHERE id = $1
		 RETURNING `+authorCols,
		id, in.FirstName, in.LastName, in.DateOfBirth, in.DateOfDeath,
	)
	a, err := scanAuthor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, notFound(op, "author")
		}
		return Author{}, pgClassify(op, err)
	}
	return a, nil
}

func (s *PostgresStore) DeleteAuthor(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "catalog.DeleteAuthor", "authors", "author", id)
}

func (s *PostgresStore) GetAuthor(ctx context.Context, id int64) (Author, error) {
	const op = "catalog.GetAuthor"

	row := s.pool.QueryRow(ctx,
		`SELECT `+authorCols+` FROM `+s.ident("authors")+` WHERE id = $1`, id)
	a, err := scanAuthor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, notFound(op, "author")
		}
		return Author{}, err
	}
	return a, nil
}

func (s *PostgresStore) ListAuthors(ctx context.Context, offset, limit int) ([]Author, int, error) {
	ds := s.qb.From(s.table("authors")).
		Select(goqu.C("id"), goqu.C("first_name"), goqu.C("last_name"), goqu.C("date_of_birth"), goqu.C("date_of_death")).
		Order(goqu.C("first_name").Asc(), goqu.C("last_name").Asc(), goqu.C("id").Asc())

	total, err := s.count(ctx, s.qb.From(s.table("authors")))
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.query(ctx, paged(ds, offset, limit))
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (Author, error) { return scanAuthor(r) })
	return out, total, err
}

func scanAuthor(row pgx.Row) (Author, error) {
	var a Author
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.DateOfBirth, &a.DateOfDeath)
	return a, err
}

// ---- genres & languages ----

func (s *PostgresStore) CreateGenre(ctx context.Context, name string) (Genre, error) {
	var g Genre
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.ident("genres")+` (name) VALUES ($1) RETURNING id, name`, name,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		return Genre{}, pgClassify("catalog.CreateGenre", err)
	}
	return g, nil
}

func (s *PostgresStore) GetGenre(ctx context.Context, id int64) (Genre, error) {
	var g Genre
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM `+s.ident("genres")+` WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Genre{}, notFound("catalog.GetGenre", "genre")
		}
		return Genre{}, err
	}
	return g, nil
}

func (s *PostgresStore) ListGenres(ctx context.Context, offset, limit int) ([]Genre, int, error) {
	total, err := s.count(ctx, s.qb.From(s.table("genres")))
	if err != nil {
		return nil, 0, err
	}
	ds := s.qb.From(s.table("genres")).Select(goqu.C("id"), goqu.C("name")).Order(goqu.C("id").Asc())
	rows, err := s.query(ctx, paged(ds, offset, limit))
	if err != nil {
		return nil, 0, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Genre])
	return out, total, err
}

func (s *PostgresStore) CreateLanguage(ctx context.Context, name string) (Language, error) {
	var l Language
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.ident("languages")+` (name) VALUES ($1) RETURNING id, name`, name,
	).Scan(&l.ID, &l.Name)
	if err != nil {
		return Language{}, pgClassify("catalog.CreateLanguage", err)
	}
	return l, nil
}

func (s *PostgresStore) ListLanguages(ctx context.Context) ([]Language, error) {
	ds := s.qb.From(s.table("languages")).Select(goqu.C("id"), goqu.C("name")).Order(goqu.C("id").Asc())
	rows, err := s.query(ctx, ds)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Language])
}

// ---- books ----

func (s *PostgresStore) CreateBook(ctx context.Context, in BookInput) (Book, error) {
	const op = "catalog.CreateBook"

	var id int64
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO `+s.ident("books")+` (title, summary, isbn, author_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			in.Title, in.Summary, strings.TrimSpace(in.ISBN), in.AuthorID,
		).Scan(&id)
		if err != nil {
			return err
		}
		return s.replaceBookLinks(ctx, tx, id, in)
	})
	if err != nil {
		return Book{}, pgClassify(op, err)
	}
	return s.GetBook(ctx, id)
}

func (s *PostgresStore) UpdateBook(ctx context.Context, id int64, in BookInput) (Book, error) {
	const op = "catalog.UpdateBook"

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`UPDATE `+s.ident("books")+`
			    SET title = $2, summary = $3, isbn = $4, author_id = $5
			  WHERE id = $1`,
			id, in.Title, in.Summary, strings.TrimSpace(in.ISBN), in.AuthorID,
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return notFound(op, "book")
		}
		return s.replaceBookLinks(ctx, tx, id, in)
	})
	if err != nil {
		return Book{}, pgClassify(op, err)
	}
	return s.GetBook(ctx, id)
}

// replaceBookLinks rewrites the genre and language links of a book.
func (s *PostgresStore) replaceBookLinks(ctx context.Context, tx pgx.Tx, id int64, in BookInput) error {
	links := []struct {
		table, col string
		ids        []int64
	}{
		{"book_genres", "genre_id", uniqueIDs(in.GenreIDs)},
		{"book_languages", "language_id", uniqueIDs(in.LanguageIDs)},
	}
	for _, l := range links {
		t := s.ident(l.table)
		if _, err := tx.Exec(ctx, `DELETE FROM `+t+` WHERE book_id = $1`, id); err != nil {
			return err
		}
		if len(l.ids) == 0 {
			continue
		}
		col := pgx.Identifier{l.col}.Sanitize()
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+t+` (book_id, `+col+`) SELECT $1, unnest($2::bigint[])`,
			id, l.ids,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) DeleteBook(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "catalog.DeleteBook", "books", "book", id)
}

func (s *PostgresStore) GetBook(ctx context.Context, id int64) (Book, error) {
	books, err := s.selectBooks(ctx, s.booksQuery(goqu.I("b.id").Eq(id)))
	if err != nil {
		return Book{}, err
	}
	if len(books) == 0 {
		return Book{}, notFound("catalog.GetBook", "book")
	}
	return books[0], nil
}

func (s *PostgresStore) ListBooks(ctx context.Context, f BookFilter, offset, limit int) ([]Book, int, error) {
	var conds []exp.Expression
	if f.Available {
		conds = append(conds, goqu.I("b.id").In(
			s.qb.From(s.table("book_instances")).
				Select(goqu.C("book_id")).
				Where(goqu.C("status").Eq(string(StatusAvailable))),
		))
	}
	if f.AuthorID != nil {
		conds = append(conds, goqu.I("b.author_id").Eq(*f.AuthorID))
	}
	if f.GenreID != nil {
		conds = append(conds, goqu.I("b.id").In(
			s.qb.From(s.table("book_genres")).
				Select(goqu.C("book_id")).
				Where(goqu.C("genre_id").Eq(*f.GenreID)),
		))
	}

	total, err := s.count(ctx, s.qb.From(s.table("books").As("b")).Where(conds...))
	if err != nil {
		return nil, 0, err
	}
	books, err := s.selectBooks(ctx, paged(s.booksQuery(conds...), offset, limit))
	return books, total, err
}

func (s *PostgresStore) booksQuery(conds ...exp.Expression) *goqu.SelectDataset {
	return s.qb.From(s.table("books").As("b")).
		LeftJoin(s.table("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Select(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.summary"), goqu.I("b.isbn"), goqu.I("b.author_id"),
			goqu.I("a.first_name"), goqu.I("a.last_name"), goqu.I("a.date_of_birth"), goqu.I("a.date_of_death"),
		).
		Where(conds...).
		Order(goqu.I("b.id").Asc())
}

func (s *PostgresStore) selectBooks(ctx context.Context, ds *goqu.SelectDataset) ([]Book, error) {
	rows, err := s.query(ctx, ds)
	if err != nil {
		return nil, err
	}
	books, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (Book, error) {
		var (
			b           Book
			first, last *string
			born, died  *time.Time
		)
		if err := r.Scan(&b.ID, &b.Title, &b.Summary, &b.ISBN, &b.AuthorID, &first, &last, &born, &died); err != nil {
			return Book{}, err
		}
		if b.AuthorID != nil && first != nil && last != nil {
			b.Author = &Author{ID: *b.AuthorID, FirstName: *first, LastName: *last, DateOfBirth: born, DateOfDeath: died}
		}
		b.Genres = []Genre{}
		b.Languages = []Language{}
		return b, nil
	})
	if err != nil || len(books) == 0 {
		return books, err
	}

	ids := make([]int64, len(books))
	byID := make(map[int64]int, len(books))
	for i, b := range books {
		ids[i] = b.ID
		byID[b.ID] = i
	}
	if err := s.loadLinks(ctx, "book_genres", "genre_id", "genres", ids, func(bookID int64, id int64, name string) {
		books[byID[bookID]].Genres = append(books[byID[bookID]].Genres, Genre{ID: id, Name: name})
	}); err != nil {
		return nil, err
	}
	if err := s.loadLinks(ctx, "book_languages", "language_id", "languages", ids, func(bookID int64, id int64, name string) {
		books[byID[bookID]].Languages = append(books[byID[bookID]].Languages, Language{ID: id, Name: name})
	}); err != nil {
		return nil, err
	}
	return books, nil
}

func (s *PostgresStore) loadLinks(ctx context.Context, link, col, target string, bookIDs []int64, add func(bookID, id int64, name string)) error {
	ds := s.qb.From(s.table(link).As("l")).
		Join(s.table(target).As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("l."+col)))).
		Select(goqu.I("l.book_id"), goqu.I("t.id"), goqu.I("t.name")).
		Where(goqu.I("l.book_id").In(bookIDs)).
		Order(goqu.I("l.book_id").Asc(), goqu.I("t.id").Asc())

	rows, err := s.query(ctx, ds)
	if err != nil {
		return err
	}
	var (
		bookID, id int64
		name       string
	)
	_, err = pgx.ForEachRow(rows, []any{&bookID, &id, &name}, func() error {
		add(bookID, id, name)
		return nil
	})
	return err
}

// ---- instances ----

const instanceReturning = `id, book_id, imprint, due_back, status, borrower_id`

func (s *PostgresStore) CreateInstance(ctx context.Context, in InstanceInput) (BookInstance, error) {
	const op = "catalog.CreateInstance"

	id, err := uuid.NewRandom()
	if err != nil {
		return BookInstance{}, err
	}
	status := in.Status
	if status == "" {
		status = StatusMaintenance
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.ident("book_instances")+` (id, book_id, imprint, due_back, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, in.BookID, in.Imprint, in.DueBack, string(status),
	)
	if err != nil {
		return BookInstance{}, pgClassify(op, err)
	}
	return s.GetInstance(ctx, id)
}

func (s *PostgresStore) UpdateInstance(ctx context.Context, id uuid.UUID, in InstanceInput) (bool, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("book_instances")+`
		    SET book_id = $2, imprint = $3,
		        status = COALESCE(NULLIF($5, ''), status),
		        due_back = CASE WHEN COALESCE(NULLIF($5, ''), status) = 'o' THEN $4::date END
		  WHERE id = $1
		    AND status <> 'o'`,
		id, in.BookID, in.Imprint, in.DueBack, string(in.Status),
	)
	if err != nil {
		return false, pgClassify("catalog.UpdateInstance", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresStore) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.ident("book_instances")+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound("catalog.DeleteInstance", "book instance")
	}
	return nil
}

func (s *PostgresStore) GetInstance(ctx context.Context, id uuid.UUID) (BookInstance, error) {
	out, err := s.selectInstances(ctx, s.instancesQuery(goqu.I("bi.id").Eq(id)))
	if err != nil {
		return BookInstance{}, err
	}
	if len(out) == 0 {
		return BookInstance{}, notFound("catalog.GetInstance", "book instance")
	}
	return out[0], nil
}

func (s *PostgresStore) ListInstances(ctx context.Context, f InstanceFilter, offset, limit int) ([]BookInstance, int, error) {
	var conds []exp.Expression
	if f.BookID != nil {
		conds = append(conds, goqu.I("bi.book_id").Eq(*f.BookID))
	}
	if f.BorrowerID != nil {
		conds = append(conds, goqu.I("bi.borrower_id").Eq(*f.BorrowerID))
	}
	if f.Status != nil {
		conds = append(conds, goqu.I("bi.status").Eq(string(*f.Status)))
	}

	total, err := s.count(ctx, s.qb.From(s.table("book_instances").As("bi")).Where(conds...))
	if err != nil {
		return nil, 0, err
	}
	out, err := s.selectInstances(ctx, paged(s.instancesQuery(conds...), offset, limit))
	return out, total, err
}

func (s *PostgresStore) instancesQuery(conds ...exp.Expression) *goqu.SelectDataset {
	return s.qb.From(s.table("book_instances").As("bi")).
		Join(s.table("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("bi.book_id")))).
		Select(
			goqu.I("bi.id"), goqu.I("bi.book_id"), goqu.I("b.title"), goqu.I("bi.imprint"),
			goqu.I("bi.due_back"), goqu.I("bi.status"), goqu.I("bi.borrower_id"),
		).
		Where(conds...).
		Order(goqu.I("bi.due_back").Asc().NullsLast(), goqu.I("bi.id").Asc())
}

func (s *PostgresStore) selectInstances(ctx context.Context, ds *goqu.SelectDataset) ([]BookInstance, error) {
	rows, err := s.query(ctx, ds)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (BookInstance, error) {
		var (
			bi     BookInstance
			status string
		)
		err := r.Scan(&bi.ID, &bi.BookID, &bi.BookTitle, &bi.Imprint, &bi.DueBack, &status, &bi.BorrowerID)
		bi.Status = Status(status)
		return bi, err
	})
}

func (s *PostgresStore) MarkOnLoan(ctx context.Context, id uuid.UUID, borrowerID string, due time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("book_instances")+`
		    SET status = 'o', borrower_id = $2, due_back = $3
		  WHERE id = $1
		    AND status <> 'o'`,
		id, borrowerID, due,
	)
	if err != nil {
		return false, pgClassify("catalog.MarkOnLoan", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresStore) MarkReturned(ctx context.Context, id uuid.UUID, today time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("book_instances")+`
		    SET status = 'm', borrower_id = NULL, due_back = NULL
		  WHERE id = $1
		    AND status = 'o'
		    AND (due_back IS NULL OR due_back >= $2)`,
		id, today,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetDueBack(ctx context.Context, id uuid.UUID, due time.Time) (bool, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.ident("book_instances")+`
		    SET due_back = $2
		  WHERE id = $1
		    AND status = 'o'`,
		id, due,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresStore) Counts(ctx context.Context, word string) (Counts, error) {
	var c Counts
	pattern := "%" + likeEscaper.Replace(word) + "%"
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT count(*) FROM `+s.ident("books")+`),
		   (SELECT count(*) FROM `+s.ident("book_instances")+`),
		   (SELECT count(*) FROM `+s.ident("book_instances")+` WHERE status = 'a'),
		   (SELECT count(*) FROM `+s.ident("authors")+`),
		   (SELECT count(*) FROM `+s.ident("genres")+`),
		   (SELECT count(*) FROM `+s.ident("books")+` WHERE $1 <> '%%' AND summary ILIKE $1)`,
		pattern,
	).Scan(&c.Books, &c.Instances, &c.InstancesAvailable, &c.Authors, &c.Genres, &c.BooksWithWord)
	return c, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ---- helpers ----

func (s *PostgresStore) ident(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *PostgresStore) table(name string) exp.IdentifierExpression {
	return goqu.S(s.schema).Table(name)
}

func (s *PostgresStore) query(ctx context.Context, ds *goqu.SelectDataset) (pgx.Rows, error) {
	sql, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("catalog: build query: %w", err)
	}
	return s.pool.Query(ctx, sql, args...)
}

func (s *PostgresStore) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	sql, args, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("catalog: build count: %w", err)
	}
	var n int
	err = s.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

func (s *PostgresStore) deleteByID(ctx context.Context, op, table, resource string, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.ident(table)+` WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == "23503" {
			return conflict(op, resource+" is still referenced")
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, resource)
	}
	return nil
}

func paged(ds *goqu.SelectDataset, offset, limit int) *goqu.SelectDataset {
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return ds
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	return pgErr.Code
}

// pgClassify maps constraint violations to catalog error kinds. Errors that
// are already typed pass through unchanged.
func pgClassify(op string, err error) error {
	var oe OpError
	if errors.As(err, &oe) {
		return err
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == "uq_books_isbn" {
			return conflict(op, "book with this ISBN already exists")
		}
		return conflict(op, "duplicate value")
	case "23503": // foreign_key_violation
		return notFound(op, fkResource(pgErr.ConstraintName))
	case "23514": // check_violation
		if pgErr.ConstraintName == "ck_authors_dates" {
			return invalid(op, authorDatesMsg)
		}
		return invalid(op, "constraint violated")
	default:
		return err
	}
}

func fkResource(constraint string) string {
	switch constraint {
	case "fk_books_author":
		return "author"
	case "fk_book_genres_genre":
		return "genre"
	case "fk_book_languages_language":
		return "language"
	case "fk_book_instances_book":
		return "book"
	case "fk_book_instances_borrower":
		return "borrower"
	default:
		return "referenced row"
	}
}
