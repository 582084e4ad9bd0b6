package catalogapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/catalog"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	anonymous = access.Actor{}
	member    = access.Actor{UserID: "01HZMEMBER0000000000000000", Username: "reader"}
	librarian = access.Actor{
		UserID:      "01HZLIBRARIAN0000000000000",
		Username:    "librarian",
		Permissions: []string{access.PermMarkReturned},
	}
)

type testServer struct {
	mux *http.ServeMux
	svc *catalog.Service
	now time.Time
}

func newTestServer(t *testing.T, opts ...HandlerOption) *testServer {
	t.Helper()

	ts := &testServer{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := catalog.NewService(catalog.NewMemoryStore(),
		catalog.WithClock(func() time.Time { return ts.now }),
		catalog.WithLogger(log),
	)
	require.NoError(t, err)
	h, err := NewHandler(log, svc, DefaultConfig(), opts...)
	require.NoError(t, err)

	ts.svc = svc
	ts.mux = http.NewServeMux()
	h.Register(ts.mux)
	return ts
}

func (ts *testServer) do(t *testing.T, actor access.Actor, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := jsoniter.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(access.WithActor(req.Context(), actor))
	rr := httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) seedBook(t *testing.T, title, isbn string) catalog.Book {
	t.Helper()
	b, err := ts.svc.CreateBook(context.Background(), catalog.BookInput{
		Title:   title,
		Summary: "A story about " + title + ".",
		ISBN:    isbn,
	})
	require.NoError(t, err)
	return b
}

func (ts *testServer) seedCopy(t *testing.T, bookID int64, st catalog.Status) catalog.BookInstance {
	t.Helper()
	inst, err := ts.svc.AddInstance(context.Background(), catalog.InstanceInput{
		BookID:  bookID,
		Imprint: "Ace, 1965",
		Status:  st,
	})
	require.NoError(t, err)
	return inst
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, jsoniter.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	var eb errorBody
	decodeBody(t, rr, &eb)
	assert.Equal(t, code, eb.Error.Code)
	return eb
}

func TestHome(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, WithVisitCounter(func(http.ResponseWriter, *http.Request) (int, error) {
		return 7, nil
	}))
	dune := ts.seedBook(t, "Dune", "9780441013593")
	ts.seedCopy(t, dune.ID, catalog.StatusAvailable)
	ts.seedCopy(t, dune.ID, catalog.StatusMaintenance)
	_, err := ts.svc.CreateBook(context.Background(), catalog.BookInput{
		Title: "Emma", Summary: "Matchmaking and love.", ISBN: "9780141439587",
	})
	require.NoError(t, err)

	rr := ts.do(t, anonymous, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got homeResponse
	decodeBody(t, rr, &got)
	assert.Equal(t, homeResponse{
		NumBooks:              2,
		NumInstances:          2,
		NumInstancesAvailable: 1,
		NumWordBooks:          1,
		NumVisits:             7,
	}, got)
}

func TestBookList_Pagination(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	for i := range 7 {
		ts.seedBook(t, fmt.Sprintf("Book %d", i), fmt.Sprintf("97800000000%02d", i))
	}

	var p1 pageResponse[bookResponse]
	rr := ts.do(t, anonymous, http.MethodGet, "/books/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &p1)
	assert.Len(t, p1.Items, catalog.BooksPerPage)
	assert.True(t, p1.IsPaginated)
	assert.True(t, p1.HasNext)
	assert.Equal(t, 2, p1.NumPages)

	var p2 pageResponse[bookResponse]
	rr = ts.do(t, anonymous, http.MethodGet, "/books/?page=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &p2)
	assert.Len(t, p2.Items, 2)
	assert.False(t, p2.HasNext)
	assert.True(t, p2.HasPrevious)

	requireError(t, ts.do(t, anonymous, http.MethodGet, "/books/?page=3", nil), http.StatusNotFound, "not_found")
	requireError(t, ts.do(t, anonymous, http.MethodGet, "/books/?page=abc", nil), http.StatusNotFound, "not_found")
}

func TestBookList_Available(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	dune := ts.seedBook(t, "Dune", "9780441013593")
	emma := ts.seedBook(t, "Emma", "9780141439587")
	ts.seedCopy(t, dune.ID, catalog.StatusAvailable)
	ts.seedCopy(t, emma.ID, catalog.StatusMaintenance)

	var p pageResponse[bookResponse]
	rr := ts.do(t, anonymous, http.MethodGet, "/books/?q=available", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &p)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Dune", p.Items[0].Title)
	assert.Equal(t, "/book/"+fmt.Sprint(dune.ID), p.Items[0].URL)
}

func TestBookDetail(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	dune := ts.seedBook(t, "Dune", "9780441013593")
	inst := ts.seedCopy(t, dune.ID, catalog.StatusAvailable)

	var got bookDetailResponse
	rr := ts.do(t, anonymous, http.MethodGet, fmt.Sprintf("/book/%d", dune.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &got)
	assert.Equal(t, "Dune", got.Book.Title)
	require.Len(t, got.Instances, 1)
	assert.Equal(t, inst.ID.String(), got.Instances[0].ID)
	assert.Equal(t, "Available", got.Instances[0].StatusLabel)

	requireError(t, ts.do(t, anonymous, http.MethodGet, "/book/999", nil), http.StatusNotFound, "not_found")
	requireError(t, ts.do(t, anonymous, http.MethodGet, "/book/abc", nil), http.StatusNotFound, "not_found")
}

func TestAllBorrowed_AccessMatrix(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rr := ts.do(t, anonymous, http.MethodGet, "/borrowed/", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/accounts/login/?next=%2Fborrowed%2F", rr.Header().Get("Location"))

	requireError(t, ts.do(t, member, http.MethodGet, "/borrowed/", nil), http.StatusForbidden, "forbidden")

	rr = ts.do(t, librarian, http.MethodGet, "/borrowed/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[]}`, rr.Body.String())
}

func TestBorrowReturnFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	dune := ts.seedBook(t, "Dune", "9780441013593")
	inst := ts.seedCopy(t, dune.ID, catalog.StatusAvailable)
	borrowURL := "/book/" + inst.ID.String() + "/borrow/"
	returnURL := "/book/" + inst.ID.String() + "/return/"

	rr := ts.do(t, anonymous, http.MethodPost, borrowURL, nil)
	assert.Equal(t, http.StatusFound, rr.Code)

	var borrowed loanResponse
	rr = ts.do(t, member, http.MethodPost, borrowURL, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &borrowed)
	assert.Equal(t, "o", borrowed.Instance.Status)
	assert.Equal(t, "2024-03-22", borrowed.Instance.DueBack)
	require.NotNil(t, borrowed.Instance.BorrowerID)
	assert.Equal(t, member.UserID, *borrowed.Instance.BorrowerID)

	requireError(t, ts.do(t, librarian, http.MethodPost, borrowURL, nil), http.StatusConflict, "conflict")

	var mine pageResponse[instanceResponse]
	rr = ts.do(t, member, http.MethodGet, "/mybooks/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &mine)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Dune", mine.Items[0].BookTitle)

	var returned loanResponse
	rr = ts.do(t, member, http.MethodPost, returnURL, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &returned)
	assert.Equal(t, "Thank you, for returning book (Dune) on time.", returned.Message)
	assert.Equal(t, "m", returned.Instance.Status)
	assert.Nil(t, returned.Instance.BorrowerID)

	requireError(t, ts.do(t, member, http.MethodPost, returnURL, nil), http.StatusConflict, "conflict")

	rr = ts.do(t, member, http.MethodGet, "/mybooks/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &mine)
	assert.Empty(t, mine.Items)
}

func TestReturn_OverdueRefused(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	dune := ts.seedBook(t, "Dune", "9780441013593")
	inst := ts.seedCopy(t, dune.ID, catalog.StatusAvailable)

	rr := ts.do(t, member, http.MethodPost, "/book/"+inst.ID.String()+"/borrow/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	ts.now = ts.now.AddDate(0, 0, 22)

	eb := requireError(t, ts.do(t, member, http.MethodPost, "/book/"+inst.ID.String()+"/return/", nil), http.StatusConflict, "overdue")
	assert.Equal(t, catalog.DefaultFineNotice, eb.Error.Message)

	stored, err := ts.svc.GetInstance(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusOnLoan, stored.Status)
}

func TestRenew(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	dune := ts.seedBook(t, "Dune", "9780441013593")
	inst := ts.seedCopy(t, dune.ID, catalog.StatusAvailable)
	renewURL := "/book/" + inst.ID.String() + "/renew/"

	rr := ts.do(t, member, http.MethodPost, "/book/"+inst.ID.String()+"/borrow/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	t.Run("form proposes three weeks", func(t *testing.T) {
		var form renewFormResponse
		rr := ts.do(t, librarian, http.MethodGet, renewURL, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		decodeBody(t, rr, &form)
		assert.Equal(t, "2024-03-22", form.RenewalDate)
	})

	t.Run("members are forbidden", func(t *testing.T) {
		requireError(t, ts.do(t, member, http.MethodGet, renewURL, nil), http.StatusForbidden, "forbidden")
	})

	t.Run("unknown copy", func(t *testing.T) {
		requireError(t, ts.do(t, librarian, http.MethodGet, "/book/"+uuid.NewString()+"/renew/", nil), http.StatusNotFound, "not_found")
		requireError(t, ts.do(t, librarian, http.MethodGet, "/book/not-a-uuid/renew/", nil), http.StatusNotFound, "not_found")
	})

	t.Run("date validation", func(t *testing.T) {
		eb := requireError(t, ts.do(t, librarian, http.MethodPost, renewURL, renewRequest{RenewalDate: "2024-02-28"}), http.StatusBadRequest, "validation")
		assert.Equal(t, "Invalid date - Renewal in past.", eb.Error.Message)

		eb = requireError(t, ts.do(t, librarian, http.MethodPost, renewURL, renewRequest{RenewalDate: "2024-03-30"}), http.StatusBadRequest, "validation")
		assert.Equal(t, "Invalid date - Renewal more than 4 weeks ahead.", eb.Error.Message)

		requireError(t, ts.do(t, librarian, http.MethodPost, renewURL, renewRequest{}), http.StatusBadRequest, "validation")
	})

	t.Run("renews", func(t *testing.T) {
		var got loanResponse
		rr := ts.do(t, librarian, http.MethodPost, renewURL, renewRequest{RenewalDate: "2024-03-29"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		decodeBody(t, rr, &got)
		assert.Equal(t, "2024-03-29", got.Instance.DueBack)
	})
}

func TestCreateRoutesAreExact(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	for _, target := range []string{"/book/create/x", "/author/create/x", "/genres/create/x", "/languages/create/x"} {
		rr := ts.do(t, librarian, http.MethodPost, target, nameRequest{Name: "x"})
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
	}
}

func TestAuthorCRUD(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	req := authorRequest{FirstName: "Frank", LastName: "Herbert", DateOfBirth: "1920-10-08", DateOfDeath: "1986-02-11"}

	requireError(t, ts.do(t, member, http.MethodPost, "/author/create/", req), http.StatusForbidden, "forbidden")

	var created authorResponse
	rr := ts.do(t, librarian, http.MethodPost, "/author/create/", req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	decodeBody(t, rr, &created)
	assert.Equal(t, "Frank Herbert", created.Name)
	assert.Equal(t, "1920-10-08", created.DateOfBirth)

	bad := req
	bad.DateOfBirth, bad.DateOfDeath = "1990-01-01", "1980-01-01"
	eb := requireError(t, ts.do(t, librarian, http.MethodPost, "/author/create/", bad), http.StatusBadRequest, "validation")
	assert.Equal(t, "Invalid dates - Date of Birth can't be greater than Date of Death.", eb.Error.Message)

	bad.DateOfBirth = "08/10/1920"
	requireError(t, ts.do(t, librarian, http.MethodPost, "/author/create/", bad), http.StatusBadRequest, "validation")

	var detail authorDetailResponse
	rr = ts.do(t, anonymous, http.MethodGet, created.URL, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &detail)
	assert.Equal(t, created.ID, detail.Author.ID)
	assert.Empty(t, detail.Books)

	rr = ts.do(t, librarian, http.MethodPost, fmt.Sprintf("/author/%d/delete/", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	requireError(t, ts.do(t, anonymous, http.MethodGet, created.URL, nil), http.StatusNotFound, "not_found")
}

func TestBookCreate_ISBNConflict(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	req := bookRequest{Title: "Dune", Summary: "Spice.", ISBN: "9780441013593"}

	rr := ts.do(t, librarian, http.MethodPost, "/book/create/", req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	requireError(t, ts.do(t, librarian, http.MethodPost, "/book/create/", req), http.StatusConflict, "conflict")
	requireError(t, ts.do(t, librarian, http.MethodPost, "/book/create/", bookRequest{Title: "x"}), http.StatusBadRequest, "validation")

	rr = ts.do(t, librarian, http.MethodPost, "/book/create/", "not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInstanceUpdate_KeepsOmittedFields(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	dune := ts.seedBook(t, "Dune", "9780441013593")
	inst := ts.seedCopy(t, dune.ID, catalog.StatusMaintenance)
	target := "/bookinstance/" + inst.ID.String() + "/update/"

	var got instanceResponse
	rr := ts.do(t, librarian, http.MethodPost, target, map[string]string{"status": "available"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &got)
	assert.Equal(t, "a", got.Status)
	assert.Equal(t, "Ace, 1965", got.Imprint)
	assert.Equal(t, dune.ID, got.BookID)

	requireError(t, ts.do(t, librarian, http.MethodPost, target, map[string]string{"status": "on loan"}), http.StatusBadRequest, "validation")
	requireError(t, ts.do(t, librarian, http.MethodPost, target, map[string]string{"status": "lost"}), http.StatusBadRequest, "validation")
	requireError(t, ts.do(t, librarian, http.MethodPost, target, map[string]string{"due_back": "2030-01-02"}), http.StatusBadRequest, "validation")

	rr = ts.do(t, librarian, http.MethodPost, "/bookinstance/"+inst.ID.String()+"/delete/", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	requireError(t, ts.do(t, librarian, http.MethodPost, target, map[string]string{"status": "a"}), http.StatusNotFound, "not_found")
}

func TestGenresAndLanguages(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	var g ref
	rr := ts.do(t, librarian, http.MethodPost, "/genres/create/", nameRequest{Name: "Science Fiction"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	decodeBody(t, rr, &g)

	rr = ts.do(t, librarian, http.MethodPost, "/languages/create/", nameRequest{Name: "English"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var genres pageResponse[ref]
	rr = ts.do(t, anonymous, http.MethodGet, "/genres/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &genres)
	require.Len(t, genres.Items, 1)
	assert.Equal(t, "Science Fiction", genres.Items[0].Name)

	var detail genreDetailResponse
	rr = ts.do(t, anonymous, http.MethodGet, g.URL, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &detail)
	assert.Equal(t, g.ID, detail.Genre.ID)

	rr = ts.do(t, anonymous, http.MethodGet, "/languages/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"English"`)
}
