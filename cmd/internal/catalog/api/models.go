package catalogapi

import (
	"strconv"
	"time"

	"locallibrary/cmd/internal/catalog"
)

type authorRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	DateOfDeath string `json:"date_of_death"`
}

type bookRequest struct {
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	ISBN        string  `json:"isbn"`
	AuthorID    *int64  `json:"author_id"`
	GenreIDs    []int64 `json:"genre_ids"`
	LanguageIDs []int64 `json:"language_ids"`
}

// instanceRequest edits a copy. On update, an omitted book_id or imprint keeps
// the current value, an omitted due_back keeps the current date and "" clears it.
type instanceRequest struct {
	BookID  int64   `json:"book_id"`
	Imprint string  `json:"imprint"`
	Status  string  `json:"status"`
	DueBack *string `json:"due_back"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type renewRequest struct {
	RenewalDate string `json:"renewal_date"`
}

type ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type authorResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	DateOfDeath string `json:"date_of_death,omitempty"`
	URL         string `json:"url"`
}

type bookResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	ISBN            string `json:"isbn"`
	Author          *ref   `json:"author"`
	Genres          []ref  `json:"genres"`
	Languages       []ref  `json:"languages"`
	DisplayGenre    string `json:"display_genre"`
	DisplayLanguage string `json:"display_language"`
	URL             string `json:"url"`
}

type instanceResponse struct {
	ID          string  `json:"id"`
	BookID      int64   `json:"book_id"`
	BookTitle   string  `json:"book_title,omitempty"`
	Imprint     string  `json:"imprint"`
	Status      string  `json:"status"`
	StatusLabel string  `json:"status_label"`
	DueBack     string  `json:"due_back,omitempty"`
	IsOverdue   bool    `json:"is_overdue"`
	BorrowerID  *string `json:"borrower_id,omitempty"`
}

type pageResponse[T any] struct {
	Items       []T  `json:"items"`
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	NumPages    int  `json:"num_pages"`
	IsPaginated bool `json:"is_paginated"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type bookDetailResponse struct {
	Book      bookResponse       `json:"book"`
	Instances []instanceResponse `json:"instances"`
}

type authorDetailResponse struct {
	Author authorResponse `json:"author"`
	Books  []bookResponse `json:"books"`
}

type genreDetailResponse struct {
	Genre ref            `json:"genre"`
	Books []bookResponse `json:"books"`
}

type homeResponse struct {
	NumBooks              int `json:"num_books"`
	NumInstances          int `json:"num_instances"`
	NumInstancesAvailable int `json:"num_instances_available"`
	NumAuthors            int `json:"num_authors"`
	NumGenres             int `json:"num_genres"`
	NumWordBooks          int `json:"num_word_books"`
	NumVisits             int `json:"num_visits"`
}

type loanResponse struct {
	Message  string           `json:"message,omitempty"`
	Instance instanceResponse `json:"instance"`
}

type renewFormResponse struct {
	Instance    instanceResponse `json:"instance"`
	RenewalDate string           `json:"renewal_date"`
}

func bookURL(id int64) string   { return "/book/" + strconv.FormatInt(id, 10) }
func authorURL(id int64) string { return "/author/" + strconv.FormatInt(id, 10) }
func genreURL(id int64) string  { return "/genres/" + strconv.FormatInt(id, 10) }

func toAuthor(a catalog.Author) authorResponse {
	return authorResponse{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Name:        a.Name(),
		DateOfBirth: catalog.FormatDate(a.DateOfBirth),
		DateOfDeath: catalog.FormatDate(a.DateOfDeath),
		URL:         authorURL(a.ID),
	}
}

func toBook(b catalog.Book) bookResponse {
	out := bookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Summary:         b.Summary,
		ISBN:            b.ISBN,
		Genres:          make([]ref, 0, len(b.Genres)),
		Languages:       make([]ref, 0, len(b.Languages)),
		DisplayGenre:    b.DisplayGenre(),
		DisplayLanguage: b.DisplayLanguage(),
		URL:             bookURL(b.ID),
	}
	if b.Author != nil {
		out.Author = &ref{ID: b.Author.ID, Name: b.Author.Name(), URL: authorURL(b.Author.ID)}
	}
	for _, g := range b.Genres {
		out.Genres = append(out.Genres, ref{ID: g.ID, Name: g.Name, URL: genreURL(g.ID)})
	}
	for _, l := range b.Languages {
		out.Languages = append(out.Languages, ref{ID: l.ID, Name: l.Name})
	}
	return out
}

func toBooks(books []catalog.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBook(b))
	}
	return out
}

func toInstance(bi catalog.BookInstance, today time.Time) instanceResponse {
	return instanceResponse{
		ID:          bi.ID.String(),
		BookID:      bi.BookID,
		BookTitle:   bi.BookTitle,
		Imprint:     bi.Imprint,
		Status:      string(bi.Status),
		StatusLabel: bi.Status.Label(),
		DueBack:     catalog.FormatDate(bi.DueBack),
		IsOverdue:   bi.IsOverdue(today),
		BorrowerID:  bi.BorrowerID,
	}
}

func toInstances(list []catalog.BookInstance, today time.Time) []instanceResponse {
	out := make([]instanceResponse, 0, len(list))
	for _, bi := range list {
		out = append(out, toInstance(bi, today))
	}
	return out
}

func toPage[T, R any](p catalog.Page[T], conv func(T) R) pageResponse[R] {
	items := make([]R, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResponse[R]{
		Items:       items,
		Page:        p.Number,
		PerPage:     p.PerPage,
		Total:       p.Total,
		NumPages:    p.NumPages,
		IsPaginated: p.IsPaginated(),
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
	}
}

func toHome(c catalog.Counts, visits int) homeResponse {
	return homeResponse{
		NumBooks:              c.Books,
		NumInstances:          c.Instances,
		NumInstancesAvailable: c.InstancesAvailable,
		NumAuthors:            c.Authors,
		NumGenres:             c.Genres,
		NumWordBooks:          c.BooksWithWord,
		NumVisits:             visits,
	}
}
