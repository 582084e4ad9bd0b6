package catalogapi

import (
	"net/http"
	"strings"

	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/catalog"
	"locallibrary/cmd/internal/httpio"
)

func (h *Handler) handleAuthorList(w http.ResponseWriter, r *http.Request) {
	n, ok := httpio.PageParam(r)
	if !ok {
		h.notFound(w)
		return
	}
	p, err := h.svc.ListAuthors(r.Context(), n)
	if err != nil {
		h.fail(w, r, "catalog.authors.list", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toPage(p, toAuthor))
}

func (h *Handler) handleAuthorDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	d, err := h.svc.AuthorDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, "catalog.author.detail", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, authorDetailResponse{Author: toAuthor(d.Author), Books: toBooks(d.Books)})
}

func (h *Handler) handleAuthorCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	in, ok := h.decodeAuthor(w, r)
	if !ok {
		return
	}
	a, err := h.svc.CreateAuthor(r.Context(), in)
	if err != nil {
		h.fail(w, r, "catalog.author.create", err)
		return
	}
	httpio.WriteJSON(w, http.StatusCreated, toAuthor(a))
}

func (h *Handler) handleAuthorUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	in, ok := h.decodeAuthor(w, r)
	if !ok {
		return
	}
	a, err := h.svc.UpdateAuthor(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "catalog.author.update", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toAuthor(a))
}

func (h *Handler) handleAuthorDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	if err := h.svc.DeleteAuthor(r.Context(), id); err != nil {
		h.fail(w, r, "catalog.author.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeAuthor(w http.ResponseWriter, r *http.Request) (catalog.AuthorInput, bool) {
	var req authorRequest
	if !h.decode(w, r, &req) {
		return catalog.AuthorInput{}, false
	}
	dob, err := catalog.ParseDate(req.DateOfBirth)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "validation", "date_of_birth: "+err.Error())
		return catalog.AuthorInput{}, false
	}
	dod, err := catalog.ParseDate(req.DateOfDeath)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "validation", "date_of_death: "+err.Error())
		return catalog.AuthorInput{}, false
	}
	return catalog.AuthorInput{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: dob,
		DateOfDeath: dod,
	}, true
}

// ---- genres and languages ----

func (h *Handler) handleGenreList(w http.ResponseWriter, r *http.Request) {
	n, ok := httpio.PageParam(r)
	if !ok {
		h.notFound(w)
		return
	}
	p, err := h.svc.ListGenres(r.Context(), n)
	if err != nil {
		h.fail(w, r, "catalog.genres.list", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toPage(p, func(g catalog.Genre) ref {
		return ref{ID: g.ID, Name: g.Name, URL: genreURL(g.ID)}
	}))
}

func (h *Handler) handleGenreDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	d, err := h.svc.GenreDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, "catalog.genre.detail", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, genreDetailResponse{
		Genre: ref{ID: d.Genre.ID, Name: d.Genre.Name, URL: genreURL(d.Genre.ID)},
		Books: toBooks(d.Books),
	})
}

func (h *Handler) handleGenreCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}
	g, err := h.svc.CreateGenre(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "catalog.genre.create", err)
		return
	}
	httpio.WriteJSON(w, http.StatusCreated, ref{ID: g.ID, Name: g.Name, URL: genreURL(g.ID)})
}

func (h *Handler) handleLanguageList(w http.ResponseWriter, r *http.Request) {
	langs, err := h.svc.ListLanguages(r.Context())
	if err != nil {
		h.fail(w, r, "catalog.languages.list", err)
		return
	}
	out := make([]ref, 0, len(langs))
	for _, l := range langs {
		out = append(out, ref{ID: l.ID, Name: l.Name})
	}
	httpio.WriteJSON(w, http.StatusOK, struct {
		Items []ref `json:"items"`
	}{Items: out})
}

func (h *Handler) handleLanguageCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.svc.CreateLanguage(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "catalog.language.create", err)
		return
	}
	httpio.WriteJSON(w, http.StatusCreated, ref{ID: l.ID, Name: l.Name})
}
