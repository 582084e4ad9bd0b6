package catalogapi

import (
	"net/http"
	"strings"

	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/catalog"
	"locallibrary/cmd/internal/httpio"
)

func (h *Handler) handleBookList(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("q"), "available") {
		books, err := h.svc.ListAvailableBooks(r.Context())
		if err != nil {
			h.fail(w, r, "catalog.books.available", err)
			return
		}
		p := catalog.Page[catalog.Book]{Items: books, Number: 1, PerPage: len(books), Total: len(books), NumPages: 1}
		httpio.WriteJSON(w, http.StatusOK, toPage(p, toBook))
		return
	}

	n, ok := httpio.PageParam(r)
	if !ok {
		h.notFound(w)
		return
	}
	p, err := h.svc.ListBooks(r.Context(), n)
	if err != nil {
		h.fail(w, r, "catalog.books.list", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toPage(p, toBook))
}

func (h *Handler) handleBookDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	d, err := h.svc.BookDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, "catalog.book.detail", err)
		return
	}
	today := h.svc.Today()
	httpio.WriteJSON(w, http.StatusOK, bookDetailResponse{
		Book:      toBook(d.Book),
		Instances: toInstances(d.Instances, today),
	})
}

func (h *Handler) handleBookCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.CreateBook(r.Context(), bookInput(req))
	if err != nil {
		h.fail(w, r, "catalog.book.create", err)
		return
	}
	httpio.WriteJSON(w, http.StatusCreated, toBook(b))
}

func (h *Handler) handleBookUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.UpdateBook(r.Context(), id, bookInput(req))
	if err != nil {
		h.fail(w, r, "catalog.book.update", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toBook(b))
}

func (h *Handler) handleBookDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	id, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	if err := h.svc.DeleteBook(r.Context(), id); err != nil {
		h.fail(w, r, "catalog.book.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bookInput(req bookRequest) catalog.BookInput {
	return catalog.BookInput{
		Title:       req.Title,
		Summary:     req.Summary,
		ISBN:        req.ISBN,
		AuthorID:    req.AuthorID,
		GenreIDs:    req.GenreIDs,
		LanguageIDs: req.LanguageIDs,
	}
}

// ---- copies ----

func (h *Handler) handleInstanceCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	bookID, ok := intPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	var req instanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.BookID = bookID
	in, msg := instanceInput(req, catalog.BookInstance{})
	if msg != "" {
		httpio.WriteError(w, http.StatusBadRequest, "validation", msg)
		return
	}
	inst, err := h.svc.AddInstance(r.Context(), in)
	if err != nil {
		h.fail(w, r, "catalog.instance.create", err)
		return
	}
	httpio.WriteJSON(w, http.StatusCreated, toInstance(inst, h.svc.Today()))
}

func (h *Handler) handleInstanceUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	id, ok := uuidPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	var req instanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	cur, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		h.fail(w, r, "catalog.instance.update", err)
		return
	}
	in, msg := instanceInput(req, cur)
	if msg != "" {
		httpio.WriteError(w, http.StatusBadRequest, "validation", msg)
		return
	}
	inst, err := h.svc.UpdateInstance(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "catalog.instance.update", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, toInstance(inst, h.svc.Today()))
}

func (h *Handler) handleInstanceDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ManageCatalog); !ok {
		return
	}
	id, ok := uuidPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	if err := h.svc.DeleteInstance(r.Context(), id); err != nil {
		h.fail(w, r, "catalog.instance.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// instanceInput merges req over cur. It returns a validation message for a
// malformed status or a due date, which only borrowing and renewal set.
func instanceInput(req instanceRequest, cur catalog.BookInstance) (catalog.InstanceInput, string) {
	if req.DueBack != nil {
		return catalog.InstanceInput{}, "due_back: set by borrowing or renewal"
	}
	in := catalog.InstanceInput{
		BookID:  req.BookID,
		Imprint: req.Imprint,
	}
	if in.BookID == 0 {
		in.BookID = cur.BookID
	}
	if strings.TrimSpace(in.Imprint) == "" {
		in.Imprint = cur.Imprint
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		st, ok := catalog.ParseStatus(raw)
		if !ok {
			return catalog.InstanceInput{}, "status: must be one of m, o, a, r"
		}
		in.Status = st
	}
	return in, ""
}
