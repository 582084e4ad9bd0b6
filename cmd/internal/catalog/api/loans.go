package catalogapi

import (
	"fmt"
	"net/http"

	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/catalog"
	"locallibrary/cmd/internal/httpio"
)

func (h *Handler) handleMyBooks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, access.ViewOwnLoans)
	if !ok {
		return
	}
	n, ok := httpio.PageParam(r)
	if !ok {
		h.notFound(w)
		return
	}
	p, err := h.svc.ListBorrowedBy(r.Context(), actor.UserID, n)
	if err != nil {
		h.fail(w, r, "catalog.mybooks", err)
		return
	}
	today := h.svc.Today()
	httpio.WriteJSON(w, http.StatusOK, toPage(p, func(bi catalog.BookInstance) instanceResponse {
		return toInstance(bi, today)
	}))
}

func (h *Handler) handleAllBorrowed(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ViewAllOnLoan); !ok {
		return
	}
	list, err := h.svc.ListAllOnLoan(r.Context())
	if err != nil {
		h.fail(w, r, "catalog.borrowed", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, struct {
		Items []instanceResponse `json:"items"`
	}{Items: toInstances(list, h.svc.Today())})
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, access.Borrow)
	if !ok {
		return
	}
	id, ok := uuidPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	inst, err := h.svc.Borrow(r.Context(), id, actor.UserID)
	if err != nil {
		h.fail(w, r, "catalog.borrow", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, loanResponse{Instance: toInstance(inst, h.svc.Today())})
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.Return); !ok {
		return
	}
	id, ok := uuidPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	inst, err := h.svc.Return(r.Context(), id)
	if err != nil {
		h.fail(w, r, "catalog.return", err)
		return
	}
	title := inst.BookTitle
	inst.Status = catalog.StatusMaintenance
	inst.DueBack = nil
	inst.BorrowerID = nil
	httpio.WriteJSON(w, http.StatusOK, loanResponse{
		Message:  fmt.Sprintf("Thank you, for returning book (%s) on time.", title),
		Instance: toInstance(inst, h.svc.Today()),
	})
}

func (h *Handler) handleRenewForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.Renew); !ok {
		return
	}
	id, ok := uuidPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	inst, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		h.fail(w, r, "catalog.renew.form", err)
		return
	}
	proposed := h.svc.ProposedRenewalDate()
	httpio.WriteJSON(w, http.StatusOK, renewFormResponse{
		Instance:    toInstance(inst, h.svc.Today()),
		RenewalDate: catalog.FormatDate(&proposed),
	})
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.Renew); !ok {
		return
	}
	id, ok := uuidPK(r)
	if !ok {
		h.notFound(w)
		return
	}
	var req renewRequest
	if !h.decode(w, r, &req) {
		return
	}
	due, err := catalog.ParseDate(req.RenewalDate)
	if err != nil {
		httpio.WriteError(w, http.StatusBadRequest, "validation", "renewal_date: "+err.Error())
		return
	}
	if due == nil {
		httpio.WriteError(w, http.StatusBadRequest, "validation", "renewal_date: This field is required.")
		return
	}
	inst, err := h.svc.Renew(r.Context(), id, *due)
	if err != nil {
		h.fail(w, r, "catalog.renew", err)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, loanResponse{Instance: toInstance(inst, h.svc.Today())})
}
