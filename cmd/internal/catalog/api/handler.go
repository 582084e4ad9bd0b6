// Package catalogapi exposes the catalog and loan operations over HTTP.
package catalogapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"locallibrary/cmd/internal/access"
	"locallibrary/cmd/internal/catalog"
	"locallibrary/cmd/internal/httpio"

	"github.com/google/uuid"
)

// VisitCounter records a home page visit and returns the count before it.
type VisitCounter func(w http.ResponseWriter, r *http.Request) (int, error)

// Config bounds request handling.
type Config struct {
	MaxBodyBytes int64
}

func DefaultConfig() Config {
	return Config{MaxBodyBytes: httpio.DefaultMaxBodyBytes}
}

// Handler wires catalog HTTP endpoints to the catalog service.
type Handler struct {
	log    *slog.Logger
	cfg    Config
	svc    *catalog.Service
	visits VisitCounter
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithVisitCounter sets the home page visit counter. Without one num_visits is 0.
func WithVisitCounter(c VisitCounter) HandlerOption {
	return func(h *Handler) {
		if c != nil {
			h.visits = c
		}
	}
}

func NewHandler(log *slog.Logger, svc *catalog.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("catalogapi: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = httpio.DefaultMaxBodyBytes
	}
	h := &Handler{
		log: log,
		cfg: cfg,
		svc: svc,
		visits: func(http.ResponseWriter, *http.Request) (int, error) {
			return 0, nil
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires catalog routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /{$}", h.handleHome)

	mux.HandleFunc("GET /books/{$}", h.handleBookList)
	mux.HandleFunc("GET /book/{pk}", h.handleBookDetail)
	mux.HandleFunc("POST /book/create/{$}", h.handleBookCreate)
	mux.HandleFunc("POST /book/{pk}/update/", h.handleBookUpdate)
	mux.HandleFunc("POST /book/{pk}/delete/", h.handleBookDelete)
	mux.HandleFunc("POST /book/{pk}/instances/", h.handleInstanceCreate)
	mux.HandleFunc("POST /bookinstance/{pk}/update/", h.handleInstanceUpdate)
	mux.HandleFunc("POST /bookinstance/{pk}/delete/", h.handleInstanceDelete)

	mux.HandleFunc("GET /authors/{$}", h.handleAuthorList)
	mux.HandleFunc("GET /author/{pk}", h.handleAuthorDetail)
	mux.HandleFunc("POST /author/create/{$}", h.handleAuthorCreate)
	mux.HandleFunc("POST /author/{pk}/update/", h.handleAuthorUpdate)
	mux.HandleFunc("POST /author/{pk}/delete/", h.handleAuthorDelete)

	mux.HandleFunc("GET /genres/{$}", h.handleGenreList)
	mux.HandleFunc("GET /genres/{pk}", h.handleGenreDetail)
	mux.HandleFunc("POST /genres/create/{$}", h.handleGenreCreate)
	mux.HandleFunc("GET /languages/{$}", h.handleLanguageList)
	mux.HandleFunc("POST /languages/create/{$}", h.handleLanguageCreate)

	mux.HandleFunc("GET /mybooks/{$}", h.handleMyBooks)
	mux.HandleFunc("GET /borrowed/{$}", h.handleAllBorrowed)
	mux.HandleFunc("POST /book/{pk}/borrow/", h.handleBorrow)
	mux.HandleFunc("POST /book/{pk}/return/", h.handleReturn)
	mux.HandleFunc("GET /book/{pk}/renew/", h.handleRenewForm)
	mux.HandleFunc("POST /book/{pk}/renew/", h.handleRenew)
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		h.fail(w, r, "catalog.home", err)
		return
	}
	visits, err := h.visits(w, r)
	if err != nil {
		// The counters are still worth serving.
		h.log.Warn("catalog.home.visits_fail", "err", err)
	}
	httpio.WriteJSON(w, http.StatusOK, toHome(counts, visits))
}

// authorize applies the access policy for action to the request actor.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action access.Action) (access.Actor, bool) {
	actor := access.FromContext(r.Context())
	if err := access.Authorize(actor, action, ""); err != nil {
		h.fail(w, r, "catalog."+string(action), err)
		return actor, false
	}
	return actor, true
}

// fail maps catalog error kinds to HTTP responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case catalog.IsUnauthenticated(err):
		httpio.RedirectToLogin(w, r)
	case catalog.IsValidation(err):
		httpio.WriteError(w, http.StatusBadRequest, "validation", messageOr(err, "invalid input"))
	case catalog.IsPolicyViolation(err):
		httpio.WriteError(w, http.StatusConflict, "overdue", messageOr(err, catalog.DefaultFineNotice))
	case catalog.IsConflict(err):
		httpio.WriteError(w, http.StatusConflict, "conflict", messageOr(err, "conflict"))
	case catalog.IsNotFound(err):
		httpio.WriteError(w, http.StatusNotFound, "not_found", messageOr(err, "not found"))
	case catalog.IsForbidden(err):
		httpio.WriteError(w, http.StatusForbidden, "forbidden", messageOr(err, "forbidden"))
	default:
		h.log.Error(op+".fail", "err", err)
		httpio.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	httpio.WriteError(w, http.StatusBadRequest, "bad_request", msg)
}

func (h *Handler) notFound(w http.ResponseWriter) {
	httpio.WriteError(w, http.StatusNotFound, "not_found", "not found")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpio.DecodeJSON(w, r, h.cfg.MaxBodyBytes, dst); err != nil {
		h.badRequest(w, "invalid json")
		return false
	}
	return true
}

func messageOr(err error, fallback string) string {
	if msg := catalog.Message(err); msg != "" {
		return msg
	}
	return fallback
}

// intPK parses a positive integer path key. Anything else does not name a row.
func intPK(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("pk"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func uuidPK(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("pk"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
