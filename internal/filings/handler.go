package filings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestoria-erp/gestoria-erp/internal/platform/httpx"
	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

// Handler exposes the filing lifecycle over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers filing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/board", h.board)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.updateStatus)
	r.Patch("/{id}", h.updateDetails)
	r.Post("/bulk-status", h.bulkUpdateStatus)
	r.Post("/ensure/{year}", h.ensureYear)
}

func filterFromQuery(r *http.Request) (FilingFilter, error) {
	filter := FilingFilter{
		ModelCode:   r.URL.Query().Get("model"),
		PeriodLabel: r.URL.Query().Get("period"),
		ClientID:    r.URL.Query().Get("client"),
		AssigneeID:  r.URL.Query().Get("assignee"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = NormalizeStatus(raw)
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("year must be numeric")
		}
		filter.Year = year
	}
	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	filings, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"filings": filings,
		"total":   len(filings),
	})
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	board, err := h.service.Board(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, board)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	filing, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filing)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status      string     `json:"status"`
		SubmittedAt *time.Time `json:"submittedAt"`
		Reason      string     `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	filing, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), StatusChange{
		Status:      FilingStatus(body.Status),
		SubmittedAt: body.SubmittedAt,
		Reason:      body.Reason,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filing)
}

func (h *Handler) updateDetails(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssigneeID *string `json:"assigneeId"`
		Notes      string  `json:"notes"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	filing, err := h.service.UpdateDetails(r.Context(), chi.URLParam(r, "id"), body.AssigneeID, body.Notes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filing)
}

func (h *Handler) bulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs         []string   `json:"ids"`
		Status      string     `json:"status"`
		SubmittedAt *time.Time `json:"submittedAt"`
		Reason      string     `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if len(body.IDs) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ids must not be empty")
		return
	}

	outcomes := h.service.BulkUpdateStatus(r.Context(), body.IDs, StatusChange{
		Status:      FilingStatus(body.Status),
		SubmittedAt: body.SubmittedAt,
		Reason:      body.Reason,
	})
	httpx.JSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (h *Handler) ensureYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
		return
	}

	summary, err := h.service.EnsureFilingsForYear(r.Context(), year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateKey):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrUnknownStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("filing request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
