package taxcal

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gestoria-erp/gestoria-erp/internal/platform/httpx"
	"github.com/gestoria-erp/gestoria-erp/internal/shared"
)

// Handler exposes the calendar over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers calendar routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods", h.listPeriods)
	r.Get("/periods/open", h.openPeriods)
	r.Patch("/periods/{id}/flags", h.setFlags)
	r.Delete("/periods/{id}", h.deletePeriod)
	r.Post("/sync/{year}", h.syncYear)
	r.Post("/import", h.importPeriods)
	r.Get("/template", h.downloadTemplate)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	filter := PeriodFilter{
		ModelCode: r.URL.Query().Get("model"),
		Status:    PeriodStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
			return
		}
		filter.Year = year
	}

	periods, err := h.service.ListPeriods(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"periods": periods,
		"total":   len(periods),
	})
}

func (h *Handler) openPeriods(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
			return
		}
		year = parsed
	}

	periods, err := h.service.OpenPeriods(r.Context(), year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"periods": periods,
		"total":   len(periods),
	})
}

func (h *Handler) setFlags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
		Locked bool `json:"locked"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	period, err := h.service.SetFlags(r.Context(), chi.URLParam(r, "id"), body.Active, body.Locked)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) deletePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePeriod(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) syncYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
		return
	}

	summary, err := h.service.SyncYear(r.Context(), year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) importPeriods(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	result := h.service.Import(r.Context(), NewCSVRowReader(file))
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) downloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tax-periods-template.csv"`)
	if err := h.service.WriteTemplate(NewCSVWorkbook(w)); err != nil {
		h.logger.Error("template download failed", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateKey):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrReferenced):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrSyncInProgress):
		httpx.Problem(w, http.StatusConflict, "Sync In Progress", err.Error())
	case errors.Is(err, ErrLockedPeriod):
		httpx.Problem(w, http.StatusLocked, "Locked", err.Error())
	default:
		h.logger.Error("calendar request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
