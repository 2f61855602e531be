package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/platform/httpx"
	"github.com/gestoria-erp/gestoria-erp/internal/shared"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

// Handler exposes the analytics surface over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/kpis", h.kpis)
	r.Get("/by-model", h.byModel)
	r.Get("/by-assignee", h.byAssignee)
	r.Get("/by-client", h.byClient)
	r.Get("/trends", h.trends)
	r.Get("/exceptions", h.exceptions)
	r.Get("/detail", h.detail)
	// Workbook assembly scans every filing; keep it off the hot path.
	r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Get("/export", h.export)
}

func filterFromQuery(r *http.Request) (filings.FilingFilter, error) {
	filter := filings.FilingFilter{
		ModelCode:   r.URL.Query().Get("model"),
		PeriodLabel: r.URL.Query().Get("period"),
		ClientID:    r.URL.Query().Get("client"),
		AssigneeID:  r.URL.Query().Get("assignee"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = filings.NormalizeStatus(raw)
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Year = year
	}
	return filter, nil
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, compute func(filings.FilingFilter) (any, error)) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
		return
	}
	data, err := compute(filter)
	if err != nil {
		h.logger.Error("report request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) kpis(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(filter filings.FilingFilter) (any, error) {
		return h.service.KPIs(r.Context(), filter)
	})
}

func (h *Handler) byModel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(filter filings.FilingFilter) (any, error) {
		summaries, err := h.service.ByModel(r.Context(), filter)
		return map[string]any{"models": summaries}, err
	})
}

func (h *Handler) byAssignee(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(filter filings.FilingFilter) (any, error) {
		summaries, err := h.service.ByAssignee(r.Context(), filter)
		return map[string]any{"assignees": summaries}, err
	})
}

func (h *Handler) byClient(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(filter filings.FilingFilter) (any, error) {
		summaries, err := h.service.ByClient(r.Context(), filter)
		return map[string]any{"clients": summaries}, err
	})
}

func (h *Handler) trends(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(filter filings.FilingFilter) (any, error) {
		series, err := h.service.Trends(r.Context(), filter)
		return map[string]any{"series": series}, err
	})
}

func (h *Handler) exceptions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(filter filings.FilingFilter) (any, error) {
		return h.service.Exceptions(r.Context(), filter)
	})
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))

	rows, err := h.service.Detail(r.Context(), filter)
	if err != nil {
		h.logger.Error("report request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	pagination := shared.NewPagination(page, perPage, len(rows))
	start := (pagination.Page - 1) * pagination.PerPage
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pagination.PerPage
	if end > len(rows) {
		end = len(rows)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"filings":    rows[start:end],
		"pagination": pagination,
	})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be numeric")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tax-report.csv"`)
	if err := h.service.Export(r.Context(), filter, taxcal.NewCSVWorkbook(w)); err != nil {
		h.logger.Error("report export failed", slog.Any("error", err))
	}
}
