package clients

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestoria-erp/gestoria-erp/internal/platform/httpx"
	"github.com/gestoria-erp/gestoria-erp/internal/shared"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

// Handler exposes client master data over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers client routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}/active", h.setActive)
	r.Get("/{id}/assignments", h.listAssignments)
	r.Post("/{id}/assignments", h.createAssignment)
	r.Patch("/assignments/{assignmentId}/active", h.setAssignmentActive)
	r.Post("/assignments/{assignmentId}/end", h.endAssignment)
}

type clientForm struct {
	Name  string `json:"name" validate:"required,min=2"`
	Type  string `json:"type" validate:"required,oneof=SELF_EMPLOYED COMPANY INDIVIDUAL"`
	TaxID string `json:"taxId" validate:"required,min=8"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,min=6"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ClientFilter{Search: r.URL.Query().Get("search")}
	switch r.URL.Query().Get("active") {
	case "true":
		v := true
		filter.Active = &v
	case "false":
		v := false
		filter.Active = &v
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"clients": list,
		"total":   len(list),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	client, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form clientForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	client, err := h.service.Create(r.Context(), Client{
		Name:  form.Name,
		Type:  ClientType(form.Type),
		TaxID: form.TaxID,
		Email: form.Email,
		Phone: form.Phone,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form clientForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	client, err := h.service.Update(r.Context(), Client{
		ID:    chi.URLParam(r, "id"),
		Name:  form.Name,
		Type:  ClientType(form.Type),
		TaxID: form.TaxID,
		Email: form.Email,
		Phone: form.Phone,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	client, err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), body.Active)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.Assignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"assignments": assignments,
		"total":       len(assignments),
	})
}

type assignmentForm struct {
	ModelCode string `json:"modelCode" validate:"required"`
	Cadence   string `json:"cadence" validate:"required,oneof=MONTHLY QUARTERLY ANNUAL SPECIAL_INSTALLMENT"`
	Notes     string `json:"notes"`
}

func (h *Handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	var form assignmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	assignment, err := h.service.Assign(r.Context(), chi.URLParam(r, "id"),
		form.ModelCode, taxcal.Cadence(form.Cadence), form.Notes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) setAssignmentActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	assignment, err := h.service.SetAssignmentActive(r.Context(), chi.URLParam(r, "assignmentId"), body.Active)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) endAssignment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EndDate *time.Time `json:"endDate"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	var endDate time.Time
	if body.EndDate != nil {
		endDate = *body.EndDate
	}
	assignment, err := h.service.EndAssignment(r.Context(), chi.URLParam(r, "assignmentId"), endDate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateKey):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrUnknownModel),
		errors.Is(err, ErrModelNotAllowed),
		errors.Is(err, ErrCadenceNotAllowed):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("client request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
