// Package payrollhandler exposes payroll generation, review, and
// payslip downloads. Generation and status changes are admin-only.
package payrollhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/payroll"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
)

type Handler struct {
	Service *payroll.Service
}

func NewHandler(service *payroll.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/payroll", h.handleList)
		r.Get("/payroll/{entryID}/payslip.pdf", h.handlePayslip)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Post("/payroll/generate", h.handleGenerate)
		r.Put("/payroll/{entryID}/status", h.handleStatus)
	})
}

// period reads year/month from the query, defaulting to the current
// month.
func period(r *http.Request) (int, int) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			year = v
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			month = v
		}
	}
	return year, month
}

type generateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	entries, err := h.Service.Generate(r.Context(), user.OrgID, payload.Year, payload.Month)
	if errors.Is(err, payroll.ErrBadPeriod) {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "year and month must name a valid period", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "generate_failed", "failed to generate payroll", reqID)
		return
	}
	api.Created(w, entries, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	year, month := period(r)
	entries, err := h.Service.List(r.Context(), user.OrgID, year, month)
	if errors.Is(err, payroll.ErrBadPeriod) {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "year and month must name a valid period", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payroll_list_failed", "failed to list payroll", reqID)
		return
	}
	api.Success(w, entries, reqID)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload statusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	entry, err := h.Service.UpdateStatus(r.Context(), user.OrgID, chi.URLParam(r, "entryID"), payload.Status)
	switch {
	case errors.Is(err, payroll.ErrEntryNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "payroll entry not found", reqID)
		return
	case errors.Is(err, payroll.ErrBadTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", "entry cannot move to that status", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "status_update_failed", "failed to update status", reqID)
		return
	}
	api.Success(w, entry, reqID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	pdf, entry, err := h.Service.PayslipPDF(r.Context(), user.OrgID, chi.URLParam(r, "entryID"))
	if errors.Is(err, payroll.ErrEntryNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "payroll entry not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to render payslip", reqID)
		return
	}

	filename := fmt.Sprintf("payslip-%04d-%02d-%s.pdf", entry.Year, entry.Month, entry.GuardID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
