// Package facecheckshandler exposes the face-check lifecycle: guards
// list and answer their due checks, staff review history and the daily
// summary.
package facecheckshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/facecheck"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
)

type Handler struct {
	Service *facecheck.Service
}

func NewHandler(service *facecheck.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleGuard))
		r.Get("/face-checks/pending", h.handlePending)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff, auth.RoleGuard))
		r.Post("/face-checks/{checkID}/result", h.handleSubmitResult)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/face-checks/guards/{guardID}", h.handleForGuard)
		r.Get("/face-checks/summary", h.handleSummary)
	})
}

// handlePending returns the caller's due checks, earliest first. The
// guard app polls this alongside its location pings.
func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	checks, err := h.Service.Pending(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "pending_failed", "failed to list pending checks", reqID)
		return
	}
	api.Success(w, checks, reqID)
}

type resultRequest struct {
	Sample []float64 `json:"sample"`
}

func (h *Handler) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload resultRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	actor := facecheck.Actor{ID: user.UserID, Role: user.Role}
	passed, err := h.Service.SubmitResult(r.Context(), chi.URLParam(r, "checkID"), payload.Sample, actor)
	switch {
	case errors.Is(err, facecheck.ErrCheckNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "face check not found", reqID)
		return
	case errors.Is(err, facecheck.ErrNotYourCheck):
		api.Fail(w, http.StatusForbidden, "forbidden", "face check belongs to another guard", reqID)
		return
	case errors.Is(err, facecheck.ErrCheckCompleted):
		api.Fail(w, http.StatusConflict, "already_completed", "face check is already resolved", reqID)
		return
	case errors.Is(err, facecheck.ErrNoSample):
		api.Fail(w, http.StatusBadRequest, "missing_sample", "a face sample is required", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "result_failed", "failed to record result", reqID)
		return
	}
	api.Success(w, map[string]bool{"passed": passed}, reqID)
}

func (h *Handler) handleForGuard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	checks, err := h.Service.ForGuardOnDate(r.Context(), chi.URLParam(r, "guardID"), date)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "check_list_failed", "failed to list face checks", reqID)
		return
	}
	api.Success(w, checks, reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	summary, err := h.Service.Summary(r.Context(), user.OrgID, date)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "failed to aggregate face checks", reqID)
		return
	}
	api.Success(w, summary, reqID)
}
