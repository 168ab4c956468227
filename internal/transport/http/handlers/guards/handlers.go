// Package guardshandler exposes guard enrollment and management.
// Enrollment is public (it carries the invite code); everything else
// is staff- or guard-scoped.
package guardshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/guards"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
	"guardsync/internal/transport/http/shared"
)

type Handler struct {
	Service *guards.Service
	Store   *guards.Store
}

func NewHandler(service *guards.Service, store *guards.Store) *Handler {
	return &Handler{Service: service, Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/guards/enroll", h.handleEnroll)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/guards", h.handleList)
		r.Get("/guards/{guardID}", h.handleGet)
		r.Patch("/guards/{guardID}", h.handlePatch)
		r.Delete("/guards/{guardID}", h.handleDelete)
		r.Post("/guards/{guardID}/authorize", h.handleAuthorize)
		r.Post("/guards/{guardID}/reject", h.handleReject)
		r.Post("/guards/{guardID}/deactivate", h.handleDeactivate)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleGuard))
		r.Post("/guards/me/face", h.handleEnrollFace)
	})
}

type enrollRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("code", payload.Code, "organization code is required")
	v.Required("name", payload.Name, "name is required")
	v.Required("phone", payload.Phone, "phone is required")
	if len(payload.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if v.Reject(w, reqID) {
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "enroll_failed", "failed to enroll", reqID)
		return
	}

	var email *string
	if trimmed := strings.TrimSpace(payload.Email); trimmed != "" {
		email = &trimmed
	}

	g, err := h.Service.Enroll(r.Context(), payload.Code, payload.Name, payload.Phone, email, hash)
	switch {
	case errors.Is(err, guards.ErrBadInviteCode):
		api.Fail(w, http.StatusNotFound, "invalid_code", "organization code not recognized", reqID)
		return
	case errors.Is(err, guards.ErrPhoneTaken):
		api.Fail(w, http.StatusConflict, "phone_taken", "phone number already enrolled", reqID)
		return
	case errors.Is(err, guards.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already enrolled", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "enroll_failed", "failed to enroll", reqID)
		return
	}

	api.Created(w, g, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	siteID := r.URL.Query().Get("siteId")
	// Site-scoped staff only ever see their own site.
	if user.Role == auth.RoleStaff && user.SiteID != nil {
		siteID = *user.SiteID
	}

	list, err := h.Store.List(r.Context(), user.OrgID, siteID, r.URL.Query().Get("status"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "guard_list_failed", "failed to list guards", reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	g, err := h.Store.GetByID(r.Context(), chi.URLParam(r, "guardID"))
	if err != nil || g.OrgID != user.OrgID {
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	}
	api.Success(w, g, reqID)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var patch guards.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	g, err := h.Service.Apply(r.Context(), user.OrgID, chi.URLParam(r, "guardID"), patch)
	if errors.Is(err, guards.ErrGuardNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "guard_update_failed", "failed to update guard", reqID)
		return
	}
	api.Success(w, g, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	err := h.Store.Delete(r.Context(), user.OrgID, chi.URLParam(r, "guardID"))
	if errors.Is(err, guards.ErrGuardNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "guard_delete_failed", "failed to delete guard", reqID)
		return
	}
	api.Success(w, map[string]string{"deleted": chi.URLParam(r, "guardID")}, reqID)
}

// handleAuthorize approves a pending guard. The request must carry the
// full posting: site, shift, and daily rate.
func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	guardID := chi.URLParam(r, "guardID")

	var payload guards.Assignment
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("siteId", payload.SiteID, "site is required")
	v.Required("shiftId", payload.ShiftID, "shift is required")
	if payload.DailyRate <= 0 {
		v.Add("dailyRate", "must be greater than zero")
	}
	if v.Reject(w, reqID) {
		return
	}

	g, err := h.Service.Authorize(r.Context(), user.OrgID, guardID, payload)
	switch {
	case errors.Is(err, guards.ErrMissingAssignment):
		api.Fail(w, http.StatusBadRequest, "missing_assignment", "site, shift, and daily rate are required", reqID)
		return
	case errors.Is(err, guards.ErrGuardNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	case errors.Is(err, guards.ErrNotPending):
		api.Fail(w, http.StatusConflict, "not_pending", "guard is not awaiting approval", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "decision_failed", "failed to record decision", reqID)
		return
	}
	api.Success(w, g, reqID)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	g, err := h.Service.Deactivate(r.Context(), user.OrgID, chi.URLParam(r, "guardID"))
	switch {
	case errors.Is(err, guards.ErrGuardNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	case errors.Is(err, guards.ErrNotActive):
		api.Fail(w, http.StatusConflict, "not_active", "only active guards can be deactivated", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "decision_failed", "failed to deactivate guard", reqID)
		return
	}
	api.Success(w, g, reqID)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decideFn func(ctx context.Context, orgID, guardID string) (guards.Guard, error)) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	g, err := decideFn(r.Context(), user.OrgID, chi.URLParam(r, "guardID"))
	switch {
	case errors.Is(err, guards.ErrGuardNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	case errors.Is(err, guards.ErrNotPending):
		api.Fail(w, http.StatusConflict, "not_pending", "guard is not awaiting approval", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "decision_failed", "failed to record decision", reqID)
		return
	}
	api.Success(w, g, reqID)
}

type faceEnrollRequest struct {
	Template []float64 `json:"template"`
}

func (h *Handler) handleEnrollFace(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload faceEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	err := h.Service.EnrollFace(r.Context(), user.UserID, payload.Template)
	switch {
	case errors.Is(err, guards.ErrEmptyTemplate):
		api.Fail(w, http.StatusBadRequest, "empty_template", "face template is required", reqID)
		return
	case errors.Is(err, guards.ErrNotActive):
		api.Fail(w, http.StatusForbidden, "not_active", "guard is not active", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "face_enroll_failed", "failed to store face template", reqID)
		return
	}
	api.Success(w, map[string]bool{"enrolled": true}, reqID)
}
