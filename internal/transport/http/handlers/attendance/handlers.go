// Package attendancehandler exposes clock-in/out for guards and
// attendance reporting for staff.
package attendancehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/attendance"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
	"guardsync/internal/transport/http/shared"
)

type Handler struct {
	Service *attendance.Service
}

func NewHandler(service *attendance.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleGuard))
		r.Post("/attendance/clock-in", h.handleClockIn)
		r.Post("/attendance/clock-out", h.handleClockOut)
		r.Get("/attendance/me", h.handleMine)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/attendance", h.handleListOrg)
		r.Get("/attendance/export", h.handleExport)
		r.Get("/attendance/guards/{guardID}", h.handleForGuard)
	})
}

func (h *Handler) handleClockIn(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	rec, err := h.Service.ClockIn(r.Context(), user.UserID)
	switch {
	case errors.Is(err, attendance.ErrAlreadyClockedIn):
		api.Fail(w, http.StatusConflict, "already_clocked_in", "already clocked in", reqID)
		return
	case errors.Is(err, attendance.ErrGuardNotActive):
		api.Fail(w, http.StatusForbidden, "not_active", "guard is not active", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "clock_in_failed", "failed to clock in", reqID)
		return
	}
	api.Created(w, rec, reqID)
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	rec, err := h.Service.ClockOut(r.Context(), user.UserID)
	switch {
	case errors.Is(err, attendance.ErrNotClockedIn):
		api.Fail(w, http.StatusConflict, "not_clocked_in", "not clocked in", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "clock_out_failed", "failed to clock out", reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	from, to, ok := dateRange(w, r, reqID)
	if !ok {
		return
	}
	records, err := h.Service.ForGuard(r.Context(), user.UserID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "attendance_list_failed", "failed to list attendance", reqID)
		return
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleListOrg(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	from, to, ok := dateRange(w, r, reqID)
	if !ok {
		return
	}
	records, err := h.Service.ForOrg(r.Context(), user.OrgID, from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "attendance_list_failed", "failed to list attendance", reqID)
		return
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleForGuard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	from, to, ok := dateRange(w, r, reqID)
	if !ok {
		return
	}
	records, err := h.Service.ForGuard(r.Context(), chi.URLParam(r, "guardID"), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "attendance_list_failed", "failed to list attendance", reqID)
		return
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	from, to, ok := dateRange(w, r, reqID)
	if !ok {
		return
	}

	filename := "attendance-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := h.Service.WriteCSV(r.Context(), w, user.OrgID, from, to); err != nil {
		// Headers are already out; nothing left to do but log.
		slog.Error("attendance csv export failed", "requestId", reqID, "err", err)
	}
}

// dateRange validates the optional from/to query params and reports
// whether the request may proceed.
func dateRange(w http.ResponseWriter, r *http.Request, reqID string) (string, string, bool) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	v := shared.NewValidator()
	if from != "" {
		v.Date("from", from)
	}
	if to != "" {
		v.Date("to", to)
	}
	if v.Reject(w, reqID) {
		return "", "", false
	}
	return from, to, true
}
