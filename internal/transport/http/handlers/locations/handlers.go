// Package locationshandler ingests GPS pings from guard devices and
// serves the live map and per-guard history to staff.
package locationshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/guards"
	"guardsync/internal/domain/presence"
	"guardsync/internal/domain/sysconfig"
	"guardsync/internal/platform/metrics"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
	"guardsync/internal/transport/http/shared"
)

type Handler struct {
	Pings    *presence.Store
	Guards   *guards.Store
	Settings *sysconfig.Store
}

func NewHandler(pings *presence.Store, guardStore *guards.Store, settings *sysconfig.Store) *Handler {
	return &Handler{Pings: pings, Guards: guardStore, Settings: settings}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleGuard))
		r.Post("/locations", h.handlePing)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/locations/live", h.handleLive)
		r.Get("/locations/guards/{guardID}", h.handleHistory)
		r.Get("/guards/{guardID}/status", h.handleStatus)
	})
}

type pingRequest struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy *float64 `json:"accuracy"`
}

// handlePing accepts a GPS report and answers with the reporting
// interval so devices pick up tuning changes without a separate call.
func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload pingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	if payload.Lat == nil || *payload.Lat < -90 || *payload.Lat > 90 {
		v.Add("lat", "must be between -90 and 90")
	}
	if payload.Lng == nil || *payload.Lng < -180 || *payload.Lng > 180 {
		v.Add("lng", "must be between -180 and 180")
	}
	if v.Reject(w, reqID) {
		return
	}

	g, err := h.Guards.GetByID(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	if !g.ClockedIn {
		api.Fail(w, http.StatusConflict, "not_clocked_in", "pings are only accepted while on duty", reqID)
		return
	}

	if err := h.Pings.InsertPing(r.Context(), user.UserID, *payload.Lat, *payload.Lng, payload.Accuracy); err != nil {
		api.Fail(w, http.StatusInternalServerError, "ping_failed", "failed to record location", reqID)
		return
	}
	metrics.LocationPings.Inc()

	cfg, err := h.Settings.Get(r.Context(), user.OrgID)
	if err != nil {
		cfg = sysconfig.Defaults()
	}
	api.Created(w, map[string]any{
		"recorded":     true,
		"intervalMins": cfg.LocationUpdateIntervalMins,
	}, reqID)
}

// handleLive returns the newest ping per clocked-in guard.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	pings, err := h.Pings.LatestForClockedIn(r.Context(), user.OrgID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "live_map_failed", "failed to load live locations", reqID)
		return
	}
	api.Success(w, pings, reqID)
}

// handleStatus derives one guard's live online/idle/offline status
// from clock state and the two newest pings.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	guardID := chi.URLParam(r, "guardID")
	g, err := h.Guards.GetByID(r.Context(), guardID)
	if errors.Is(err, guards.ErrGuardNotFound) || (err == nil && g.OrgID != user.OrgID) {
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "status_failed", "failed to resolve status", reqID)
		return
	}

	pings, err := h.Pings.RecentPings(r.Context(), guardID, 2)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "status_failed", "failed to resolve status", reqID)
		return
	}
	cfg, err := h.Settings.Get(r.Context(), g.OrgID)
	if err != nil {
		cfg = sysconfig.Defaults()
	}

	status := presence.ComputeStatus(g.ClockedIn, pings, cfg, time.Now())
	api.Success(w, map[string]any{"guardId": guardID, "status": status}, reqID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	guardID := chi.URLParam(r, "guardID")
	g, err := h.Guards.GetByID(r.Context(), guardID)
	if errors.Is(err, guards.ErrGuardNotFound) || (err == nil && g.OrgID != user.OrgID) {
		api.Fail(w, http.StatusNotFound, "not_found", "guard not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "history_failed", "failed to load location history", reqID)
		return
	}

	p := shared.ParsePagination(r, 200, 1000)
	pings, err := h.Pings.History(r.Context(), guardID, r.URL.Query().Get("from"), r.URL.Query().Get("to"), p.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "history_failed", "failed to load location history", reqID)
		return
	}
	api.Success(w, pings, reqID)
}
