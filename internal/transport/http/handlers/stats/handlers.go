// Package statshandler serves the staff dashboard.
package statshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/stats"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
)

type Handler struct {
	Service *stats.Service
}

func NewHandler(service *stats.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/stats/dashboard", h.handleDashboard)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	siteID := r.URL.Query().Get("siteId")
	// Site-scoped staff only ever see their own site.
	if user.Role == auth.RoleStaff && user.SiteID != nil {
		siteID = *user.SiteID
	}

	dash, err := h.Service.Dashboard(r.Context(), user.OrgID, siteID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", reqID)
		return
	}
	api.Success(w, dash, reqID)
}
