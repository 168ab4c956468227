// Package siteshandler exposes site and shift management for staff.
package siteshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/sites"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
	"guardsync/internal/transport/http/shared"
)

type Handler struct {
	Store *sites.Store
}

func NewHandler(store *sites.Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/sites", h.handleList)
		r.Get("/sites/{siteID}", h.handleGet)
		r.Get("/sites/{siteID}/shifts", h.handleListShifts)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Post("/sites", h.handleCreate)
		r.Put("/sites/{siteID}", h.handleUpdate)
		r.Delete("/sites/{siteID}", h.handleDelete)
		r.Post("/sites/{siteID}/shifts", h.handleCreateShift)
		r.Delete("/shifts/{shiftID}", h.handleDeleteShift)
	})
}

type sitePayload struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload sitePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "site name is required")
	if v.Reject(w, reqID) {
		return
	}

	site, err := h.Store.CreateSite(r.Context(), user.OrgID, payload.Name, payload.Address, payload.Lat, payload.Lng)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "site_create_failed", "failed to create site", reqID)
		return
	}
	api.Created(w, site, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	list, err := h.Store.ListSites(r.Context(), user.OrgID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "site_list_failed", "failed to list sites", reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	site, err := h.Store.GetSite(r.Context(), user.OrgID, chi.URLParam(r, "siteID"))
	if errors.Is(err, sites.ErrSiteNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "site not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "site_get_failed", "failed to load site", reqID)
		return
	}
	api.Success(w, site, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload sitePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	site := sites.Site{
		ID:      chi.URLParam(r, "siteID"),
		OrgID:   user.OrgID,
		Name:    payload.Name,
		Address: payload.Address,
		Lat:     payload.Lat,
		Lng:     payload.Lng,
	}
	if err := h.Store.UpdateSite(r.Context(), site); err != nil {
		if errors.Is(err, sites.ErrSiteNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "site not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "site_update_failed", "failed to update site", reqID)
		return
	}
	api.Success(w, site, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.DeleteSite(r.Context(), user.OrgID, chi.URLParam(r, "siteID")); err != nil {
		if errors.Is(err, sites.ErrSiteNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "site not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "site_delete_failed", "failed to delete site", reqID)
		return
	}
	api.Success(w, map[string]string{"deleted": chi.URLParam(r, "siteID")}, reqID)
}

type shiftPayload struct {
	Name       string `json:"name"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	DaysOfWeek []int  `json:"daysOfWeek"`
}

func (h *Handler) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload shiftPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "shift name is required")
	if err := sites.ValidateClock(payload.StartTime); err != nil {
		v.Add("startTime", "must be HH:MM")
	}
	if err := sites.ValidateClock(payload.EndTime); err != nil {
		v.Add("endTime", "must be HH:MM")
	}
	if err := sites.ValidateDays(payload.DaysOfWeek); err != nil {
		v.Add("daysOfWeek", "weekdays must be distinct values 0 through 6")
	}
	if v.Reject(w, reqID) {
		return
	}

	shift, err := h.Store.CreateShift(r.Context(), user.OrgID, chi.URLParam(r, "siteID"), payload.Name, payload.StartTime, payload.EndTime, payload.DaysOfWeek)
	if errors.Is(err, sites.ErrSiteNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "site not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "shift_create_failed", "failed to create shift", reqID)
		return
	}
	api.Created(w, shift, reqID)
}

func (h *Handler) handleListShifts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	list, err := h.Store.ListShifts(r.Context(), user.OrgID, chi.URLParam(r, "siteID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "shift_list_failed", "failed to list shifts", reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleDeleteShift(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	if err := h.Store.DeleteShift(r.Context(), user.OrgID, chi.URLParam(r, "shiftID")); err != nil {
		if errors.Is(err, sites.ErrShiftNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "shift not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "shift_delete_failed", "failed to delete shift", reqID)
		return
	}
	api.Success(w, map[string]string{"deleted": chi.URLParam(r, "shiftID")}, reqID)
}
