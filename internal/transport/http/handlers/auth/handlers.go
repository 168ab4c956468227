// Package authhandler exposes registration, login, and identity
// endpoints. Staff authenticate by email, guards by phone; both get
// the same HS256 bearer token with role-specific claims.
package authhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"guardsync/internal/auth"
	"guardsync/internal/domain/guards"
	"guardsync/internal/domain/org"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
	"guardsync/internal/transport/http/shared"
)

type Handler struct {
	Orgs      *org.Store
	Guards    *guards.Store
	JWTSecret string
}

func NewHandler(orgs *org.Store, guardStore *guards.Store, secret string) *Handler {
	return &Handler{Orgs: orgs, Guards: guardStore, JWTSecret: secret}
}

type registerRequest struct {
	OrganizationName string `json:"organizationName"`
	AdminName        string `json:"adminName"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

// HandleRegister creates an organization with its first admin and
// returns a ready-to-use token plus the guard invite code.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("organizationName", payload.OrganizationName, "organization name is required")
	v.Required("adminName", payload.AdminName, "admin name is required")
	v.Required("email", payload.Email, "email is required")
	if len(payload.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if v.Reject(w, reqID) {
		return
	}

	slug := org.Slugify(payload.OrganizationName)
	if slug == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "organization name yields an empty slug", reqID)
		return
	}
	code, err := org.NewInviteCode(slug)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to register organization", reqID)
		return
	}
	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to register organization", reqID)
		return
	}

	o, admin, err := h.Orgs.CreateWithAdmin(r.Context(), strings.TrimSpace(payload.OrganizationName), slug, code, payload.AdminName, strings.ToLower(payload.Email), hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			api.Fail(w, http.StatusConflict, "already_exists", "organization or email already registered", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to register organization", reqID)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID: admin.ID, OrgID: o.ID, Role: admin.Role, Name: admin.Name,
	}, auth.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to issue token", reqID)
		return
	}

	api.Created(w, map[string]any{
		"organization": o,
		"token":        token,
	}, reqID)
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// HandleLogin authenticates staff by email.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	st, err := h.Orgs.GetStaffByEmail(r.Context(), payload.Email)
	if err != nil || auth.CheckPassword(st.PasswordHash, payload.Password) != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", reqID)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID: st.ID, OrgID: st.OrgID, Role: st.Role, SiteID: st.SiteID, Name: st.Name,
	}, auth.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to issue token", reqID)
		return
	}

	api.Success(w, map[string]any{"token": token, "staff": st}, reqID)
}

// HandleGuardLogin authenticates guards by phone, or by email when no
// phone is given. Only active guards may log in; pending and rejected
// enrollments are told why.
func (h *Handler) HandleGuardLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	var g guards.Guard
	var err error
	if strings.TrimSpace(payload.Phone) != "" {
		g, err = h.Guards.GetByPhone(r.Context(), payload.Phone)
	} else {
		g, err = h.Guards.GetByEmail(r.Context(), payload.Email)
	}
	if err != nil || auth.CheckPassword(g.PasswordHash, payload.Password) != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid phone or password", reqID)
		return
	}
	if g.ApprovalStatus != guards.ApprovalActive {
		api.Fail(w, http.StatusForbidden, "not_approved", "enrollment is "+g.ApprovalStatus, reqID)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, auth.Claims{
		UserID: g.ID, OrgID: g.OrgID, Role: auth.RoleGuard, SiteID: g.SiteID, Name: g.Name,
	}, auth.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to issue token", reqID)
		return
	}

	api.Success(w, map[string]any{"token": token, "guard": g}, reqID)
}

// HandleValidateCode resolves an invite code to an organization name,
// for the guard enrollment screen.
func (h *Handler) HandleValidateCode(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	o, err := h.Orgs.GetByInviteCode(r.Context(), payload.Code)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "invalid_code", "organization code not recognized", reqID)
		return
	}
	api.Success(w, map[string]string{"orgId": o.ID, "organizationName": o.Name}, reqID)
}

// HandleOrg returns the caller's organization profile, invite code
// included for staff.
func (h *Handler) HandleOrg(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	o, err := h.Orgs.GetByID(r.Context(), user.OrgID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "organization not found", reqID)
		return
	}
	if user.Role == auth.RoleGuard {
		// Guards do not need the invite code; hand back the public bits.
		api.Success(w, map[string]string{"id": o.ID, "name": o.Name}, reqID)
		return
	}
	api.Success(w, o, reqID)
}

type staffPayload struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	SiteID   *string `json:"siteId"`
}

// HandleCreateStaff adds a staff account, optionally scoped to a site.
func (h *Handler) HandleCreateStaff(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload staffPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	if len(payload.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if payload.Role != auth.RoleAdmin && payload.Role != auth.RoleStaff {
		v.Add("role", "must be admin or staff")
	}
	if v.Reject(w, reqID) {
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "staff_create_failed", "failed to create staff account", reqID)
		return
	}

	st, err := h.Orgs.CreateStaff(r.Context(), user.OrgID, payload.SiteID, payload.Name, strings.ToLower(payload.Email), hash, payload.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "staff_create_failed", "failed to create staff account", reqID)
		return
	}
	api.Created(w, st, reqID)
}

// HandleListStaff lists the organization's staff accounts.
func (h *Handler) HandleListStaff(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	list, err := h.Orgs.ListStaff(r.Context(), user.OrgID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "staff_list_failed", "failed to list staff", reqID)
		return
	}
	api.Success(w, list, reqID)
}

// HandleMe returns the authenticated caller's identity.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	if user.Role == auth.RoleGuard {
		g, err := h.Guards.GetByID(r.Context(), user.UserID)
		if err != nil {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
			return
		}
		api.Success(w, map[string]any{"role": user.Role, "guard": g}, reqID)
		return
	}

	st, err := h.Orgs.GetStaffByID(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	api.Success(w, map[string]any{"role": user.Role, "staff": st}, reqID)
}
