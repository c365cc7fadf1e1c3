package handler

import (
	"net/http"

	"blog_backend/internal/api/middleware"
	"blog_backend/internal/app/policy"
	"blog_backend/internal/app/service"
	"blog_backend/internal/common"

	"github.com/go-chi/chi/v5"
)

// AuthHandler serves the /user routes.
type AuthHandler struct {
	authService  *service.AuthService
	userService  *service.UserService
	loginLimiter middleware.RateLimiter
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService, loginLimiter middleware.RateLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService, loginLimiter: loginLimiter}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.With(middleware.RateLimit(h.loginLimiter)).Post("/login", h.login)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Require(policy.RequireAuthenticated))
		authed.Post("/logout", h.logout)
		authed.Put("/update/{id}", h.updateProfile)
	})

	r.With(middleware.Require(policy.RequireAdmin)).Get("/list", h.listUsers)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, newUserSummary(user))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, LoginResponse{Username: resp.User.Username, Token: resp.Token})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.UserFromContext(r.Context())); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out."})
}

func (h *AuthHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	resp := make([]UserSummaryResponse, len(users))
	for i := range users {
		resp[i] = newUserSummary(&users[i])
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// updateProfile always edits the caller; the id in the path is not used.
func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(r.Context(), middleware.UserFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, newUserResponse(user))
}
