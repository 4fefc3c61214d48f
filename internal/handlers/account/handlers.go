package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apphttp "realestate/internal/http"
	"realestate/internal/services/auth"
)

var (
	authSvc      *auth.Service
	secureCookie bool
)

// Initialize sets up the account package. secure marks the session cookie
// HTTPS-only.
func Initialize(a *auth.Service, secure bool) {
	authSvc = a
	secureCookie = secure
}

// RegisterRoutes registers the session routes
func RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", handleRegister)
		r.Post("/login", handleLogin)
		r.Post("/logout", handleLogout)
		r.With(auth.RequireAuth).Get("/me", handleMe)
	})
}

// RegisterRequest is the body for creating an account
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the body for starting a session
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token for API clients. Browsers also
// receive it as a cookie.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      auth.Principal `json:"user"`
}

func handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := authSvc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	switch {
	case err == nil:
		apphttp.WriteJSON(w, http.StatusCreated, user.Profile())
	case errors.Is(err, auth.ErrInvalidInput):
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrEmailTaken):
		apphttp.ErrorJSON(w, err.Error(), http.StatusConflict)
	default:
		apphttp.InternalError(w, "registering user", err)
	}
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, p, err := authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			apphttp.ErrorJSON(w, err.Error(), http.StatusUnauthorized)
			return
		}
		apphttp.InternalError(w, "logging in", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  p.ExpiresAt(),
		HttpOnly: true,
		Secure:   secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	apphttp.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: p.ExpiresAt(), User: p})
}

// handleLogout revokes the presented token and clears the cookie. Logging
// out without a session is a no-op.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := authSvc.Logout(r.Context(), token); err != nil && !errors.Is(err, auth.ErrUnauthorized) {
			apphttp.InternalError(w, "logging out", err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	user, err := authSvc.GetUser(r.Context(), p.UID)
	if err != nil {
		apphttp.InternalError(w, "loading user", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, user.Profile())
}
