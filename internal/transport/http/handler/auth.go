package handler

import (
	"net/http"
	"time"

	"github.com/go-api-social/internal/application/auth"
	"github.com/go-api-social/internal/application/session"
	"github.com/go-api-social/internal/application/user"
	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/transport/http/middleware"
)

const (
	RefreshCookie = "refresh_token_cookie"
	cookiePath    = "/api"
)

// CookieConfig controls the refresh cookie attributes.
type CookieConfig struct {
	Secure     bool
	RefreshTTL time.Duration
}

// AuthHandler serves signup, login, token refresh and email verification.
type AuthHandler struct {
	users    user.Service
	sessions session.Service
	auth     auth.Service
	cookies  CookieConfig
}

func NewAuthHandler(users user.Service, sessions session.Service, authSvc auth.Service, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, auth: authSvc, cookies: cookies}
}

type SignupEnvelope struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.users.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SignupEnvelope{
		Message: "Sign up successful! Please check your email to verify your account.",
		User:    u,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "Login successful", AccessToken: res.AccessToken, User: res.User})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(RefreshCookie); err == nil {
		token = c.Value
	}
	access, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: access})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearSessionCookies(w, h.cookies.Secure)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Logout successful"})
}

// VerifyEmail confirms the address and logs the user straight in.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	u, err := h.auth.VerifyEmail(r.Context(), q.Get("token"), q.Get("salt"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := h.sessions.Issue(r.Context(), u, "verify_email")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "Email verified", AccessToken: res.AccessToken, User: res.User})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(r, &body) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.auth.ResendVerification(r.Context(), body.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: "If the account exists and is not yet verified, a new link has been sent.",
	})
}

func (h *AuthHandler) TOTPSetup(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	setup, err := h.auth.TOTPSetup(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}

// VerifyTOTP returns the elevated access token; the caller must replace the
// one it holds.
func (h *AuthHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	var body struct {
		Code string `json:"code"`
	}
	if !decodeJSON(r, &body) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	access, err := h.auth.VerifyTOTP(r.Context(), uid, body.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Message: "TOTP verified", AccessToken: access})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     cookiePath,
		MaxAge:   int(h.cookies.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{RefreshCookie, middleware.AccessCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cookiePath,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
