package auth

import (
	"log/slog"
	"net/http"

	"github.com/bmbroch/ceylonstay/internal/httpx"
	"github.com/bmbroch/ceylonstay/internal/middleware"
	"github.com/bmbroch/ceylonstay/internal/transport"
	"github.com/bmbroch/ceylonstay/internal/validation"
)

const (
	AccessCookie  = "cs_access"
	RefreshCookie = "cs_refresh"

	refreshCookiePath = "/api/v1/admin"
)

// Handler exposes the operator login (single passcode, as on the original
// management page) and the anonymous upload session endpoint.
type Handler struct {
	manager      *Manager
	passcode     string
	passcodeHash string
	cookieSecure bool
	val          *validation.Validator
	log          *slog.Logger
}

func NewHandler(manager *Manager, passcode, passcodeHash string, cookieSecure bool, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		manager:      manager,
		passcode:     passcode,
		passcodeHash: passcodeHash,
		cookieSecure: cookieSecure,
		val:          val,
		log:          log,
	}
}

type LoginRequest struct {
	Passcode string `json:"passcode" validate:"required"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	var req LoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	if (h.passcode == "" && h.passcodeHash == "") || len(h.manager.Secret) == 0 {
		log.Warn("login: not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
		return
	}

	if !h.passcodeMatches(req.Passcode) {
		log.Warn("login: invalid passcode")
		transport.WriteError(w, http.StatusUnauthorized, "invalid passcode", nil)
		return
	}

	accessToken, err := h.manager.NewAccessToken(RoleAdmin)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}
	refreshToken, err := h.manager.NewRefreshToken(RoleAdmin)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}

	h.setAuthCookies(w, accessToken, refreshToken)
	log.Info("login: ok")
	transport.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	if len(h.manager.Secret) == 0 {
		log.Warn("refresh: not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
		return
	}

	cookie, err := r.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		log.Warn("refresh: missing refresh token")
		transport.WriteError(w, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}

	claims, err := h.manager.Parse(cookie.Value)
	if err != nil || claims.Role != RoleAdmin {
		log.Warn("refresh: invalid refresh token")
		transport.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}

	accessToken, err := h.manager.NewAccessToken(RoleAdmin)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}
	refreshToken, err := h.manager.NewRefreshToken(RoleAdmin)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}

	h.setAuthCookies(w, accessToken, refreshToken)
	log.Info("refresh: ok")
	transport.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	h.clearAuthCookies(w)
	log.Info("logout: ok")
	transport.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

type AnonymousSessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// AnonymousSession mirrors the backing store's anonymous sign-in: anyone may
// obtain a short-lived session scoped to uploads.
func (h *Handler) AnonymousSession(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	token, err := h.manager.SignInAnonymously(r.Context())
	if err != nil {
		log.Error("anonymous session: sign-in failed", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusServiceUnavailable, "anonymous auth not configured", nil)
		return
	}

	log.Info("anonymous session: ok")
	transport.WriteJSON(w, http.StatusOK, AnonymousSessionResponse{
		Token:     token,
		ExpiresIn: int(h.manager.AccessTTL.Seconds()),
	})
}

func (h *Handler) passcodeMatches(passcode string) bool {
	if h.passcodeHash != "" {
		return ComparePasscode(h.passcodeHash, passcode) == nil
	}
	return passcode == h.passcode
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.manager.AccessTTL.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.manager.RefreshTTL.Seconds()),
	})
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
