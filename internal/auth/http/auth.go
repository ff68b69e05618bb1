package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/internal/auth/service"
	"github.com/boofmebel/auth/pkg/authsdk"
	"github.com/boofmebel/auth/pkg/httpx"
	"github.com/boofmebel/auth/pkg/slogx"
)

const maxBodyBytes = 1 << 20

// AuthHandler serves the /auth endpoints. The refresh token travels only in
// the refresh cookie, never in a JSON body.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleLogin serves POST /auth/login. Missing fields fail as bad
// credentials after the same password work as any other miss.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "malformed request body")
		return
	}

	deviceInfo := r.UserAgent()
	if deviceInfo == "" {
		deviceInfo = "unknown"
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password, deviceInfo)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	h.writeTokens(w, pair)
}

// HandleRefresh serves POST /auth/refresh. The presented cookie is consumed
// and replaced by its successor.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(authsdk.RefreshCookieName)
	if err != nil || c.Value == "" {
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "refresh token not found")
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), c.Value)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	h.writeTokens(w, pair)
}

// HandleLogout serves POST /auth/logout. It answers 200 and clears the
// cookie regardless of whether the token was valid.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(authsdk.RefreshCookieName); err == nil && c.Value != "" {
		if err := h.Auth.Logout(r.Context(), c.Value); err != nil {
			slogx.FromContext(r.Context()).Error("logout revoke failed", "err", err)
		}
	}

	clearRefreshCookie(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// HandleMe serves GET /auth/me behind the bearer middleware.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	token, _ := httpx.BearerToken(r)

	u, err := h.Auth.Me(r.Context(), token)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		IsActive: u.IsActive,
	})
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, pair domain.TokenPair) {
	setRefreshCookie(w, pair.RefreshToken, pair.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   int(pair.ExpiresIn / time.Second),
	})
}

// writeAuthError maps service errors onto generic responses. Nothing in the
// body tells the caller which check failed.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant, "incorrect email or password")
	case errors.Is(err, service.ErrAccountDisabled):
		httpx.WriteError(w, http.StatusForbidden, authsdk.ErrorCodeAccountDisabled, "user account is disabled")
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenRevokedOrUnknown):
		httpx.WriteBearerError(w, "invalid or expired token")
	default:
		slogx.FromContext(r.Context()).Error("auth request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, authsdk.ErrorCodeServerError, "internal server error")
	}
}
