// Package http provides the HTTP handlers and middleware of the authentication endpoints.
package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/auth/http/dto"
	authUseCase "github.com/scrilab/artale-auth/internal/auth/usecase"
)

// AuthHandler handles login, logout, session validation and session maintenance.
type AuthHandler struct {
	authUseCase       authUseCase.AuthUseCase
	forceLoginDefault bool
	logger            *slog.Logger
}

// NewAuthHandler creates a new auth handler. forceLoginDefault applies when a
// login request omits force_login.
func NewAuthHandler(
	authUseCase authUseCase.AuthUseCase,
	forceLoginDefault bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authUseCase:       authUseCase,
		forceLoginDefault: forceLoginDefault,
		logger:            logger,
	}
}

// LoginHandler authenticates a license key and issues a session token.
// POST /auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, authDomain.ErrMissingIdentity)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(c, err)
		return
	}

	force := h.forceLoginDefault
	if req.ForceLogin != nil {
		force = *req.ForceLogin
	}

	output, err := h.authUseCase.Login(c.Request.Context(), authDomain.LoginInput{
		Identity:   req.UUID,
		ForceLogin: force,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapLoginToResponse(output))
}

// LogoutHandler revokes a session token. It always answers success.
// POST /auth/logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	var req dto.LogoutRequest
	// A missing or unreadable body is a logout of nothing.
	_ = c.ShouldBindJSON(&req)

	if err := h.authUseCase.Logout(c.Request.Context(), req.SessionToken); err != nil {
		h.logger.Error("logout failed", slog.Any("error", err))
	}

	c.JSON(http.StatusOK, dto.AuthResponse{Success: true, Message: "Logged out"})
}

// ValidateHandler checks a session token and returns a fresh license snapshot.
// POST /auth/validate
func (h *AuthHandler) ValidateHandler(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, authDomain.ErrInvalidToken)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(c, err)
		return
	}

	output, err := h.authUseCase.Validate(c.Request.Context(), req.SessionToken, c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapValidateToResponse(output))
}

// SessionStatsHandler returns aggregate session and guard counters.
// GET /session-stats
func (h *AuthHandler) SessionStatsHandler(c *gin.Context) {
	stats, err := h.authUseCase.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(stats))
}

// SweepSessionsHandler removes expired sessions on demand.
// POST /maintenance/sweep-sessions
func (h *AuthHandler) SweepSessionsHandler(c *gin.Context) {
	removed, err := h.authUseCase.SweepExpired(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SweepResponse{
		Success: true,
		Message: "Expired sessions removed",
		Removed: removed,
	})
}

// writeError renders an authentication error as the response envelope.
func (h *AuthHandler) writeError(c *gin.Context, err error) {
	code := authDomain.CodeFor(err)
	status := StatusFor(code)

	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("authentication request failed",
			slog.String("code", string(code)),
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
	case status == http.StatusUnauthorized:
		h.logger.Warn("authentication rejected",
			slog.String("code", string(code)),
			slog.String("client_ip", c.ClientIP()),
		)
	default:
		h.logger.Debug("authentication request rejected",
			slog.String("code", string(code)),
			slog.String("client_ip", c.ClientIP()),
		)
	}

	if code == authDomain.CodeServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(serviceRetryAfterSeconds))
	}
	c.JSON(status, dto.AuthResponse{
		Success: false,
		Message: MessageFor(code),
		Code:    string(code),
	})
}

const serviceRetryAfterSeconds = 60

// StatusFor returns the HTTP status of a machine code.
func StatusFor(code authDomain.Code) int {
	switch code {
	case authDomain.CodeInvalidRequest, authDomain.CodeInvalidToken:
		return http.StatusBadRequest
	case authDomain.CodeUnauthorized,
		authDomain.CodeAccountDeactivated,
		authDomain.CodeAccountExpired,
		authDomain.CodeAlreadyLoggedIn,
		authDomain.CodeSessionInvalid:
		return http.StatusUnauthorized
	case authDomain.CodeRateLimited, authDomain.CodeIPBlocked:
		return http.StatusTooManyRequests
	case authDomain.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the human-readable message of a machine code.
func MessageFor(code authDomain.Code) string {
	switch code {
	case authDomain.CodeInvalidRequest:
		return "License key is required"
	case authDomain.CodeInvalidToken:
		return "Invalid session token"
	case authDomain.CodeUnauthorized:
		return "Authentication failed"
	case authDomain.CodeAccountDeactivated:
		return "Account has been deactivated"
	case authDomain.CodeAccountExpired:
		return "Account has expired"
	case authDomain.CodeAlreadyLoggedIn:
		return "Already logged in elsewhere"
	case authDomain.CodeSessionInvalid:
		return "Session is invalid or expired"
	case authDomain.CodeRateLimited:
		return "Too many requests, please retry later"
	case authDomain.CodeIPBlocked:
		return "Too many requests, this address is temporarily blocked"
	case authDomain.CodeServiceUnavailable:
		return "Service temporarily unavailable"
	default:
		return "An internal error occurred"
	}
}
