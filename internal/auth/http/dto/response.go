package dto

import (
	"time"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// UserData is the license snapshot returned to an authenticated client.
type UserData struct {
	Name        string          `json:"name"`
	Plan        string          `json:"plan,omitempty"`
	Active      bool            `json:"active"`
	Permissions map[string]bool `json:"permissions"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	LoginCount  int64           `json:"login_count"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MapLicenseToUserData converts a license to the client-facing snapshot.
func MapLicenseToUserData(license *licenseDomain.License) *UserData {
	if license == nil {
		return nil
	}
	permissions := license.Permissions
	if permissions == nil {
		permissions = map[string]bool{}
	}
	return &UserData{
		Name:        license.Name,
		Plan:        license.Plan,
		Active:      license.Active,
		Permissions: permissions,
		ExpiresAt:   license.ExpiresAt,
		LoginCount:  license.LoginCount,
		LastLoginAt: license.LastLoginAt,
		CreatedAt:   license.CreatedAt,
	}
}

// AuthResponse is the envelope of every /auth endpoint, success or failure.
// SECURITY: SessionToken is only present in a successful login response.
type AuthResponse struct {
	Success      bool       `json:"success"`
	Message      string     `json:"message"`
	Code         string     `json:"code,omitempty"`
	UserData     *UserData  `json:"user_data,omitempty"`
	SessionToken string     `json:"session_token,omitempty"` //nolint:gosec // returned once on login
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// MapLoginToResponse converts a login result to the response envelope.
func MapLoginToResponse(output *authDomain.LoginOutput) AuthResponse {
	expiresAt := output.ExpiresAt
	return AuthResponse{
		Success:      true,
		Message:      "Login successful",
		UserData:     MapLicenseToUserData(output.License),
		SessionToken: output.Token,
		ExpiresAt:    &expiresAt,
	}
}

// MapValidateToResponse converts a validation result to the response envelope.
func MapValidateToResponse(output *authDomain.ValidateOutput) AuthResponse {
	resp := AuthResponse{
		Success:  true,
		Message:  "Session valid",
		UserData: MapLicenseToUserData(output.License),
	}
	if output.Session != nil {
		expiresAt := output.Session.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// SessionStatsResponse is served by GET /session-stats.
type SessionStatsResponse struct {
	ActiveSessions    int64 `json:"active_sessions"`
	CacheSize         int   `json:"cache_size"`
	BlockedIPs        int   `json:"blocked_ips"`
	TrackedIPs        int   `json:"tracked_ips"`
	MemoryGuardActive bool  `json:"memory_guard_active"`
}

// MapStatsToResponse converts session stats to an API response.
func MapStatsToResponse(stats *authDomain.SessionStats) SessionStatsResponse {
	return SessionStatsResponse{
		ActiveSessions:    stats.ActiveSessions,
		CacheSize:         stats.CacheSize,
		BlockedIPs:        stats.BlockedIPs,
		TrackedIPs:        stats.TrackedIPs,
		MemoryGuardActive: stats.MemoryGuardActive,
	}
}

// SweepResponse is served by POST /maintenance/sweep-sessions.
type SweepResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Removed int64  `json:"removed"`
}
