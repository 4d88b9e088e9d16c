package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	"github.com/scrilab/artale-auth/internal/auth/http/dto"
	authMocks "github.com/scrilab/artale-auth/internal/auth/http/mocks"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

const validToken = "dGhpcy1pcy1hLXZhbGlkLWxvb2tpbmctc2Vzc2lvbi10b2tlbg"

// setupTestHandler creates an auth handler with a mocked use case.
func setupTestHandler(t *testing.T, forceLoginDefault bool) (*AuthHandler, *authMocks.MockAuthUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &authMocks.MockAuthUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewAuthHandler(mockUseCase, forceLoginDefault, logger), mockUseCase
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewReader([]byte(b))
	default:
		bodyBytes, _ := json.Marshal(b)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.2.3:5555"
	c.Request = req

	return c, w
}

func decodeAuthResponse(t *testing.T, w *httptest.ResponseRecorder) dto.AuthResponse {
	t.Helper()
	var response dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func testLicense() *licenseDomain.License {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &licenseDomain.License{
		IdentityDigest: licenseDomain.DigestIdentity("key"),
		Active:         true,
		Name:           "Player",
		Plan:           "monthly",
		Permissions:    map[string]bool{licenseDomain.PermissionScriptAccess: true},
		LoginCount:     3,
		Provenance:     licenseDomain.Provenance{Source: "gumroad"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestAuthHandler_LoginHandler(t *testing.T) {
	t.Run("Success_IssuesToken", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		expiresAt := time.Now().UTC().Add(24 * time.Hour)

		mockUseCase.On("Login", mock.Anything, authDomain.LoginInput{
			Identity:   "license-key",
			ForceLogin: true,
			ClientIP:   "10.1.2.3",
		}).Return(&authDomain.LoginOutput{
			License:   testLicense(),
			Token:     validToken,
			ExpiresAt: expiresAt,
		}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/auth/login", dto.LoginRequest{UUID: "license-key"})
		handler.LoginHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeAuthResponse(t, w)
		assert.True(t, response.Success)
		assert.Equal(t, validToken, response.SessionToken)
		require.NotNil(t, response.UserData)
		assert.True(t, response.UserData.Active)
		assert.True(t, response.UserData.Permissions[licenseDomain.PermissionScriptAccess])
		require.NotNil(t, response.ExpiresAt)
		assert.Equal(t, expiresAt.Unix(), response.ExpiresAt.Unix())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_ExplicitForceLoginOverridesDefault", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		force := false

		mockUseCase.On("Login", mock.Anything, mock.MatchedBy(func(in authDomain.LoginInput) bool {
			return !in.ForceLogin
		})).Return(&authDomain.LoginOutput{License: testLicense(), Token: validToken}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/auth/login", dto.LoginRequest{UUID: "k", ForceLogin: &force})
		handler.LoginHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_DefaultWhenForceLoginOmitted", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, false)

		mockUseCase.On("Login", mock.Anything, mock.MatchedBy(func(in authDomain.LoginInput) bool {
			return !in.ForceLogin
		})).Return(&authDomain.LoginOutput{License: testLicense(), Token: validToken}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/auth/login", `{"uuid":"k"}`)
		handler.LoginHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	errorCases := []struct {
		name   string
		body   interface{}
		err    error
		status int
		code   string
	}{
		{name: "missing uuid", body: `{}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "blank uuid", body: `{"uuid":"   "}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "malformed json", body: `{"uuid":`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{
			name: "unknown identity", body: `{"uuid":"unknown-key"}`,
			err: authDomain.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "UNAUTHORIZED",
		},
		{
			name: "deactivated", body: `{"uuid":"k"}`,
			err: authDomain.ErrAccountDeactivated, status: http.StatusUnauthorized, code: "ACCOUNT_DEACTIVATED",
		},
		{
			name: "expired", body: `{"uuid":"k"}`,
			err: authDomain.ErrAccountExpired, status: http.StatusUnauthorized, code: "ACCOUNT_EXPIRED",
		},
		{
			name: "already logged in", body: `{"uuid":"k","force_login":false}`,
			err: authDomain.ErrAlreadyLoggedIn, status: http.StatusUnauthorized, code: "ALREADY_LOGGED_IN",
		},
		{
			name: "store unavailable", body: `{"uuid":"k"}`,
			err: authDomain.ErrServiceUnavailable, status: http.StatusServiceUnavailable, code: "SERVICE_UNAVAILABLE",
		},
		{
			name: "unexpected", body: `{"uuid":"k"}`,
			err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR",
		},
	}

	for _, tt := range errorCases {
		t.Run("Error_"+tt.name, func(t *testing.T) {
			handler, mockUseCase := setupTestHandler(t, true)
			if tt.err != nil {
				mockUseCase.On("Login", mock.Anything, mock.Anything).Return(nil, tt.err).Once()
			}

			c, w := createTestContext(http.MethodPost, "/auth/login", tt.body)
			handler.LoginHandler(c)

			assert.Equal(t, tt.status, w.Code)
			response := decodeAuthResponse(t, w)
			assert.False(t, response.Success)
			assert.Equal(t, tt.code, response.Code)
			assert.NotEmpty(t, response.Message)
			assert.Empty(t, response.SessionToken)
			assert.NotContains(t, w.Body.String(), "boom")
			if tt.err == nil {
				mockUseCase.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAuthHandler_LogoutHandler(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		err  error
	}{
		{name: "known token", body: dto.LogoutRequest{SessionToken: validToken}},
		{name: "unknown token", body: dto.LogoutRequest{SessionToken: "nope"}},
		{name: "empty body", body: nil},
		{name: "store failure still succeeds", body: dto.LogoutRequest{SessionToken: validToken}, err: errors.New("down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockUseCase := setupTestHandler(t, true)
			mockUseCase.On("Logout", mock.Anything, mock.AnythingOfType("string")).Return(tt.err).Once()

			c, w := createTestContext(http.MethodPost, "/auth/logout", tt.body)
			handler.LogoutHandler(c)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, decodeAuthResponse(t, w).Success)
			mockUseCase.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_ValidateHandler(t *testing.T) {
	t.Run("Success_FreshLicense", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		session := &authDomain.Session{ExpiresAt: time.Now().Add(time.Hour)}

		mockUseCase.On("Validate", mock.Anything, validToken, "10.1.2.3").
			Return(&authDomain.ValidateOutput{License: testLicense(), Session: session}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/auth/validate", dto.ValidateRequest{SessionToken: validToken})
		handler.ValidateHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeAuthResponse(t, w)
		assert.True(t, response.Success)
		require.NotNil(t, response.UserData)
		assert.True(t, response.UserData.Active)
		assert.Empty(t, response.SessionToken)
	})

	t.Run("Error_MalformedTokenNeverReachesStore", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)

		c, w := createTestContext(http.MethodPost, "/auth/validate", dto.ValidateRequest{SessionToken: "short"})
		handler.ValidateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_TOKEN", decodeAuthResponse(t, w).Code)
		mockUseCase.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_SessionInvalid", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		mockUseCase.On("Validate", mock.Anything, validToken, mock.Anything).
			Return(nil, authDomain.ErrSessionInvalid).Once()

		c, w := createTestContext(http.MethodPost, "/auth/validate", dto.ValidateRequest{SessionToken: validToken})
		handler.ValidateHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "SESSION_INVALID", decodeAuthResponse(t, w).Code)
	})

	t.Run("Error_StoreUnavailableSetsRetryAfter", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		mockUseCase.On("Validate", mock.Anything, validToken, mock.Anything).
			Return(nil, authDomain.ErrServiceUnavailable).Once()

		c, w := createTestContext(http.MethodPost, "/auth/validate", dto.ValidateRequest{SessionToken: validToken})
		handler.ValidateHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})
}

func TestAuthHandler_SessionStatsHandler(t *testing.T) {
	handler, mockUseCase := setupTestHandler(t, true)
	mockUseCase.On("Stats", mock.Anything).Return(&authDomain.SessionStats{
		ActiveSessions:    7,
		CacheSize:         3,
		BlockedIPs:        1,
		TrackedIPs:        12,
		MemoryGuardActive: false,
	}, nil).Once()

	c, w := createTestContext(http.MethodGet, "/session-stats", nil)
	handler.SessionStatsHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response dto.SessionStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(7), response.ActiveSessions)
	assert.Equal(t, 3, response.CacheSize)
	assert.Equal(t, 1, response.BlockedIPs)
	assert.Equal(t, 12, response.TrackedIPs)
}

func TestAuthHandler_SweepSessionsHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		mockUseCase.On("SweepExpired", mock.Anything).Return(int64(4), nil).Once()

		c, w := createTestContext(http.MethodPost, "/maintenance/sweep-sessions", nil)
		handler.SweepSessionsHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.SweepResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Equal(t, int64(4), response.Removed)
	})

	t.Run("Error_StoreUnavailable", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t, true)
		mockUseCase.On("SweepExpired", mock.Anything).Return(int64(0), authDomain.ErrServiceUnavailable).Once()

		c, w := createTestContext(http.MethodPost, "/maintenance/sweep-sessions", nil)
		handler.SweepSessionsHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code   authDomain.Code
		status int
	}{
		{authDomain.CodeInvalidRequest, http.StatusBadRequest},
		{authDomain.CodeInvalidToken, http.StatusBadRequest},
		{authDomain.CodeUnauthorized, http.StatusUnauthorized},
		{authDomain.CodeSessionInvalid, http.StatusUnauthorized},
		{authDomain.CodeIPBlocked, http.StatusTooManyRequests},
		{authDomain.CodeRateLimited, http.StatusTooManyRequests},
		{authDomain.CodeServiceUnavailable, http.StatusServiceUnavailable},
		{authDomain.CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.code))
			assert.NotEmpty(t, MessageFor(tt.code))
		})
	}
}
