// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
)

// MockAuthUseCase is a mock implementation of AuthUseCase for testing.
type MockAuthUseCase struct {
	mock.Mock
}

// Login mocks the Login method of AuthUseCase.
func (m *MockAuthUseCase) Login(
	ctx context.Context,
	input authDomain.LoginInput,
) (*authDomain.LoginOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.LoginOutput), args.Error(1)
}

// Logout mocks the Logout method of AuthUseCase.
func (m *MockAuthUseCase) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Validate mocks the Validate method of AuthUseCase.
func (m *MockAuthUseCase) Validate(
	ctx context.Context,
	token, clientIP string,
) (*authDomain.ValidateOutput, error) {
	args := m.Called(ctx, token, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.ValidateOutput), args.Error(1)
}

// Stats mocks the Stats method of AuthUseCase.
func (m *MockAuthUseCase) Stats(ctx context.Context) (*authDomain.SessionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.SessionStats), args.Error(1)
}

// SweepExpired mocks the SweepExpired method of AuthUseCase.
func (m *MockAuthUseCase) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// RevokeAllFor mocks the RevokeAllFor method of AuthUseCase.
func (m *MockAuthUseCase) RevokeAllFor(ctx context.Context, identityDigest string) (int64, error) {
	args := m.Called(ctx, identityDigest)
	return args.Get(0).(int64), args.Error(1)
}
