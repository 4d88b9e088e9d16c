// Package mocks provides mock implementations for testing license HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
)

// MockLicenseUseCase is a mock implementation of LicenseUseCase for testing.
type MockLicenseUseCase struct {
	mock.Mock
}

// Upsert mocks the Upsert method of LicenseUseCase.
func (m *MockLicenseUseCase) Upsert(
	ctx context.Context,
	input licenseDomain.UpsertInput,
) (*licenseDomain.UpsertOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.UpsertOutput), args.Error(1)
}

// Deactivate mocks the Deactivate method of LicenseUseCase.
func (m *MockLicenseUseCase) Deactivate(
	ctx context.Context,
	input licenseDomain.DeactivateInput,
) (*licenseDomain.DeactivateOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.DeactivateOutput), args.Error(1)
}

// Reactivate mocks the Reactivate method of LicenseUseCase.
func (m *MockLicenseUseCase) Reactivate(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	args := m.Called(ctx, identityDigest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.License), args.Error(1)
}

// Get mocks the Get method of LicenseUseCase.
func (m *MockLicenseUseCase) Get(ctx context.Context, identityDigest string) (*licenseDomain.License, error) {
	args := m.Called(ctx, identityDigest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenseDomain.License), args.Error(1)
}

// List mocks the List method of LicenseUseCase.
func (m *MockLicenseUseCase) List(
	ctx context.Context,
	filter licenseDomain.ListFilter,
) ([]*licenseDomain.License, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*licenseDomain.License), args.Error(1)
}
