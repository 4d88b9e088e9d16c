package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	licenseMocks "github.com/scrilab/artale-auth/internal/license/http/mocks"
	"github.com/scrilab/artale-auth/internal/license/usecase"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordRejection(ctx context.Context, domain, reason string) {
	m.Called(ctx, domain, reason)
}

func expectOperation(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "license", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "license", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestLicenseUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	digest := licenseDomain.DigestIdentity("key")

	t.Run("Upsert success", func(t *testing.T) {
		mockNext := &licenseMocks.MockLicenseUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLicenseUseCaseWithMetrics(mockNext, mockMetrics)

		input := licenseDomain.UpsertInput{IdentityDigest: digest}
		output := &licenseDomain.UpsertOutput{License: &licenseDomain.License{IdentityDigest: digest}, Created: true}
		mockNext.On("Upsert", ctx, input).Return(output, nil).Once()
		expectOperation(mockMetrics, ctx, "upsert", "success")

		res, err := uc.Upsert(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, output, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Deactivate error", func(t *testing.T) {
		mockNext := &licenseMocks.MockLicenseUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLicenseUseCaseWithMetrics(mockNext, mockMetrics)

		input := licenseDomain.DeactivateInput{IdentityDigest: digest, Reason: "refund"}
		mockNext.On("Deactivate", ctx, input).Return(nil, errors.New("boom")).Once()
		expectOperation(mockMetrics, ctx, "deactivate", "error")

		res, err := uc.Deactivate(ctx, input)
		assert.Error(t, err)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Reactivate Get and List", func(t *testing.T) {
		mockNext := &licenseMocks.MockLicenseUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		uc := usecase.NewLicenseUseCaseWithMetrics(mockNext, mockMetrics)

		license := &licenseDomain.License{IdentityDigest: digest, Active: true}
		filter := licenseDomain.ListFilter{Limit: 10}
		mockNext.On("Reactivate", ctx, digest).Return(license, nil).Once()
		mockNext.On("Get", ctx, digest).Return(license, nil).Once()
		mockNext.On("List", ctx, filter).Return([]*licenseDomain.License{license}, nil).Once()
		expectOperation(mockMetrics, ctx, "reactivate", "success")
		expectOperation(mockMetrics, ctx, "get", "success")
		expectOperation(mockMetrics, ctx, "list", "success")

		_, err := uc.Reactivate(ctx, digest)
		assert.NoError(t, err)
		_, err = uc.Get(ctx, digest)
		assert.NoError(t, err)
		licenses, err := uc.List(ctx, filter)
		assert.NoError(t, err)
		assert.Len(t, licenses, 1)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})
}
