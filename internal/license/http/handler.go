// Package http provides the administrative license API used by payment flows
// and operators. Every route sits behind the admin key middleware.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	"github.com/scrilab/artale-auth/internal/httputil"
	licenseDomain "github.com/scrilab/artale-auth/internal/license/domain"
	"github.com/scrilab/artale-auth/internal/license/http/dto"
	licenseUseCase "github.com/scrilab/artale-auth/internal/license/usecase"
	customValidation "github.com/scrilab/artale-auth/internal/validation"
)

// LicenseHandler handles license administration requests.
type LicenseHandler struct {
	licenseUseCase licenseUseCase.LicenseUseCase
	logger         *slog.Logger
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(licenseUseCase licenseUseCase.LicenseUseCase, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		licenseUseCase: licenseUseCase,
		logger:         logger,
	}
}

// UpsertHandler creates or renews a license for a confirmed payment.
// POST /v1/licenses - 201 when created, 200 when renewed.
func (h *LicenseHandler) UpsertHandler(c *gin.Context) {
	var req dto.UpsertLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	output, err := h.licenseUseCase.Upsert(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusOK
	if output.Created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.UpsertLicenseResponse{
		License: dto.MapLicenseToResponse(output.License),
		Created: output.Created,
	})
}

// ListHandler pages through licenses, newest first.
// GET /v1/licenses?offset=0&limit=50
func (h *LicenseHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	licenses, err := h.licenseUseCase.List(
		c.Request.Context(),
		licenseDomain.ListFilter{Offset: offset, Limit: limit},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLicensesToListResponse(licenses))
}

// GetHandler returns one license.
// GET /v1/licenses/:digest
func (h *LicenseHandler) GetHandler(c *gin.Context) {
	digest, ok := h.digestParam(c)
	if !ok {
		return
	}

	license, err := h.licenseUseCase.Get(c.Request.Context(), digest)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLicenseToResponse(license))
}

// DeactivateHandler deactivates a license and ends its sessions.
// POST /v1/licenses/:digest/deactivate
func (h *LicenseHandler) DeactivateHandler(c *gin.Context) {
	digest, ok := h.digestParam(c)
	if !ok {
		return
	}

	var req dto.DeactivateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	output, err := h.licenseUseCase.Deactivate(c.Request.Context(), licenseDomain.DeactivateInput{
		IdentityDigest: digest,
		Reason:         req.Reason,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DeactivateLicenseResponse{
		License:         dto.MapLicenseToResponse(output.License),
		RevokedSessions: output.RevokedSessions,
	})
}

// ReactivateHandler marks a license active again.
// POST /v1/licenses/:digest/reactivate
func (h *LicenseHandler) ReactivateHandler(c *gin.Context) {
	digest, ok := h.digestParam(c)
	if !ok {
		return
	}

	license, err := h.licenseUseCase.Reactivate(c.Request.Context(), digest)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLicenseToResponse(license))
}

func (h *LicenseHandler) digestParam(c *gin.Context) (string, bool) {
	digest := c.Param("digest")
	if err := validation.Validate(digest, validation.Required, customValidation.IdentityDigest); err != nil {
		httputil.HandleValidationErrorGin(c, errors.New("invalid identity digest: "+err.Error()), h.logger)
		return "", false
	}
	return digest, true
}
