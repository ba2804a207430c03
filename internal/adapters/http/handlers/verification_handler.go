package handlers

import (
	"errors"

	"registryhub/internal/core/domain"
	"registryhub/internal/core/services"
	"registryhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// VerificationHandler handles verification batch endpoints
type VerificationHandler struct {
	verifService *services.VerificationService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(verifService *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{verifService: verifService}
}

// Upload ingests an expected-counts spreadsheet
// @Summary Upload batch
// @Description Parse an expected-counts spreadsheet into one immutable batch (supervisor or admin)
// @Tags Verification
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Spreadsheet (xlsx)"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /verification/batches [post]
func (h *VerificationHandler) Upload(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)

	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A spreadsheet file is required")
	}
	data, _, err := readUpload(fh)
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}

	result, err := h.verifService.UploadBatch(c.Context(), data, fh.Filename, callerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadSpreadsheet):
			return response.UnsupportedMedia(c, "File is not a readable spreadsheet")
		case errors.Is(err, services.ErrEmptyBatch):
			return response.BadRequest(c, "Spreadsheet contains no data rows")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to upload batch")
		}
	}

	return response.Created(c, "Batch uploaded successfully", result)
}

// List summarizes uploaded batches
// @Summary List batches
// @Description Summaries of uploaded verification batches, newest first
// @Tags Verification
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /verification/batches [get]
func (h *VerificationHandler) List(c *fiber.Ctx) error {
	batches, err := h.verifService.ListBatches(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list batches")
	}
	return response.Success(c, "", fiber.Map{"batches": batches})
}

// Rows returns the raw rows of one batch
// @Summary Batch rows
// @Description Raw expected-count rows of one batch
// @Tags Verification
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /verification/batches/{id} [get]
func (h *VerificationHandler) Rows(c *fiber.Ctx) error {
	batchID := c.Params("id")
	if batchID == "" {
		return response.BadRequest(c, "Invalid batch ID")
	}

	rows, err := h.verifService.GetBatchRows(c.Context(), batchID)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			return response.NotFound(c, "Batch not found")
		}
		return response.InternalServerError(c, "Failed to get batch")
	}
	return response.Success(c, "", fiber.Map{"rows": rows})
}

// Compare reconciles a batch against actual counts
// @Summary Compare batch
// @Description Diff expected counts against accepted document counts per bureau, type and year
// @Tags Verification
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /verification/batches/{id}/compare [get]
func (h *VerificationHandler) Compare(c *fiber.Ctx) error {
	batchID := c.Params("id")
	if batchID == "" {
		return response.BadRequest(c, "Invalid batch ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	result, err := h.verifService.Compare(c.Context(), batchID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBatchNotFound):
			return response.NotFound(c, "Batch not found")
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "Account is inactive")
		case errors.Is(err, domain.ErrUnauthorized):
			return response.Unauthorized(c, "User not found")
		default:
			return response.InternalServerError(c, "Comparison failed")
		}
	}
	return response.Success(c, "", result)
}

// Delete removes a batch
// @Summary Delete batch
// @Description Remove every row of a batch; documents are untouched (admin only)
// @Tags Verification
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response
// @Router /verification/batches/{id} [delete]
func (h *VerificationHandler) Delete(c *fiber.Ctx) error {
	batchID := c.Params("id")
	if batchID == "" {
		return response.BadRequest(c, "Invalid batch ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	if err := h.verifService.DeleteBatch(c.Context(), batchID, callerID); err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			return response.NotFound(c, "Batch not found")
		}
		return response.InternalServerError(c, "Failed to delete batch")
	}
	return response.Success(c, "Batch deleted successfully", nil)
}
