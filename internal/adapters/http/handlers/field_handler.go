package handlers

import (
	"errors"

	"registryhub/internal/core/services"
	"registryhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FieldHandler handles document field endpoints
type FieldHandler struct {
	fieldService *services.FieldService
}

// NewFieldHandler creates a new field handler
func NewFieldHandler(fieldService *services.FieldService) *FieldHandler {
	return &FieldHandler{fieldService: fieldService}
}

// Get returns the fields of a document
// @Summary Get fields
// @Description Fields of a visible document in display order
// @Tags Fields
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Router /documents/{id}/fields [get]
func (h *FieldHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	fields, err := h.fieldService.GetFields(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "", fiber.Map{"fields": fields})
}

// SaveFieldsRequest represents a field save/submit request
type SaveFieldsRequest struct {
	Fields []services.FieldInput `json:"fields"`
	Submit bool                  `json:"submit"`
}

// Save upserts fields, optionally submitting the document
// @Summary Save fields
// @Description Upsert fields keyed by name; with submit=true the document moves to fields_extracted
// @Tags Fields
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param body body SaveFieldsRequest true "Fields"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /documents/{id}/fields [put]
func (h *FieldHandler) Save(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	var req SaveFieldsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	doc, err := h.fieldService.SaveFields(c.Context(), uint(id), req.Fields, req.Submit, callerID)
	if err != nil {
		if errors.Is(err, services.ErrNoFields) {
			return response.BadRequest(c, err.Error())
		}
		return documentError(c, err)
	}
	return response.Success(c, "Fields saved successfully", doc.ToResponse())
}

// Extract runs the extraction provider
// @Summary Extract fields
// @Description Run extraction over a stored document and upsert the produced fields
// @Tags Fields
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /documents/{id}/fields/extract [post]
func (h *FieldHandler) Extract(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	doc, err := h.fieldService.Extract(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Extraction completed", doc.ToResponse())
}

// Delete clears the fields and resets the document to stored
// @Summary Delete fields
// @Description Remove every field row and reset the document to stored (admin only)
// @Tags Fields
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Router /documents/{id}/fields [delete]
func (h *FieldHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	doc, err := h.fieldService.DeleteFields(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Fields deleted successfully", doc.ToResponse())
}
