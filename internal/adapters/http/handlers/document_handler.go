package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"
	"registryhub/internal/core/services"
	"registryhub/internal/pkg/pagination"
	"registryhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DocumentHandler handles document lifecycle endpoints
type DocumentHandler struct {
	docService *services.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// readUpload pulls the file part out of a multipart form
func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Header.Get("Content-Type"), nil
}

// documentError maps service errors to HTTP responses
func documentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		return response.NotFound(c, "Document not found")
	case errors.Is(err, services.ErrNotDocumentOwner):
		return response.Forbidden(c, "Only the uploading agent may resubmit this document")
	case errors.Is(err, services.ErrMissingMetadata),
		errors.Is(err, services.ErrMissingRejection),
		errors.Is(err, services.ErrMissingFile),
		errors.Is(err, services.ErrUnknownRegistre):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return response.UnsupportedMedia(c, "Unsupported file type")
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return response.PayloadTooLarge(c, "File exceeds the upload size limit")
	case errors.Is(err, domain.ErrInvalidState):
		return response.Conflict(c, "Document is not in the required state for this action")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to perform this action")
	case errors.Is(err, domain.ErrUnauthorized):
		return response.Unauthorized(c, "Unauthorized")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}

// Upload uploads a new document
// @Summary Upload document
// @Description Upload a scanned document with its registry metadata
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Scanned document"
// @Param bureau formData string true "Bureau"
// @Param registre_type formData string true "Registre type"
// @Param year formData int true "Year"
// @Param registre_number formData string true "Registre number"
// @Param acte_number formData string true "Acte number"
// @Success 201 {object} response.Response
// @Failure 415 {object} response.Response
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)

	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file is required")
	}
	data, contentType, err := readUpload(fh)
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}

	year, _ := strconv.Atoi(c.FormValue("year"))
	input := &services.UploadInput{
		Bureau:         c.FormValue("bureau"),
		RegistreType:   c.FormValue("registre_type"),
		Year:           year,
		RegistreNumber: c.FormValue("registre_number"),
		ActeNumber:     c.FormValue("acte_number"),
		ContentType:    contentType,
		Data:           data,
	}

	doc, err := h.docService.Upload(c.Context(), input, callerID)
	if err != nil {
		return documentError(c, err)
	}

	return response.Created(c, "Document uploaded successfully", doc.ToResponse())
}

// List lists visible documents
// @Summary List documents
// @Description List documents visible to the caller, newest first
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param bureau query string false "Bureau"
// @Param registre_type query string false "Registre type"
// @Param year query int false "Year"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)
	params := pagination.GetParams(c)

	year, _ := strconv.Atoi(c.Query("year"))
	filters := repositories.ListFilters{
		Bureau:       c.Query("bureau"),
		RegistreType: c.Query("registre_type"),
		Year:         year,
		Status:       c.Query("status"),
	}

	docs, total, err := h.docService.List(c.Context(), callerID, filters, params.Offset, params.Limit)
	if err != nil {
		return documentError(c, err)
	}

	items := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.ToResponse())
	}

	return response.Success(c, "", fiber.Map{
		"documents": items,
		"meta":      pagination.GetMeta(params, total),
	})
}

// Tree returns per-(bureau, type, year) counts
// @Summary Document tree
// @Description Counts of visible documents grouped by bureau, registre type and year
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /documents/tree [get]
func (h *DocumentHandler) Tree(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)

	groups, err := h.docService.Tree(c.Context(), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "", fiber.Map{"tree": groups})
}

// Bureaus returns visible bureaus
// @Summary List bureaus
// @Description Distinct bureaus visible to the caller
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /documents/bureaus [get]
func (h *DocumentHandler) Bureaus(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)

	bureaus, err := h.docService.Bureaus(c.Context(), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "", fiber.Map{"bureaus": bureaus})
}

// Get returns one document
// @Summary Get document
// @Description Get a document with its fields if the caller may see it
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	doc, err := h.docService.Get(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "", doc.ToResponse())
}

// File streams the stored scan
// @Summary Download file
// @Description Download the stored scan of a visible document
// @Tags Documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {file} binary
// @Router /documents/{id}/file [get]
func (h *DocumentHandler) File(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	data, contentType, err := h.docService.Retrieve(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// History returns the history trail
// @Summary Document history
// @Description History entries of a visible document, oldest first
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Router /documents/{id}/history [get]
func (h *DocumentHandler) History(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	entries, err := h.docService.History(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "", fiber.Map{"history": entries})
}

// StartReview claims a pending document for review
// @Summary Start review
// @Description Move a pending document to reviewing (supervisor or admin)
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /documents/{id}/review [post]
func (h *DocumentHandler) StartReview(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	doc, err := h.docService.StartReview(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Review started", doc.ToResponse())
}

// Approve accepts a document under review
// @Summary Approve document
// @Description Move a reviewing document to stored (supervisor or admin)
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /documents/{id}/approve [post]
func (h *DocumentHandler) Approve(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	doc, err := h.docService.Approve(c.Context(), uint(id), callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Document approved", doc.ToResponse())
}

// Reject sends a document back for correction
// @Summary Reject document
// @Description Move a reviewing document to rejected_for_update with a reason
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param body body services.RejectInput true "Rejection reason"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /documents/{id}/reject [post]
func (h *DocumentHandler) Reject(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	var input services.RejectInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	doc, err := h.docService.Reject(c.Context(), uint(id), &input, callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Document rejected", doc.ToResponse())
}

// Resubmit replaces the scan of a rejected document
// @Summary Resubmit document
// @Description Replace the file of a rejected document and return it to pending
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param file formData file true "Corrected scan"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /documents/{id}/resubmit [post]
func (h *DocumentHandler) Resubmit(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file is required")
	}
	data, contentType, err := readUpload(fh)
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}

	doc, err := h.docService.Resubmit(c.Context(), uint(id), data, contentType, callerID)
	if err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Document resubmitted", doc.ToResponse())
}

// Delete removes a document
// @Summary Delete document
// @Description Remove a document with its fields and history (admin only)
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} response.Response
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid document ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	if err := h.docService.Delete(c.Context(), uint(id), callerID); err != nil {
		return documentError(c, err)
	}
	return response.Success(c, "Document deleted successfully", nil)
}
