package handlers

import (
	"errors"
	"strconv"
	"time"

	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"
	"registryhub/internal/core/services"
	"registryhub/internal/pkg/pagination"
	"registryhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ActivityHandler handles activity log and notification endpoints
type ActivityHandler struct {
	activityService *services.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// parseTimeQuery reads an RFC3339 or date-only query parameter
func parseTimeQuery(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// List lists activity log entries
// @Summary List activity
// @Description Activity log entries with filters and pagination (supervisor or admin)
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param user_id query int false "User ID"
// @Param action query string false "Action"
// @Param from query string false "From (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "To (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /activity [get]
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	var filters repositories.ActivityFilters
	if userID, err := strconv.Atoi(c.Query("user_id")); err == nil && userID > 0 {
		filters.UserID = uint(userID)
	}
	filters.Action = c.Query("action")
	if from, ok := parseTimeQuery(c.Query("from")); ok {
		filters.From = from
	}
	if to, ok := parseTimeQuery(c.Query("to")); ok {
		filters.To = to
	}

	callerID, _ := c.Locals("userID").(uint)
	entries, total, err := h.activityService.List(c.Context(), filters, callerID, params.Offset, params.Limit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			return response.Forbidden(c, "Account is inactive")
		case errors.Is(err, domain.ErrUnauthorized):
			return response.Unauthorized(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to list activity")
		}
	}

	return response.Success(c, "", fiber.Map{
		"activity": entries,
		"meta":     pagination.GetMeta(params, total),
	})
}

// PurgeRequest represents a purge request
type PurgeRequest struct {
	Before string `json:"before"`
}

// Purge bulk-deletes old activity entries
// @Summary Purge activity
// @Description Delete activity entries older than the cutoff (admin only)
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PurgeRequest true "Cutoff"
// @Success 200 {object} response.Response
// @Router /activity/purge [post]
func (h *ActivityHandler) Purge(c *fiber.Ctx) error {
	var req PurgeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	cutoff, ok := parseTimeQuery(req.Before)
	if !ok {
		return response.BadRequest(c, "A valid cutoff date is required")
	}

	removed, err := h.activityService.Purge(c.Context(), cutoff)
	if err != nil {
		if errors.Is(err, services.ErrBadPurgeCutoff) {
			return response.BadRequest(c, "Cutoff must be in the past")
		}
		return response.InternalServerError(c, "Failed to purge activity")
	}

	return response.Success(c, "Activity purged successfully", fiber.Map{"removed": removed})
}

// Notifications returns the caller's notifications
// @Summary List notifications
// @Description Latest notifications of the authenticated user
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *ActivityHandler) Notifications(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)
	limit, _ := strconv.Atoi(c.Query("limit"))

	notifications, err := h.activityService.Notifications(c.Context(), callerID, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list notifications")
	}
	return response.Success(c, "", fiber.Map{"notifications": notifications})
}

// MarkNotificationRead marks one notification as read
// @Summary Mark notification read
// @Description Mark one of the caller's notifications as read
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [post]
func (h *ActivityHandler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid notification ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	if err := h.activityService.MarkNotificationRead(c.Context(), callerID, uint(id)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to update notification")
	}
	return response.Success(c, "Notification marked as read", nil)
}
