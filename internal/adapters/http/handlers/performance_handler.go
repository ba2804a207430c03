package handlers

import (
	"strconv"
	"time"

	"registryhub/internal/core/services"
	"registryhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PerformanceHandler handles performance report endpoints
type PerformanceHandler struct {
	perfService *services.PerformanceService
}

// NewPerformanceHandler creates a new performance handler
func NewPerformanceHandler(perfService *services.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{perfService: perfService}
}

// reportRange reads the from/to query range, defaulting to the last 30
// days ending now
func reportRange(c *fiber.Ctx) (time.Time, time.Time, bool) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if t, ok := parseTimeQuery(c.Query("from")); ok {
		from = t
	}
	if t, ok := parseTimeQuery(c.Query("to")); ok {
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// Report returns per-user statistics for a date range
// @Summary Performance report
// @Description Per-user activity counts, active days and work hours (supervisor or admin)
// @Tags Performance
// @Produce json
// @Security BearerAuth
// @Param from query string false "From (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "To (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Router /performance/report [get]
func (h *PerformanceHandler) Report(c *fiber.Ctx) error {
	from, to, ok := reportRange(c)
	if !ok {
		return response.BadRequest(c, "Invalid date range")
	}

	report, err := h.perfService.GetReport(c.Context(), from, to)
	if err != nil {
		return response.InternalServerError(c, "Failed to build report")
	}
	return response.Success(c, "", report)
}

// Top ranks users by activity count
// @Summary Top performers
// @Description Users ranked by activity count in a date range (supervisor or admin)
// @Tags Performance
// @Produce json
// @Security BearerAuth
// @Param from query string false "From (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "To (RFC3339 or YYYY-MM-DD)"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /performance/top [get]
func (h *PerformanceHandler) Top(c *fiber.Ctx) error {
	from, to, ok := reportRange(c)
	if !ok {
		return response.BadRequest(c, "Invalid date range")
	}
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	users, err := h.perfService.TopPerformers(c.Context(), from, to, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to build report")
	}
	return response.Success(c, "", fiber.Map{"users": users})
}
