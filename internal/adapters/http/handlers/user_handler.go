package handlers

import (
	"errors"

	"registryhub/internal/core/services"
	"registryhub/internal/pkg/pagination"
	"registryhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Create creates a user
// @Summary Create user
// @Description Create a new user account (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserInput true "User"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var input services.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Username == "" || input.Password == "" || input.Role == "" {
		return response.BadRequest(c, "Username, password and role are required")
	}

	user, err := h.userService.Create(c.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserAlreadyExists):
			return response.Conflict(c, "Username is already taken")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Invalid role")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to create user")
		}
	}

	return response.Created(c, "User created successfully", user.ToResponse())
}

// List lists users
// @Summary List users
// @Description List users with pagination (admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	items := make([]interface{}, 0, len(users))
	for _, u := range users {
		items = append(items, u.ToResponse())
	}

	return response.Success(c, "", fiber.Map{
		"users": items,
		"meta":  pagination.GetMeta(params, total),
	})
}

// Get gets a user by ID
// @Summary Get user
// @Description Get a user by ID (admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.GetByID(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to get user")
	}

	return response.Success(c, "", user.ToResponse())
}

// Update updates a user
// @Summary Update user
// @Description Update a user's profile, role or active flag (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body services.UpdateUserInput true "Changes"
// @Success 200 {object} response.Response
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	var input services.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.Update(c.Context(), uint(id), &input, callerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Invalid role")
		case errors.Is(err, services.ErrRoleSelfChange):
			return response.Forbidden(c, "You cannot change your own role")
		default:
			return response.InternalServerError(c, "Failed to update user")
		}
	}

	return response.Success(c, "User updated successfully", user.ToResponse())
}

// Delete deletes a user
// @Summary Delete user
// @Description Delete a user account (admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}
	callerID, _ := c.Locals("userID").(uint)

	if err := h.userService.Delete(c.Context(), uint(id), callerID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrSelfDelete):
			return response.Forbidden(c, "You cannot delete your own account")
		default:
			return response.InternalServerError(c, "Failed to delete user")
		}
	}

	return response.Success(c, "User deleted successfully", nil)
}

// AssignBureausRequest represents bureau assignment
type AssignBureausRequest struct {
	Bureaus []string `json:"bureaus"`
}

// AssignBureaus replaces a supervisor's bureau set
// @Summary Assign bureaus
// @Description Replace the bureau set of a supervisor (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body AssignBureausRequest true "Bureaus"
// @Success 200 {object} response.Response
// @Router /users/{id}/bureaus [put]
func (h *UserHandler) AssignBureaus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req AssignBureausRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.AssignBureaus(c.Context(), uint(id), req.Bureaus)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrNotSupervisor):
			return response.BadRequest(c, "Bureaus can only be assigned to supervisors")
		default:
			return response.InternalServerError(c, "Failed to assign bureaus")
		}
	}

	return response.Success(c, "Bureaus assigned successfully", user.ToResponse())
}

// ResetPasswordRequest represents an admin password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ResetPassword sets a new password for a user
// @Summary Reset password
// @Description Reset a user's password (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body ResetPasswordRequest true "New password"
// @Success 200 {object} response.Response
// @Router /users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.ResetPassword(c.Context(), uint(id), req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to reset password")
		}
	}

	return response.Success(c, "Password reset successfully", nil)
}

// ChangePasswordRequest represents a self-service password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword changes the caller's own password
// @Summary Change password
// @Description Change the authenticated user's password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Passwords"
// @Success 200 {object} response.Response
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	callerID, _ := c.Locals("userID").(uint)

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.ChangePassword(c.Context(), callerID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrWrongPassword):
			return response.BadRequest(c, "Current password is incorrect")
		case errors.Is(err, services.ErrWeakPassword):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to change password")
		}
	}

	return response.Success(c, "Password changed successfully", nil)
}
