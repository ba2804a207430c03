package services

import (
	"context"
	"errors"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/password"

	"gorm.io/gorm"
)

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidRole       = errors.New("invalid role")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
	ErrRoleSelfChange    = errors.New("role can only be changed by another admin")
	ErrNotSupervisor     = errors.New("bureaus can only be assigned to supervisors")
	ErrSelfDelete        = errors.New("cannot delete own account")
	ErrWrongPassword     = errors.New("current password is incorrect")
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput represents admin user creation input
type CreateUserInput struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     string   `json:"role" validate:"required"`
	FullName string   `json:"full_name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Bureaus  []string `json:"bureaus,omitempty"`
}

// Create creates a new user (admin only, enforced at the route)
func (s *UserService) Create(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	if _, ok := domain.ParseRole(input.Role); !ok {
		return nil, ErrInvalidRole
	}
	if !password.Validate(input.Password) {
		return nil, ErrWeakPassword
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: input.Username,
		Password: hashed,
		Role:     input.Role,
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    input.Phone,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if len(input.Bureaus) > 0 && input.Role == string(domain.RoleSupervisor) {
		if err := s.userRepo.ReplaceBureaus(ctx, user.ID, input.Bureaus); err != nil {
			return nil, err
		}
	}

	return s.userRepo.GetByID(ctx, user.ID)
}

// GetByID gets a user by ID
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List lists users with pagination
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, offset, limit)
}

// UpdateUserInput represents admin user update input
type UpdateUserInput struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Update updates a user. Role is immutable-by-self: an admin cannot
// change their own role.
func (s *UserService) Update(ctx context.Context, id uint, input *UpdateUserInput, callerID uint) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil && *input.Role != user.Role {
		if _, ok := domain.ParseRole(*input.Role); !ok {
			return nil, ErrInvalidRole
		}
		if id == callerID {
			return nil, ErrRoleSelfChange
		}
		user.Role = *input.Role
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword sets a new password for a user (admin action)
func (s *UserService) ResetPassword(ctx context.Context, id uint, newPassword string) error {
	if !password.Validate(newPassword) {
		return ErrWeakPassword
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.userRepo.Update(ctx, user)
}

// ChangePassword changes the caller's own password
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(current, user.Password) {
		return ErrWrongPassword
	}
	if !password.Validate(next) {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(next)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.userRepo.Update(ctx, user)
}

// Delete removes a user (admin action); self-deletion is refused
func (s *UserService) Delete(ctx context.Context, id uint, callerID uint) error {
	if id == callerID {
		return ErrSelfDelete
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, id)
}

// AssignBureaus replaces a supervisor's bureau set
func (s *UserService) AssignBureaus(ctx context.Context, id uint, bureaus []string) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != string(domain.RoleSupervisor) {
		return nil, ErrNotSupervisor
	}

	if err := s.userRepo.ReplaceBureaus(ctx, id, bureaus); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}
