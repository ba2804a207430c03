package services

import (
	"context"
	"errors"
	"log"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"

	"gorm.io/gorm"
)

// Activity errors
var (
	ErrBadPurgeCutoff = errors.New("purge cutoff must be in the past")
)

// ActivityService exposes the append-only activity log for audits.
// Reads only; the writers are the lifecycle services.
type ActivityService struct {
	historyRepo *repositories.HistoryRepository
	userRepo    repositories.UserRepository
}

// NewActivityService creates a new activity service
func NewActivityService(historyRepo *repositories.HistoryRepository, userRepo repositories.UserRepository) *ActivityService {
	return &ActivityService{historyRepo: historyRepo, userRepo: userRepo}
}

func (s *ActivityService) requireActiveUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// List lists activity entries visible to the caller. Admins read the
// whole log; supervisors only see entries about documents inside their
// assigned bureaus.
func (s *ActivityService) List(ctx context.Context, filters repositories.ActivityFilters, callerID uint, offset, limit int) ([]*models.ActivityLog, int64, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, 0, err
	}
	return s.historyRepo.ListActivity(ctx, ScopeFor(caller), filters, offset, limit)
}

// Purge bulk-deletes entries older than the cutoff (admin only,
// enforced at the route)
func (s *ActivityService) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if !cutoff.Before(time.Now()) {
		return 0, ErrBadPurgeCutoff
	}
	removed, err := s.historyRepo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Printf("🗑️ Activity log purged: %d entries older than %s", removed, cutoff.Format(time.RFC3339))
	return removed, nil
}

// Notifications returns a user's notifications
func (s *ActivityService) Notifications(ctx context.Context, userID uint, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.historyRepo.ListNotifications(ctx, userID, limit)
}

// MarkNotificationRead marks one of the user's notifications as read
func (s *ActivityService) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	return s.historyRepo.MarkNotificationRead(ctx, userID, id)
}
