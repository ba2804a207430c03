package repositories

import (
	"context"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/core/domain"

	"gorm.io/gorm"
)

// HistoryRepository handles document history and activity log access.
// Both tables are append-only; the only deletion path is the bulk
// admin purge.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *HistoryRepository) WithTx(tx *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// AppendDocumentHistory appends a document history entry
func (r *HistoryRepository) AppendDocumentHistory(ctx context.Context, entry *models.DocumentHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// AppendActivity appends an activity log entry
func (r *HistoryRepository) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetDocumentHistory returns history entries of one document, newest first
func (r *HistoryRepository) GetDocumentHistory(ctx context.Context, documentID uint) ([]*models.DocumentHistory, error) {
	var entries []*models.DocumentHistory
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// ActivityFilters are the optional filters on activity listings
type ActivityFilters struct {
	UserID uint
	Action string
	From   time.Time
	To     time.Time
}

func (f ActivityFilters) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != 0 {
		q = q.Where("activity_logs.user_id = ?", f.UserID)
	}
	if f.Action != "" {
		q = q.Where("activity_logs.action = ?", f.Action)
	}
	if !f.From.IsZero() {
		q = q.Where("activity_logs.created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("activity_logs.created_at < ?", f.To)
	}
	return q
}

// scopedActivity builds the base query for one activity listing. Admins
// read the whole log; everyone else is joined through the documents
// table so only entries about documents inside their bureau scope
// remain, and user-level events stay admin-only.
func (r *HistoryRepository) scopedActivity(ctx context.Context, scope domain.Scope, filters ActivityFilters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.ActivityLog{})
	if !scope.Unrestricted() {
		q = scope.Apply(q.Joins(
			"JOIN documents ON documents.id = activity_logs.entity_id AND activity_logs.entity_type = ?",
			"document"))
	}
	return filters.apply(q)
}

// ListActivity lists activity log entries visible to the scope
func (r *HistoryRepository) ListActivity(ctx context.Context, scope domain.Scope, filters ActivityFilters, offset, limit int) ([]*models.ActivityLog, int64, error) {
	var entries []*models.ActivityLog
	var total int64

	if err := r.scopedActivity(ctx, scope, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.scopedActivity(ctx, scope, filters).
		Preload("User").
		Order("activity_logs.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error

	return entries, total, err
}

// ListActivityInRange returns all activity entries in a date range,
// for the performance aggregator. Plain reads, no locks.
func (r *HistoryRepository) ListActivityInRange(ctx context.Context, from, to time.Time) ([]*models.ActivityLog, error) {
	var entries []*models.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at").
		Find(&entries).Error
	return entries, err
}

// PurgeBefore bulk-deletes activity entries older than the cutoff
func (r *HistoryRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ActivityLog{})
	return res.RowsAffected, res.Error
}

// CreateNotification writes a notification row for a user
func (r *HistoryRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListNotifications returns a user's notifications, unread first
func (r *HistoryRepository) ListNotifications(ctx context.Context, userID uint, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_read, created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// MarkNotificationRead marks one notification as read
func (r *HistoryRepository) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
