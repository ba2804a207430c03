package repositories

import (
	"context"
	"time"

	"registryhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// VerificationRepository handles expected-count batch data access
type VerificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// CreateBatch inserts all rows of one batch atomically. A batch is
// immutable once created.
func (r *VerificationRepository) CreateBatch(ctx context.Context, rows []*models.ExcelRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBatchRows returns all rows of a batch
func (r *VerificationRepository) GetBatchRows(ctx context.Context, batchID string) ([]*models.ExcelRecord, error) {
	var rows []*models.ExcelRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("bureau, registre_type, gregorian_year").
		Find(&rows).Error
	return rows, err
}

// BatchSummary describes one uploaded batch
type BatchSummary struct {
	BatchID          string    `json:"batch_id"`
	RowCount         int64     `json:"row_count"`
	UploadedBy       uint      `json:"uploaded_by"`
	OriginalFilename string    `json:"original_filename"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListBatches summarizes uploaded batches, newest first
func (r *VerificationRepository) ListBatches(ctx context.Context) ([]BatchSummary, error) {
	var batches []BatchSummary
	err := r.db.WithContext(ctx).
		Model(&models.ExcelRecord{}).
		Select("batch_id, COUNT(*) as row_count, MIN(uploaded_by) as uploaded_by, MIN(original_filename) as original_filename, MIN(created_at) as created_at").
		Group("batch_id").
		Order("created_at DESC").
		Scan(&batches).Error
	return batches, err
}

// DeleteBatch removes every row of a batch in one operation. Document
// rows are never touched. Returns the number of rows removed.
func (r *VerificationRepository) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&models.ExcelRecord{})
	return res.RowsAffected, res.Error
}
