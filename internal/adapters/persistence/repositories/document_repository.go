package repositories

import (
	"context"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/core/domain"

	"gorm.io/gorm"
)

// DocumentRepository handles document data access
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *DocumentRepository) WithTx(tx *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// DB exposes the handle for transaction scoping by the service layer
func (r *DocumentRepository) DB() *gorm.DB {
	return r.db
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID gets a document by ID with relations
func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Preload("Uploader").
		Preload("Reviewer").
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order, field_name")
		}).
		First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListFilters are the optional explicit filters on document lists
type ListFilters struct {
	Bureau       string
	RegistreType string
	Year         int
	Status       string
}

func (f ListFilters) apply(q *gorm.DB) *gorm.DB {
	if f.Bureau != "" {
		q = q.Where("documents.bureau = ?", f.Bureau)
	}
	if f.RegistreType != "" {
		q = q.Where("documents.registre_type = ?", f.RegistreType)
	}
	if f.Year != 0 {
		q = q.Where("documents.year = ?", f.Year)
	}
	if f.Status != "" {
		q = q.Where("documents.status = ?", f.Status)
	}
	return q
}

// List lists documents visible to the scope, newest first
func (r *DocumentRepository) List(ctx context.Context, scope domain.Scope, filters ListFilters, offset, limit int) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	base := filters.apply(scope.Apply(r.db.WithContext(ctx).Model(&models.Document{})))
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := filters.apply(scope.Apply(r.db.WithContext(ctx).Model(&models.Document{}))).
		Preload("Uploader").
		Preload("Reviewer").
		Order("uploaded_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error

	return docs, total, err
}

// UpdateStatusGuarded applies updates only when the row still holds the
// expected status. Returns false when another writer got there first,
// which is how concurrent transitions on one document are kept from
// both succeeding.
func (r *DocumentRepository) UpdateStatusGuarded(ctx context.Context, id uint, expected domain.DocumentStatus, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete hard deletes a document together with its fields and history
func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentField{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentHistory{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Document{}, id).Error
	})
}

// GroupCount is one (bureau, type, year) aggregation row
type GroupCount struct {
	Bureau       string `json:"bureau"`
	RegistreType string `json:"registre_type"`
	Year         int    `json:"year"`
	Count        int64  `json:"count"`
}

// countedStatuses returns the statuses that count as accepted acts
func countedStatuses() []string {
	return []string{
		string(domain.StatusStored),
		string(domain.StatusProcessing),
		string(domain.StatusFieldsExtracted),
	}
}

// CountAcceptedByGroup counts accepted documents visible to the scope,
// grouped by (bureau, registre_type, year). This is the reconciliation
// side of the diff; the scope keeps a supervisor from reading counts of
// bureaus outside their assignment.
func (r *DocumentRepository) CountAcceptedByGroup(ctx context.Context, scope domain.Scope) ([]GroupCount, error) {
	var groups []GroupCount
	err := scope.Apply(r.db.WithContext(ctx).Model(&models.Document{})).
		Select("bureau, registre_type, year, COUNT(*) as count").
		Where("status IN ?", countedStatuses()).
		Group("bureau, registre_type, year").
		Scan(&groups).Error
	return groups, err
}

// TreeCounts aggregates visible documents per (bureau, type, year) for
// the browse tree. The scope is applied so supervisors never see counts
// from bureaus outside their assignment.
func (r *DocumentRepository) TreeCounts(ctx context.Context, scope domain.Scope) ([]GroupCount, error) {
	var groups []GroupCount
	err := scope.Apply(r.db.WithContext(ctx).Model(&models.Document{})).
		Select("bureau, registre_type, year, COUNT(*) as count").
		Group("bureau, registre_type, year").
		Order("bureau, registre_type, year").
		Scan(&groups).Error
	return groups, err
}

// Bureaus returns the distinct bureaus visible to the scope
func (r *DocumentRepository) Bureaus(ctx context.Context, scope domain.Scope) ([]string, error) {
	var bureaus []string
	err := scope.Apply(r.db.WithContext(ctx).Model(&models.Document{})).
		Distinct("bureau").
		Order("bureau").
		Pluck("bureau", &bureaus).Error
	return bureaus, err
}

// ============================================================
// Document Fields
// ============================================================

// GetFields returns the fields of a document in display order
func (r *DocumentRepository) GetFields(ctx context.Context, documentID uint) ([]*models.DocumentField, error) {
	var fields []*models.DocumentField
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("display_order, field_name").
		Find(&fields).Error
	return fields, err
}

// UpsertField writes one field keyed by (document_id, field_name),
// last-writer-wins
func (r *DocumentRepository) UpsertField(ctx context.Context, field *models.DocumentField) error {
	var existing models.DocumentField
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND field_name = ?", field.DocumentID, field.FieldName).
		First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.db.WithContext(ctx).Create(field).Error
		}
		return err
	}

	existing.FieldValue = field.FieldValue
	existing.FieldType = field.FieldType
	existing.DisplayOrder = field.DisplayOrder
	existing.UpdatedBy = field.UpdatedBy
	return r.db.WithContext(ctx).Save(&existing).Error
}

// DeleteFields removes all fields of a document
func (r *DocumentRepository) DeleteFields(ctx context.Context, documentID uint) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&models.DocumentField{}).Error
}

// CountFields counts the fields of a document
func (r *DocumentRepository) CountFields(ctx context.Context, documentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DocumentField{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}
