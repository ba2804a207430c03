package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// Field errors
var (
	ErrNoFields = errors.New("at least one field is required")
)

// FieldService manages the keyed fields attached to stored documents.
// Field writes and the optional submit transition commit in one
// transaction so status never disagrees with the field rows.
type FieldService struct {
	db          *gorm.DB
	docRepo     *repositories.DocumentRepository
	historyRepo *repositories.HistoryRepository
	userRepo    repositories.UserRepository
	extractor   Extractor
}

// NewFieldService creates a new field service
func NewFieldService(
	db *gorm.DB,
	docRepo *repositories.DocumentRepository,
	historyRepo *repositories.HistoryRepository,
	userRepo repositories.UserRepository,
	extractor Extractor,
) *FieldService {
	return &FieldService{
		db:          db,
		docRepo:     docRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		extractor:   extractor,
	}
}

func (s *FieldService) requireActiveUser(ctx context.Context, userID uint) (*models.User, error) {
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

// visibleDocument loads a document the caller may see
func (s *FieldService) visibleDocument(ctx context.Context, id uint, caller *models.User) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if !ScopeFor(caller).CanViewDocument(doc.Bureau, doc.UploadedBy) {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// GetFields returns the fields of a visible document
func (s *FieldService) GetFields(ctx context.Context, documentID uint, callerID uint) ([]*models.DocumentField, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleDocument(ctx, documentID, caller); err != nil {
		return nil, err
	}
	return s.docRepo.GetFields(ctx, documentID)
}

// FieldInput is one field write
type FieldInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
	Order int    `json:"order,omitempty"`
}

// SaveFields upserts fields keyed by field name, last-writer-wins.
// With submit=true the document also transitions to fields_extracted.
// Everything commits atomically: a failed write leaves neither new
// field rows nor a changed status behind.
func (s *FieldService) SaveFields(ctx context.Context, documentID uint, inputs []FieldInput, submit bool, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, ErrNoFields
	}
	for _, in := range inputs {
		if in.Name == "" {
			return nil, ErrNoFields
		}
	}

	doc, err := s.visibleDocument(ctx, documentID, caller)
	if err != nil {
		return nil, err
	}
	status := domain.DocumentStatus(doc.Status)
	if !status.FieldsEditable() {
		return nil, domain.ErrInvalidState
	}

	transitioned := submit && status != domain.StatusFieldsExtracted
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.docRepo.WithTx(tx)
		for _, in := range inputs {
			fieldType := in.Type
			if fieldType == "" {
				fieldType = "text"
			}
			field := &models.DocumentField{
				DocumentID:   documentID,
				FieldName:    in.Name,
				FieldValue:   in.Value,
				FieldType:    fieldType,
				DisplayOrder: in.Order,
				UpdatedBy:    caller.ID,
			}
			if err := txRepo.UpsertField(ctx, field); err != nil {
				return err
			}
		}

		if transitioned {
			ok, err := txRepo.UpdateStatusGuarded(ctx, documentID, status, map[string]interface{}{
				"status": string(domain.StatusFieldsExtracted),
			})
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInvalidState
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			metrics.TransitionFailures.WithLabelValues(string(domain.ActionFieldsSubmitted)).Inc()
		}
		return nil, err
	}

	action := domain.ActionFieldsSaved
	if submit {
		action = domain.ActionFieldsSubmitted
	}
	count, _ := s.docRepo.CountFields(ctx, documentID)
	s.record(ctx, documentID, caller.ID, action, fmt.Sprintf(`{"field_count":%d}`, count))
	if transitioned {
		metrics.DocumentTransitions.WithLabelValues(string(domain.ActionFieldsSubmitted)).Inc()
	}

	return s.docRepo.GetByID(ctx, documentID)
}

// Extract runs the extraction provider over a stored document and
// upserts the produced fields. Moves stored → processing on first run;
// idempotent while the document stays in an extractable state.
func (s *FieldService) Extract(ctx context.Context, documentID uint, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.visibleDocument(ctx, documentID, caller)
	if err != nil {
		return nil, err
	}
	status := domain.DocumentStatus(doc.Status)
	if !status.FieldsEditable() {
		return nil, domain.ErrInvalidState
	}

	if status == domain.StatusStored {
		ok, err := s.docRepo.UpdateStatusGuarded(ctx, documentID, domain.StatusStored, map[string]interface{}{
			"status": string(domain.StatusProcessing),
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			// someone else already advanced it; extraction is still fine
			log.Printf("ℹ️ Document #%d advanced concurrently during extract", documentID)
		}
	}

	extracted, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.docRepo.WithTx(tx)
		for _, f := range extracted {
			field := &models.DocumentField{
				DocumentID:   documentID,
				FieldName:    f.Name,
				FieldValue:   f.Value,
				FieldType:    f.Type,
				DisplayOrder: f.Order,
				UpdatedBy:    caller.ID,
			}
			if err := txRepo.UpsertField(ctx, field); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, documentID, caller.ID, domain.ActionExtractionRun,
		fmt.Sprintf(`{"field_count":%d}`, len(extracted)))
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionExtractionRun)).Inc()

	return s.docRepo.GetByID(ctx, documentID)
}

// DeleteFields clears every field row and resets the document to
// stored. Admin only.
func (s *FieldService) DeleteFields(ctx context.Context, documentID uint, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != string(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	status := domain.DocumentStatus(doc.Status)
	if !status.FieldsEditable() {
		return nil, domain.ErrInvalidState
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.docRepo.WithTx(tx)
		if err := txRepo.DeleteFields(ctx, documentID); err != nil {
			return err
		}
		if status != domain.StatusStored {
			ok, err := txRepo.UpdateStatusGuarded(ctx, documentID, status, map[string]interface{}{
				"status": string(domain.StatusStored),
			})
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInvalidState
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, documentID, caller.ID, domain.ActionFieldsDeleted, "")
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionFieldsDeleted)).Inc()

	return s.docRepo.GetByID(ctx, documentID)
}

// record appends one history entry plus an activity entry,
// log-and-continue
func (s *FieldService) record(ctx context.Context, documentID, userID uint, action domain.Action, details string) {
	entry := &models.DocumentHistory{
		DocumentID: documentID,
		Action:     string(action),
		UserID:     userID,
		Details:    details,
	}
	if err := s.historyRepo.AppendDocumentHistory(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to append history (%s, doc %d): %v", action, documentID, err)
	}
	activity := &models.ActivityLog{
		UserID:     userID,
		Action:     string(action),
		EntityType: "document",
		EntityID:   documentID,
		Details:    details,
	}
	if err := s.historyRepo.AppendActivity(ctx, activity); err != nil {
		log.Printf("⚠️ Failed to append activity log (%s, doc %d): %v", action, documentID, err)
	}
}
