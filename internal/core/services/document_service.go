package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/metrics"
	"registryhub/internal/pkg/storage"

	"gorm.io/gorm"
)

// Document errors
var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrNotDocumentOwner  = errors.New("only the uploading agent may resubmit")
	ErrMissingMetadata   = errors.New("bureau, registre type, year, registre number and acte number are required")
	ErrMissingRejection  = errors.New("rejection requires an error type and a message")
	ErrMissingFile       = errors.New("a file payload is required")
	ErrUnknownRegistre   = errors.New("unknown registre type")
)

// DocumentService owns the document lifecycle state machine. Every
// transition is a guarded status update inside one transaction, every
// successful transition appends exactly one history entry.
type DocumentService struct {
	docRepo     *repositories.DocumentRepository
	historyRepo *repositories.HistoryRepository
	userRepo    repositories.UserRepository
	store       storage.Store
	maxUpload   int64
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo *repositories.DocumentRepository,
	historyRepo *repositories.HistoryRepository,
	userRepo repositories.UserRepository,
	store storage.Store,
	maxUpload int64,
) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		store:       store,
		maxUpload:   maxUpload,
	}
}

// requireActiveUser loads the caller and refuses inactive accounts
func (s *DocumentService) requireActiveUser(ctx context.Context, userID uint) (*models.User, error) {
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

// ScopeFor builds the visibility scope of a caller
func ScopeFor(user *models.User) domain.Scope {
	role, _ := domain.ParseRole(user.Role)
	return domain.Scope{
		Role:    role,
		UserID:  user.ID,
		Bureaus: user.BureauNames(),
	}
}

// UploadInput represents a document upload
type UploadInput struct {
	Bureau         string
	RegistreType   string
	Year           int
	RegistreNumber string
	ActeNumber     string
	ContentType    string
	Data           []byte
}

func (in *UploadInput) validate(maxUpload int64) error {
	if in.Bureau == "" || in.RegistreType == "" || in.Year == 0 ||
		in.RegistreNumber == "" || in.ActeNumber == "" {
		return ErrMissingMetadata
	}
	if !domain.ValidRegistreType(in.RegistreType) {
		return ErrUnknownRegistre
	}
	if len(in.Data) == 0 {
		return ErrMissingFile
	}
	if !storage.Accepted(in.ContentType) {
		return domain.ErrUnsupportedMedia
	}
	if int64(len(in.Data)) > maxUpload {
		return domain.ErrPayloadTooLarge
	}
	return nil
}

// Upload creates a document in pending. The file is stored first and
// removed again if the database write fails, so a failed request never
// leaves an orphan behind. The (bureau, type, year, registre, acte)
// natural key is deliberately not enforced unique; duplicates surface
// in reconciliation counts.
func (s *DocumentService) Upload(ctx context.Context, input *UploadInput, uploaderID uint) (*models.Document, error) {
	uploader, err := s.requireActiveUser(ctx, uploaderID)
	if err != nil {
		return nil, err
	}
	if uploader.Role != string(domain.RoleAgent) {
		return nil, domain.ErrForbidden
	}
	if err := input.validate(s.maxUpload); err != nil {
		return nil, err
	}

	fileRef, err := s.store.Store(input.Data, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	doc := &models.Document{
		FileRef:        fileRef,
		ContentType:    input.ContentType,
		FileSize:       int64(len(input.Data)),
		Bureau:         input.Bureau,
		RegistreType:   input.RegistreType,
		Year:           input.Year,
		RegistreNumber: input.RegistreNumber,
		ActeNumber:     input.ActeNumber,
		Status:         string(domain.StatusPending),
		UploadedBy:     uploader.ID,
		UploadedAt:     time.Now(),
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		// compensating action: the stored file must not outlive a
		// failed transaction
		if delErr := s.store.Delete(fileRef); delErr != nil {
			log.Printf("⚠️ Orphaned upload file %s: %v", fileRef, delErr)
		}
		return nil, err
	}

	s.record(ctx, doc.ID, uploader.ID, domain.ActionDocumentUploaded,
		fmt.Sprintf(`{"virtual_path":%q}`, doc.VirtualPath()))
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionDocumentUploaded)).Inc()

	log.Printf("✅ Document uploaded: #%d %s (agent %s)", doc.ID, doc.VirtualPath(), uploader.Username)
	return s.docRepo.GetByID(ctx, doc.ID)
}

// Get returns one document if the caller may see it
func (s *DocumentService) Get(ctx context.Context, id uint, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	if !ScopeFor(caller).CanViewDocument(doc.Bureau, doc.UploadedBy) {
		// invisible documents read as absent, not forbidden
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// List lists documents visible to the caller
func (s *DocumentService) List(ctx context.Context, callerID uint, filters repositories.ListFilters, offset, limit int) ([]*models.Document, int64, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, 0, err
	}
	return s.docRepo.List(ctx, ScopeFor(caller), filters, offset, limit)
}

// Tree returns per-(bureau, type, year) counts visible to the caller
func (s *DocumentService) Tree(ctx context.Context, callerID uint) ([]repositories.GroupCount, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.docRepo.TreeCounts(ctx, ScopeFor(caller))
}

// Bureaus returns the bureaus visible to the caller
func (s *DocumentService) Bureaus(ctx context.Context, callerID uint) ([]string, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.docRepo.Bureaus(ctx, ScopeFor(caller))
}

// History returns the history trail of a visible document
func (s *DocumentService) History(ctx context.Context, id uint, callerID uint) ([]*models.DocumentHistory, error) {
	if _, err := s.Get(ctx, id, callerID); err != nil {
		return nil, err
	}
	return s.historyRepo.GetDocumentHistory(ctx, id)
}

// StartReview moves pending → reviewing and claims the review for the
// caller. Calling it on a document that is already under review fails;
// re-entry is deliberately not idempotent.
func (s *DocumentService) StartReview(ctx context.Context, id uint, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.visibleForReview(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(domain.Role(caller.Role), domain.StatusPending, domain.StatusReviewing) {
		return nil, domain.ErrForbidden
	}

	now := time.Now()
	ok, err := s.docRepo.UpdateStatusGuarded(ctx, doc.ID, domain.StatusPending, map[string]interface{}{
		"status":      string(domain.StatusReviewing),
		"reviewed_by": caller.ID,
		"reviewed_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.TransitionFailures.WithLabelValues(string(domain.ActionReviewStarted)).Inc()
		return nil, domain.ErrInvalidState
	}

	s.record(ctx, doc.ID, caller.ID, domain.ActionReviewStarted, "")
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionReviewStarted)).Inc()

	return s.docRepo.GetByID(ctx, doc.ID)
}

// Approve moves reviewing → stored. Any supervisor or admin may
// approve, not only the reviewer who claimed it.
func (s *DocumentService) Approve(ctx context.Context, id uint, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.visibleForReview(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(domain.Role(caller.Role), domain.StatusReviewing, domain.StatusStored) {
		return nil, domain.ErrForbidden
	}

	now := time.Now()
	ok, err := s.docRepo.UpdateStatusGuarded(ctx, doc.ID, domain.StatusReviewing, map[string]interface{}{
		"status":    string(domain.StatusStored),
		"stored_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.TransitionFailures.WithLabelValues(string(domain.ActionDocumentApproved)).Inc()
		return nil, domain.ErrInvalidState
	}

	s.record(ctx, doc.ID, caller.ID, domain.ActionDocumentApproved, "")
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionDocumentApproved)).Inc()
	s.notify(ctx, doc.UploadedBy, "Document approved",
		fmt.Sprintf("Document %s has been approved.", doc.VirtualPath()), doc.ID)

	log.Printf("✅ Document approved: #%d by %s", doc.ID, caller.Username)
	return s.docRepo.GetByID(ctx, doc.ID)
}

// RejectInput carries the mandatory rejection reason
type RejectInput struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// Reject moves reviewing → rejected_for_update with a persisted reason
func (s *DocumentService) Reject(ctx context.Context, id uint, input *RejectInput, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if input.ErrorType == "" || input.Message == "" {
		return nil, ErrMissingRejection
	}

	doc, err := s.visibleForReview(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(domain.Role(caller.Role), domain.StatusReviewing, domain.StatusRejected) {
		return nil, domain.ErrForbidden
	}

	ok, err := s.docRepo.UpdateStatusGuarded(ctx, doc.ID, domain.StatusReviewing, map[string]interface{}{
		"status":         string(domain.StatusRejected),
		"rejection_type": input.ErrorType,
		"rejection_msg":  input.Message,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.TransitionFailures.WithLabelValues(string(domain.ActionDocumentRejected)).Inc()
		return nil, domain.ErrInvalidState
	}

	s.record(ctx, doc.ID, caller.ID, domain.ActionDocumentRejected,
		fmt.Sprintf(`{"error_type":%q,"message":%q}`, input.ErrorType, input.Message))
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionDocumentRejected)).Inc()
	s.notify(ctx, doc.UploadedBy, "Document rejected",
		fmt.Sprintf("Document %s was rejected: %s", doc.VirtualPath(), input.Message), doc.ID)

	return s.docRepo.GetByID(ctx, doc.ID)
}

// Resubmit replaces the file of a rejected document and moves it back
// to pending. Only the uploading agent may resubmit.
func (s *DocumentService) Resubmit(ctx context.Context, id uint, data []byte, contentType string, callerID uint) (*models.Document, error) {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if doc.UploadedBy != caller.ID {
		return nil, ErrNotDocumentOwner
	}
	if !domain.CanTransition(domain.Role(caller.Role), domain.StatusRejected, domain.StatusPending) {
		return nil, domain.ErrForbidden
	}

	if len(data) == 0 {
		return nil, ErrMissingFile
	}
	if !storage.Accepted(contentType) {
		return nil, domain.ErrUnsupportedMedia
	}
	if int64(len(data)) > s.maxUpload {
		return nil, domain.ErrPayloadTooLarge
	}

	fileRef, err := s.store.Store(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	ok, err := s.docRepo.UpdateStatusGuarded(ctx, doc.ID, domain.StatusRejected, map[string]interface{}{
		"status":         string(domain.StatusPending),
		"file_ref":       fileRef,
		"content_type":   contentType,
		"file_size":      int64(len(data)),
		"rejection_type": "",
		"rejection_msg":  "",
		"reviewed_by":    nil,
		"reviewed_at":    nil,
		"uploaded_at":    time.Now(),
	})
	if err != nil || !ok {
		if delErr := s.store.Delete(fileRef); delErr != nil {
			log.Printf("⚠️ Orphaned upload file %s: %v", fileRef, delErr)
		}
		if err != nil {
			return nil, err
		}
		metrics.TransitionFailures.WithLabelValues(string(domain.ActionDocumentResubmitted)).Inc()
		return nil, domain.ErrInvalidState
	}

	// old scan is superseded; best effort cleanup
	if delErr := s.store.Delete(doc.FileRef); delErr != nil {
		log.Printf("⚠️ Failed to delete superseded file %s: %v", doc.FileRef, delErr)
	}

	s.record(ctx, doc.ID, caller.ID, domain.ActionDocumentResubmitted, "")
	metrics.DocumentTransitions.WithLabelValues(string(domain.ActionDocumentResubmitted)).Inc()

	return s.docRepo.GetByID(ctx, doc.ID)
}

// Delete removes a document with its fields and history (admin only)
func (s *DocumentService) Delete(ctx context.Context, id uint, callerID uint) error {
	caller, err := s.requireActiveUser(ctx, callerID)
	if err != nil {
		return err
	}
	if caller.Role != string(domain.RoleAdmin) {
		return domain.ErrForbidden
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}

	if delErr := s.store.Delete(doc.FileRef); delErr != nil {
		log.Printf("⚠️ Failed to delete file %s of removed document #%d: %v", doc.FileRef, id, delErr)
	}

	s.logActivity(ctx, caller.ID, domain.ActionDocumentDeleted, doc.ID, doc.VirtualPath())
	log.Printf("🗑️ Document deleted: #%d by %s", id, caller.Username)
	return nil
}

// Retrieve returns the stored file of a visible document
func (s *DocumentService) Retrieve(ctx context.Context, id uint, callerID uint) ([]byte, string, error) {
	doc, err := s.Get(ctx, id, callerID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.store.Retrieve(doc.FileRef)
	if err != nil {
		return nil, "", err
	}
	return data, doc.ContentType, nil
}

// visibleForReview loads a document and checks reviewer visibility
func (s *DocumentService) visibleForReview(ctx context.Context, id uint, caller *models.User) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	scope := ScopeFor(caller)
	if scope.Role == domain.RoleSupervisor && !scope.CanViewBureau(doc.Bureau) {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// record appends one history entry plus an activity entry for the
// transition. Logging failures never abort the transition.
func (s *DocumentService) record(ctx context.Context, documentID, userID uint, action domain.Action, details string) {
	entry := &models.DocumentHistory{
		DocumentID: documentID,
		Action:     string(action),
		UserID:     userID,
		Details:    details,
	}
	if err := s.historyRepo.AppendDocumentHistory(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to append history (%s, doc %d): %v", action, documentID, err)
	}
	s.logActivity(ctx, userID, action, documentID, details)
}

func (s *DocumentService) logActivity(ctx context.Context, userID uint, action domain.Action, documentID uint, details string) {
	entry := &models.ActivityLog{
		UserID:     userID,
		Action:     string(action),
		EntityType: "document",
		EntityID:   documentID,
		Details:    details,
	}
	if err := s.historyRepo.AppendActivity(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to append activity log (%s, doc %d): %v", action, documentID, err)
	}
}

// notify writes a notification row, log-and-continue
func (s *DocumentService) notify(ctx context.Context, userID uint, title, body string, documentID uint) {
	n := &models.Notification{
		UserID:     userID,
		Title:      title,
		Body:       body,
		DocumentID: &documentID,
	}
	if err := s.historyRepo.CreateNotification(ctx, n); err != nil {
		log.Printf("⚠️ Failed to create notification for user %d: %v", userID, err)
	}
}
