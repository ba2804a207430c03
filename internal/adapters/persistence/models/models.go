package models

import (
	"fmt"
	"time"

	"registryhub/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Identity Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;not null;default:'agent'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	FullName  string         `gorm:"size:100" json:"full_name,omitempty"`
	Email     string         `gorm:"size:100" json:"email,omitempty"`
	Phone     string         `gorm:"size:30" json:"phone,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Bureaus []SupervisorBureau `gorm:"foreignKey:UserID" json:"bureaus,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// BureauNames returns the supervisor's assigned bureau set
func (u *User) BureauNames() []string {
	names := make([]string, 0, len(u.Bureaus))
	for _, b := range u.Bureaus {
		names = append(names, b.Bureau)
	}
	return names
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	FullName  string    `json:"full_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Bureaus   []string  `json:"bureaus,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
	if len(u.Bureaus) > 0 {
		resp.Bureaus = u.BureauNames()
	}
	return resp
}

// SupervisorBureau represents supervisor_bureaus table (many-to-many)
type SupervisorBureau struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_supervisor_bureau" json:"user_id"`
	Bureau    string    `gorm:"size:100;not null;uniqueIndex:idx_supervisor_bureau" json:"bureau"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SupervisorBureau) TableName() string {
	return "supervisor_bureaus"
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// LoginSession represents login_sessions table. Paired login/logout
// timestamps feed the performance work-hours derivation.
type LoginSession struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	UserID   uint       `gorm:"not null;index" json:"user_id"`
	LoginAt  time.Time  `gorm:"not null" json:"login_at"`
	LogoutAt *time.Time `json:"logout_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (LoginSession) TableName() string {
	return "login_sessions"
}

// ============================================================
// Document Tables
// ============================================================

// Document represents documents table
type Document struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	FileRef        string         `gorm:"size:255;not null" json:"file_ref"`
	ContentType    string         `gorm:"size:100" json:"content_type"`
	FileSize       int64          `json:"file_size"`
	Bureau         string         `gorm:"size:100;not null;index" json:"bureau"`
	RegistreType   string         `gorm:"size:30;not null;index" json:"registre_type"`
	Year           int            `gorm:"not null;index" json:"year"`
	RegistreNumber string         `gorm:"size:30;not null" json:"registre_number"`
	ActeNumber     string         `gorm:"size:30;not null" json:"acte_number"`
	Status         string         `gorm:"size:30;not null;default:'pending';index" json:"status"`
	UploadedBy     uint           `gorm:"not null;index" json:"uploaded_by"`
	ReviewedBy     *uint          `json:"reviewed_by"`
	RejectionType  string         `gorm:"size:50" json:"rejection_error_type,omitempty"`
	RejectionMsg   string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	UploadedAt     time.Time      `gorm:"not null" json:"uploaded_at"`
	ReviewedAt     *time.Time     `json:"reviewed_at"`
	StoredAt       *time.Time     `json:"stored_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Uploader *User           `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
	Reviewer *User           `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	Fields   []DocumentField `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"fields,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

// VirtualPath derives the hierarchical display path
// bureau/type/year/registre/acte
func (d *Document) VirtualPath() string {
	return fmt.Sprintf("%s/%s/%d/%s/%s",
		d.Bureau, d.RegistreType, d.Year, d.RegistreNumber, d.ActeNumber)
}

// DocumentResponse DTO
type DocumentResponse struct {
	ID             uint       `json:"id"`
	Bureau         string     `json:"bureau"`
	RegistreType   string     `json:"registre_type"`
	Year           int        `json:"year"`
	RegistreNumber string     `json:"registre_number"`
	ActeNumber     string     `json:"acte_number"`
	Status         string     `json:"status"`
	VirtualPath    string     `json:"virtual_path"`
	UploadedBy     uint       `json:"uploaded_by"`
	UploaderName   string     `json:"uploader_name,omitempty"`
	ReviewedBy     *uint      `json:"reviewed_by,omitempty"`
	ReviewerName   string     `json:"reviewer_name,omitempty"`
	RejectionType  string     `json:"rejection_error_type,omitempty"`
	RejectionMsg   string     `json:"rejection_reason,omitempty"`
	UploadedAt     time.Time  `json:"uploaded_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	StoredAt       *time.Time `json:"stored_at,omitempty"`
	FieldCount     int        `json:"field_count,omitempty"`
}

func (d *Document) ToResponse() *DocumentResponse {
	resp := &DocumentResponse{
		ID:             d.ID,
		Bureau:         d.Bureau,
		RegistreType:   d.RegistreType,
		Year:           d.Year,
		RegistreNumber: d.RegistreNumber,
		ActeNumber:     d.ActeNumber,
		Status:         d.Status,
		VirtualPath:    d.VirtualPath(),
		UploadedBy:     d.UploadedBy,
		ReviewedBy:     d.ReviewedBy,
		RejectionType:  d.RejectionType,
		RejectionMsg:   d.RejectionMsg,
		UploadedAt:     d.UploadedAt,
		ReviewedAt:     d.ReviewedAt,
		StoredAt:       d.StoredAt,
		FieldCount:     len(d.Fields),
	}
	if d.Uploader != nil {
		resp.UploaderName = d.Uploader.Username
	}
	if d.Reviewer != nil {
		resp.ReviewerName = d.Reviewer.Username
	}
	return resp
}

// DocumentField represents document_fields table, keyed by
// (document_id, field_name), last-writer-wins
type DocumentField struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DocumentID   uint      `gorm:"not null;index;uniqueIndex:idx_document_field" json:"document_id"`
	FieldName    string    `gorm:"size:100;not null;uniqueIndex:idx_document_field" json:"field_name"`
	FieldValue   string    `gorm:"type:text" json:"field_value"`
	FieldType    string    `gorm:"size:30;default:'text'" json:"field_type"`
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
	UpdatedBy    uint      `json:"updated_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (DocumentField) TableName() string {
	return "document_fields"
}

// DocumentHistory represents document_history table. Append-only.
type DocumentHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Action     string    `gorm:"size:50;not null" json:"action"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Details    string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Document *Document `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DocumentHistory) TableName() string {
	return "document_history"
}

// ActivityLog represents activity_logs table. Append-only; only bulk
// admin purge ever removes rows.
type ActivityLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Action     string    `gorm:"size:50;not null;index" json:"action"`
	EntityType string    `gorm:"size:30" json:"entity_type,omitempty"`
	EntityID   uint      `json:"entity_id,omitempty"`
	Details    string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// ============================================================
// Verification Tables
// ============================================================

// ExcelRecord represents excel_records table. Rows sharing a BatchID
// form one immutable verification batch.
type ExcelRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	BatchID          string    `gorm:"size:36;not null;index" json:"batch_id"`
	Bureau           string    `gorm:"size:100;not null" json:"bureau"`
	RegistreType     string    `gorm:"size:30;not null" json:"registre_type"`
	HegiraYear       string    `gorm:"size:20" json:"hegira_year"`
	GregorianYear    int       `gorm:"not null" json:"gregorian_year"`
	ExpectedCount    int       `gorm:"not null" json:"expected_count"`
	AnomalyCount     int       `gorm:"default:0" json:"anomaly_count"`
	AnomalyActes     string    `gorm:"type:text" json:"anomaly_actes,omitempty"`
	UploadedBy       uint      `gorm:"not null" json:"uploaded_by"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`

	Uploader *User `gorm:"foreignKey:UploadedBy" json:"-"`
}

func (ExcelRecord) TableName() string {
	return "excel_records"
}

// Notification represents notifications table
type Notification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Body       string    `gorm:"type:text" json:"body,omitempty"`
	DocumentID *uint     `json:"document_id,omitempty"`
	IsRead     bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// DefaultStatus guards against models created without a status
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = string(domain.StatusPending)
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	return nil
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&SupervisorBureau{},
		&RefreshToken{},
		&LoginSession{},
		&Document{},
		&DocumentField{},
		&DocumentHistory{},
		&ActivityLog{},
		&ExcelRecord{},
		&Notification{},
	)
}
