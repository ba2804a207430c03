package domain

// Role represents user role in the system
type Role string

const (
	RoleAgent      Role = "agent"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// ParseRole converts a stored role string into a typed Role
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAgent, RoleSupervisor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// IsReviewer reports whether the role may review documents
func (r Role) IsReviewer() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// DocumentStatus represents a document lifecycle state
type DocumentStatus string

const (
	StatusPending         DocumentStatus = "pending"
	StatusReviewing       DocumentStatus = "reviewing"
	StatusRejected        DocumentStatus = "rejected_for_update"
	StatusStored          DocumentStatus = "stored"
	StatusProcessing      DocumentStatus = "processing"
	StatusFieldsExtracted DocumentStatus = "fields_extracted"
)

// transitions is the document state machine edge set
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:    {StatusReviewing},
	StatusReviewing:  {StatusStored, StatusRejected},
	StatusRejected:   {StatusPending}, // resubmission by the owning agent
	StatusStored:     {StatusProcessing, StatusFieldsExtracted},
	StatusProcessing: {StatusFieldsExtracted},
}

// ValidTransition reports whether from → to is a legal lifecycle edge
func ValidTransition(from, to DocumentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether the role is allowed to drive from → to.
// The edge itself must also be legal (ValidTransition).
func CanTransition(role Role, from, to DocumentStatus) bool {
	if !ValidTransition(from, to) {
		return false
	}
	switch {
	case from == StatusPending && to == StatusReviewing:
		return role.IsReviewer()
	case from == StatusReviewing:
		return role.IsReviewer()
	case from == StatusRejected && to == StatusPending:
		return role == RoleAgent
	default:
		// stored/processing edges are driven by field extraction and
		// open to any role that can see the document
		return true
	}
}

// FieldsEditable reports whether document fields may be written in this state
func (s DocumentStatus) FieldsEditable() bool {
	switch s {
	case StatusStored, StatusProcessing, StatusFieldsExtracted:
		return true
	}
	return false
}

// Counted reports whether the status counts as an accepted act for
// inventory reconciliation
func (s DocumentStatus) Counted() bool {
	return s.FieldsEditable()
}

// RegistreType represents a civil act category
type RegistreType string

const (
	RegistreNaissances     RegistreType = "naissances"
	RegistreDeces          RegistreType = "deces"
	RegistreJugements      RegistreType = "jugements"
	RegistreTranscriptions RegistreType = "transcriptions"
	RegistreEtrangers      RegistreType = "etrangers"
)

// RegistreTypes lists all accepted act categories
var RegistreTypes = []RegistreType{
	RegistreNaissances,
	RegistreDeces,
	RegistreJugements,
	RegistreTranscriptions,
	RegistreEtrangers,
}

// ValidRegistreType reports whether s is a known act category
func ValidRegistreType(s string) bool {
	for _, t := range RegistreTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Action is the typed history/activity vocabulary
type Action string

const (
	ActionDocumentUploaded    Action = "document_uploaded"
	ActionReviewStarted       Action = "review_started"
	ActionDocumentApproved    Action = "document_approved"
	ActionDocumentRejected    Action = "document_rejected"
	ActionDocumentResubmitted Action = "document_resubmitted"
	ActionDocumentDeleted     Action = "document_deleted"
	ActionExtractionRun       Action = "extraction_run"
	ActionFieldsSaved         Action = "fields_saved"
	ActionFieldsSubmitted     Action = "fields_submitted"
	ActionFieldsDeleted       Action = "fields_deleted"
	ActionUserLogin           Action = "user_login"
	ActionUserLogout          Action = "user_logout"
	ActionBatchUploaded       Action = "verification_batch_uploaded"
	ActionBatchDeleted        Action = "verification_batch_deleted"
)
