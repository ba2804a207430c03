package domain

import "gorm.io/gorm"

// Scope carries everything the visibility filter needs about a caller.
// It is built once per request from the verified token claims plus the
// supervisor's bureau assignments.
type Scope struct {
	Role    Role
	UserID  uint
	Bureaus []string
}

// Unrestricted reports whether the scope sees every document
func (s Scope) Unrestricted() bool {
	return s.Role == RoleAdmin
}

// CanViewBureau reports whether the scope may see documents of a bureau
func (s Scope) CanViewBureau(bureau string) bool {
	switch s.Role {
	case RoleAdmin:
		return true
	case RoleSupervisor:
		for _, b := range s.Bureaus {
			if b == bureau {
				return true
			}
		}
		return false
	default:
		// agents are scoped by uploader, not bureau
		return true
	}
}

// CanViewDocument reports whether the scope may see a single document,
// given its bureau and uploader
func (s Scope) CanViewDocument(bureau string, uploadedBy uint) bool {
	switch s.Role {
	case RoleAdmin:
		return true
	case RoleSupervisor:
		return s.CanViewBureau(bureau)
	default:
		return uploadedBy == s.UserID
	}
}

// Apply restricts a documents query to what the scope may see. A
// supervisor with no assigned bureaus gets an always-false predicate,
// never an error. The same scope is applied to lists, tree statistics
// and reconciliation views so counts cannot leak across bureaus.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	switch s.Role {
	case RoleAdmin:
		return db
	case RoleSupervisor:
		if len(s.Bureaus) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where("documents.bureau IN ?", s.Bureaus)
	default:
		return db.Where("documents.uploaded_by = ?", s.UserID)
	}
}
