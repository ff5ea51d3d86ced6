package model

import (
	"time"

	"github.com/lib/pq"
)

// Patient is read-only for the visit engine. FamilyMembers holds the
// external user ids granted access to approved visit summaries.
type Patient struct {
	ID            string         `json:"id" db:"id"`
	TenantID      string         `json:"tenant_id" db:"tenant_id"`
	Name          string         `json:"name" db:"name"`
	FamilyMembers pq.StringArray `json:"family_members" db:"family_members"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// HasFamilyMember reports whether userID is registered for summary access.
func (p *Patient) HasFamilyMember(userID string) bool {
	for _, id := range p.FamilyMembers {
		if id == userID {
			return true
		}
	}
	return false
}
