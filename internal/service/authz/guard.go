package authz

import (
	apperrors "github.com/carelink/visit-api/pkg/errors"

	"github.com/carelink/visit-api/internal/model"
)

// Guard decides ALLOW/DENY for every action against clinical data. It is
// stateless and has no side effects; callers resolve any entities the
// decision needs (the reviewing user, the target visit) before asking.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// CanCreateVisit allows only the assigned nurse, within their own tenant,
// to open documentation for a shift.
func (g *Guard) CanCreateVisit(identity model.CallerIdentity, shift *model.Shift) error {
	if identity.IsZero() {
		return apperrors.Unauthorized("missing caller identity")
	}
	if identity.TenantID != shift.TenantID {
		return apperrors.Unauthorized("shift belongs to a different tenant")
	}
	if identity.UserID != shift.NurseID {
		return apperrors.Unauthorized("caller is not the nurse assigned to this shift")
	}
	return nil
}

// CanEditVisit covers submission and documentation updates by the
// assigned nurse.
func (g *Guard) CanEditVisit(identity model.CallerIdentity, visit *model.Visit) error {
	if identity.IsZero() {
		return apperrors.Unauthorized("missing caller identity")
	}
	if identity.TenantID != visit.TenantID {
		return apperrors.Unauthorized("visit belongs to a different tenant")
	}
	if identity.UserID != visit.NurseID {
		return apperrors.Unauthorized("caller is not the nurse assigned to this visit")
	}
	return nil
}

// CanReviewVisit requires the caller to resolve, by lookup, to an ADMIN
// in the visit's tenant. The token claim alone is not trusted.
func (g *Guard) CanReviewVisit(identity model.CallerIdentity, reviewer *model.User, visit *model.Visit) error {
	if identity.IsZero() {
		return apperrors.Unauthorized("missing caller identity")
	}
	if reviewer == nil {
		return apperrors.Unauthorized("caller identity does not resolve to a known user")
	}
	if reviewer.Role != model.RoleAdmin {
		return apperrors.Unauthorized("only administrators may review visits")
	}
	if identity.TenantID != visit.TenantID || reviewer.TenantID != visit.TenantID {
		return apperrors.Unauthorized("visit belongs to a different tenant")
	}
	return nil
}

// CanReadVisit allows the assigned nurse or a tenant admin to read the
// full clinical record.
func (g *Guard) CanReadVisit(identity model.CallerIdentity, reader *model.User, visit *model.Visit) error {
	if identity.IsZero() {
		return apperrors.Unauthorized("missing caller identity")
	}
	if identity.TenantID != visit.TenantID {
		return apperrors.Unauthorized("visit belongs to a different tenant")
	}
	if identity.UserID == visit.NurseID {
		return nil
	}
	if reader != nil && reader.Role == model.RoleAdmin && reader.TenantID == visit.TenantID {
		return nil
	}
	return apperrors.Unauthorized("caller may not read this visit")
}

// CanViewFamilySummaries allows only registered family members of the
// patient, in the patient's tenant.
func (g *Guard) CanViewFamilySummaries(identity model.CallerIdentity, patient *model.Patient) error {
	if identity.IsZero() {
		return apperrors.Unauthorized("missing caller identity")
	}
	if identity.TenantID != patient.TenantID {
		return apperrors.Unauthorized("patient belongs to a different tenant")
	}
	if !patient.HasFamilyMember(identity.UserID) {
		return apperrors.Unauthorized("caller is not a registered family member")
	}
	return nil
}

// CanListAuditLogs gates the compliance listing to tenant administrators.
func (g *Guard) CanListAuditLogs(identity model.CallerIdentity, caller *model.User) error {
	if identity.IsZero() {
		return apperrors.Unauthorized("missing caller identity")
	}
	if caller == nil || caller.Role != model.RoleAdmin {
		return apperrors.Unauthorized("only administrators may read the audit trail")
	}
	if caller.TenantID != identity.TenantID {
		return apperrors.Unauthorized("caller tenant mismatch")
	}
	return nil
}
