package service

import (
	"backend/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated identity performing a state-machine transition.
// It is passed explicitly into every transition; services never reach into
// ambient auth state.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// CanApproveLevel reports whether the actor holds the approval authority for
// the given level. Admin passes every gate.
func (a Actor) CanApproveLevel(level int) bool {
	if a.Role == model.RoleAdmin {
		return true
	}
	return a.Role == model.ApproverRoleForLevel(level)
}

// ApprovalLevel returns the level the actor's approver role gates, or 0 when
// the role carries no per-level approval authority.
func (a Actor) ApprovalLevel() int {
	for level := 1; level <= model.MaxApprovalLevels; level++ {
		if a.Role == model.ApproverRoleForLevel(level) {
			return level
		}
	}
	return 0
}

// CanFulfill reports whether the actor may complete approved requests
func (a Actor) CanFulfill() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleOperator
}
