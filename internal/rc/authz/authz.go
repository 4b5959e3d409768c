// Package authz decides whether a principal may act on an RC entry.
//
// The rule is the same for every action: admins may act on any entry, everyone
// else only on entries they created.
package authz

import (
	"rctrack/internal/rc/models"
	"rctrack/pkg/domain"
)

// Action names an operation on a single entry.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAttach Action = "attach"
)

// Guard is the authorization decision point for single-entry operations.
type Guard interface {
	CanAccess(p domain.Principal, entry *models.Entry, action Action) bool
}

// OwnerOrAdmin grants access to admins and to the entry's creator.
type OwnerOrAdmin struct{}

// New returns the default guard.
func New() OwnerOrAdmin {
	return OwnerOrAdmin{}
}

func (OwnerOrAdmin) CanAccess(p domain.Principal, entry *models.Entry, _ Action) bool {
	if entry == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return !p.ID.IsNil() && entry.CreatedBy == p.ID
}

// ListScope returns the filter a principal's listing is restricted to.
func ListScope(p domain.Principal) models.Filter {
	if p.IsAdmin() {
		return models.Filter{}
	}
	return models.OwnedBy(p.ID)
}
