package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"rctrack/internal/rc/models"
	"rctrack/pkg/domain"
)

func TestOwnerOrAdmin(t *testing.T) {
	owner := domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleStaff}
	other := domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleStaff}
	admin := domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleAdmin}
	entry := &models.Entry{ID: domain.NewEntryID(), CreatedBy: owner.ID}

	guard := New()
	for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete, ActionAttach} {
		t.Run(string(action), func(t *testing.T) {
			assert.True(t, guard.CanAccess(owner, entry, action), "owner")
			assert.True(t, guard.CanAccess(admin, entry, action), "admin")
			assert.False(t, guard.CanAccess(other, entry, action), "other staff")
		})
	}

	t.Run("nil principal id never owns", func(t *testing.T) {
		orphan := &models.Entry{}
		assert.False(t, guard.CanAccess(domain.Principal{Role: domain.RoleStaff}, orphan, ActionRead))
	})

	t.Run("nil entry is denied", func(t *testing.T) {
		assert.False(t, guard.CanAccess(admin, nil, ActionRead))
	})
}

func TestListScope(t *testing.T) {
	staff := domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleStaff}
	admin := domain.Principal{ID: domain.UserID(uuid.NewString()), Role: domain.RoleAdmin}

	assert.Nil(t, ListScope(admin).CreatedBy)
	scope := ListScope(staff)
	if assert.NotNil(t, scope.CreatedBy) {
		assert.Equal(t, staff.ID, *scope.CreatedBy)
	}
}
