package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy()
	require.NoError(t, err)
	return p
}

func TestPolicy_Table(t *testing.T) {
	p := newTestPolicy(t)
	owner := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name    string
		role    Role
		actorID uuid.UUID
		action  Action
		allowed bool
	}{
		{"user views own", RoleUser, owner, ActionViewOwn, true},
		{"user cannot view foreign as own", RoleUser, stranger, ActionViewOwn, false},
		{"user cannot view all", RoleUser, owner, ActionViewAll, false},
		{"dispatcher views all", RoleDispatcher, stranger, ActionViewAll, true},
		{"rescuer views all", RoleRescuer, stranger, ActionViewAll, true},
		{"admin views all", RoleAdmin, stranger, ActionViewAll, true},
		{"user creates", RoleUser, stranger, ActionCreate, true},
		{"rescuer creates", RoleRescuer, stranger, ActionCreate, true},
		{"user cannot update", RoleUser, owner, ActionUpdate, false},
		{"rescuer cannot update", RoleRescuer, stranger, ActionUpdate, false},
		{"dispatcher updates", RoleDispatcher, stranger, ActionUpdate, true},
		{"rescuer changes status", RoleRescuer, stranger, ActionChangeStatus, true},
		{"user cannot change status", RoleUser, owner, ActionChangeStatus, false},
		{"rescuer cannot assign", RoleRescuer, stranger, ActionAssign, false},
		{"dispatcher assigns", RoleDispatcher, stranger, ActionAssign, true},
		{"admin deletes", RoleAdmin, stranger, ActionDelete, true},
		{"dispatcher cannot delete", RoleDispatcher, stranger, ActionDelete, false},
		{"owner cannot delete", RoleUser, owner, ActionDelete, false},
		{"rescuer views fleet", RoleRescuer, stranger, ActionViewFleet, true},
		{"rescuer cannot manage fleet", RoleRescuer, stranger, ActionManageFleet, false},
		{"user cannot view fleet", RoleUser, owner, ActionViewFleet, false},
		{"unknown role denied", Role("guest"), owner, ActionCreate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := Actor{ID: tt.actorID, Role: tt.role}
			assert.Equal(t, tt.allowed, p.Can(actor, tt.action, owner))
		})
	}
}

func TestPolicy_CanView(t *testing.T) {
	p := newTestPolicy(t)
	owner := uuid.New()

	assert.True(t, p.CanView(Actor{ID: owner, Role: RoleUser}, owner))
	assert.False(t, p.CanView(Actor{ID: uuid.New(), Role: RoleUser}, owner))
	assert.True(t, p.CanView(Actor{ID: uuid.New(), Role: RoleRescuer}, owner))
}

func TestPolicy_Authorize(t *testing.T) {
	p := newTestPolicy(t)

	err := p.Authorize(Actor{ID: uuid.New(), Role: RoleDispatcher}, ActionDelete, uuid.Nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	assert.NoError(t, p.Authorize(Actor{ID: uuid.New(), Role: RoleAdmin}, ActionDelete, uuid.Nil))
}

func TestPolicy_NilActorDenied(t *testing.T) {
	p := newTestPolicy(t)
	assert.False(t, p.Can(Actor{Role: RoleAdmin}, ActionViewAll, uuid.New()))
}
