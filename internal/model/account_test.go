package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantStatusJSON(t *testing.T) {
	account := Account{
		Volunteer:    GrantApproved,
		Practitioner: GrantPending,
		Admin:        GrantUnset,
	}

	data, err := json.Marshal(account)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"volunteer":1`)
	assert.Contains(t, string(data), `"practitioner":0.5`)
	assert.Contains(t, string(data), `"admin":0`)
	assert.NotContains(t, string(data), "password", "the hash must never serialize")
}

func TestGrantFor(t *testing.T) {
	account := &Account{Practitioner: GrantApproved}
	assert.Equal(t, GrantApproved, account.GrantFor(RolePractitioner))
	assert.Equal(t, GrantUnset, account.GrantFor(RoleVolunteer))
	assert.Equal(t, GrantUnset, account.GrantFor(Role("superuser")))
}

func TestPendingRole(t *testing.T) {
	account := &Account{Practitioner: GrantPending, Admin: GrantPending}
	role, ok := account.PendingRole()
	assert.True(t, ok)
	assert.Equal(t, RolePractitioner, role, "roles are checked in a fixed order")

	none := &Account{Volunteer: GrantApproved}
	_, ok = none.PendingRole()
	assert.False(t, ok)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleVolunteer.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("superuser").Valid())
}
