package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	legal := []struct{ from, to DocumentStatus }{
		{StatusPending, StatusReviewing},
		{StatusReviewing, StatusStored},
		{StatusReviewing, StatusRejected},
		{StatusRejected, StatusPending},
		{StatusStored, StatusProcessing},
		{StatusStored, StatusFieldsExtracted},
		{StatusProcessing, StatusFieldsExtracted},
	}
	for _, tc := range legal {
		assert.True(t, ValidTransition(tc.from, tc.to), "%s → %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to DocumentStatus }{
		{StatusPending, StatusStored},
		{StatusPending, StatusRejected},
		{StatusStored, StatusPending},
		{StatusStored, StatusReviewing},
		{StatusRejected, StatusReviewing},
		{StatusRejected, StatusStored},
		{StatusFieldsExtracted, StatusStored},
		{StatusFieldsExtracted, StatusProcessing},
		{StatusProcessing, StatusStored},
		{StatusReviewing, StatusPending},
	}
	for _, tc := range illegal {
		assert.False(t, ValidTransition(tc.from, tc.to), "%s → %s should be illegal", tc.from, tc.to)
	}
}

func TestCanTransition(t *testing.T) {
	// Review claims and verdicts require a reviewer role
	assert.True(t, CanTransition(RoleSupervisor, StatusPending, StatusReviewing))
	assert.True(t, CanTransition(RoleAdmin, StatusPending, StatusReviewing))
	assert.False(t, CanTransition(RoleAgent, StatusPending, StatusReviewing))

	assert.True(t, CanTransition(RoleSupervisor, StatusReviewing, StatusStored))
	assert.True(t, CanTransition(RoleSupervisor, StatusReviewing, StatusRejected))
	assert.False(t, CanTransition(RoleAgent, StatusReviewing, StatusStored))

	// Resubmission is the agent's edge
	assert.True(t, CanTransition(RoleAgent, StatusRejected, StatusPending))
	assert.False(t, CanTransition(RoleSupervisor, StatusRejected, StatusPending))
	assert.False(t, CanTransition(RoleAdmin, StatusRejected, StatusPending))

	// An illegal edge is never allowed, whatever the role
	assert.False(t, CanTransition(RoleAdmin, StatusPending, StatusStored))
}

func TestFieldsEditable(t *testing.T) {
	assert.True(t, StatusStored.FieldsEditable())
	assert.True(t, StatusProcessing.FieldsEditable())
	assert.True(t, StatusFieldsExtracted.FieldsEditable())

	assert.False(t, StatusPending.FieldsEditable())
	assert.False(t, StatusReviewing.FieldsEditable())
	assert.False(t, StatusRejected.FieldsEditable())
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"agent", "supervisor", "admin"} {
		role, ok := ParseRole(valid)
		assert.True(t, ok)
		assert.Equal(t, valid, string(role))
	}

	_, ok := ParseRole("manager")
	assert.False(t, ok)
	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestValidRegistreType(t *testing.T) {
	for _, rt := range RegistreTypes {
		assert.True(t, ValidRegistreType(string(rt)))
	}
	assert.False(t, ValidRegistreType("mariages"))
	assert.False(t, ValidRegistreType(""))
}

func TestScopeCanViewDocument(t *testing.T) {
	admin := Scope{Role: RoleAdmin, UserID: 1}
	assert.True(t, admin.CanViewDocument("rabat", 99))
	assert.True(t, admin.Unrestricted())

	supervisor := Scope{Role: RoleSupervisor, UserID: 2, Bureaus: []string{"rabat", "sale"}}
	assert.True(t, supervisor.CanViewDocument("rabat", 99))
	assert.True(t, supervisor.CanViewDocument("sale", 99))
	assert.False(t, supervisor.CanViewDocument("fes", 99))
	assert.False(t, supervisor.Unrestricted())

	// Supervisor with no assignment sees nothing
	empty := Scope{Role: RoleSupervisor, UserID: 3}
	assert.False(t, empty.CanViewDocument("rabat", 99))

	// Agents see their own uploads regardless of bureau
	agent := Scope{Role: RoleAgent, UserID: 7}
	assert.True(t, agent.CanViewDocument("fes", 7))
	assert.False(t, agent.CanViewDocument("fes", 8))
}
