package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectTransitions(t *testing.T) {
	sm := NewProjectStateMachine()

	assert.True(t, sm.CanTransition("PENDING", "VERIFIED"))
	assert.True(t, sm.CanTransition("PENDING", "SUSPENDED"))
	assert.True(t, sm.CanTransition("VERIFIED", "SUSPENDED"))

	// No resurrection from suspension.
	assert.False(t, sm.CanTransition("SUSPENDED", "VERIFIED"))
	assert.False(t, sm.CanTransition("SUSPENDED", "PENDING"))
	assert.False(t, sm.CanTransition("VERIFIED", "VERIFIED"))
	assert.False(t, sm.CanTransition("UNKNOWN", "VERIFIED"))
}

func TestListingTransitions(t *testing.T) {
	sm := NewListingStateMachine()

	for _, terminal := range []string{"EXHAUSTED", "EXPIRED", "CANCELLED"} {
		assert.True(t, sm.CanTransition("ACTIVE", terminal))
		assert.Empty(t, sm.GetAllowedTransitions(terminal))
	}
	assert.False(t, sm.CanTransition("EXPIRED", "ACTIVE"))
}
