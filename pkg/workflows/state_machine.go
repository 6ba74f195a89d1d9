package workflows

// StateMachine enforces a status transition table
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewProjectStateMachine builds the registry status machine.  Suspension is
// terminal for verification purposes: nothing leaves SUSPENDED.
func NewProjectStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"PENDING":   {"VERIFIED", "SUSPENDED"},
			"VERIFIED":  {"SUSPENDED"},
			"SUSPENDED": {},
		},
	}
}

// NewListingStateMachine builds the listing status machine.  Every state
// other than ACTIVE is final.
func NewListingStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"ACTIVE":    {"EXHAUSTED", "EXPIRED", "CANCELLED"},
			"EXHAUSTED": {},
			"EXPIRED":   {},
			"CANCELLED": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
