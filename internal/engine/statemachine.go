package engine

import (
	"github.com/meridianerp/policyflow/internal/models"
)

// StateMachine defines the document workflow shared by all transactional
// documents. It is pure: both Transition and AllowedActions only read the
// transition table.
type StateMachine struct{}

// NewStateMachine creates a new workflow state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// actionOrder fixes a stable iteration order for AllowedActions.
var actionOrder = []models.DocumentAction{
	models.ActionSubmit,
	models.ActionApprove,
	models.ActionReject,
	models.ActionPost,
}

// transitions maps (action, from-state) to the resulting state.
var transitions = map[models.DocumentAction]map[models.DocumentState]models.DocumentState{
	models.ActionSubmit: {
		models.StateDraft: models.StatePending,
	},
	models.ActionApprove: {
		models.StatePending: models.StateApproved,
	},
	models.ActionReject: {
		models.StatePending: models.StateRejected,
	},
	models.ActionPost: {
		models.StateApproved: models.StatePosted,
	},
}

// Transition returns the state reached by applying action from state, or an
// InvalidTransitionError naming the offending action and current state.
func (m *StateMachine) Transition(state models.DocumentState, action models.DocumentAction) (models.DocumentState, error) {
	if next, ok := transitions[action][state]; ok {
		return next, nil
	}
	return "", &InvalidTransitionError{Action: action, State: state}
}

// AllowedActions returns the set of actions valid from state, in stable
// order. Callers use it to decide which affordances to offer.
func (m *StateMachine) AllowedActions(state models.DocumentState) []models.DocumentAction {
	var allowed []models.DocumentAction
	for _, action := range actionOrder {
		if _, ok := transitions[action][state]; ok {
			allowed = append(allowed, action)
		}
	}
	return allowed
}
