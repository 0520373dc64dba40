package store

import "github.com/delaneyj/strux/changes"

const (
	// StateChangeType is the type of the action a component's state-set
	// produces.
	StateChangeType = "_STATE_CHANGE"
	// ResetType is dispatched when the initial application state is set.
	ResetType = "_RESET"
)

type Action interface {
	ActionType() string
}

// StateChange carries one instance's state transition. The store folds it
// into its state tree; application reducers never see it.
type StateChange struct {
	Class changes.ClassID
	Old   changes.Values
	New   changes.Values
}

func (StateChange) ActionType() string { return StateChangeType }

// Message is any application action.
type Message struct {
	Type    string
	Payload changes.Values
}

func (m Message) ActionType() string { return m.Type }

type reset struct{}

func (reset) ActionType() string { return ResetType }

// deferred holds a callback queued behind pending actions. It is never
// reduced and listeners never see it.
type deferred struct {
	fn func()
}

func (deferred) ActionType() string { return "_DEFERRED" }

func asStateChange(action Action) (StateChange, bool) {
	switch a := action.(type) {
	case StateChange:
		return a, true
	case *StateChange:
		if a != nil {
			return *a, true
		}
	}
	return StateChange{}, false
}
