package store

import (
	"fmt"

	"github.com/delaneyj/strux/changes"
)

// Reactor is something mounted against a store on behalf of a class.
type Reactor interface {
	ClassID() changes.ClassID
}

// StateTaker is implemented by reactors that want to hear about interesting
// changes on other classes.
type StateTaker interface {
	TakeState(state State, trigger changes.ClassID, interest changes.Values)
}

// Attach subscribes r to s. After every state-change action it evaluates the
// most recent change against the registry rules for r's class and, when any
// key is interesting, hands the current state, the triggering class and the
// interesting new values to r. The returned func must be called exactly once,
// when r goes away.
func Attach(s *Store, r Reactor) (unsubscribe func()) {
	return s.Subscribe(func(action Action) error {
		if _, ok := asStateChange(action); !ok {
			return nil
		}
		change, ok := s.MostRecentChange()
		if !ok {
			return nil
		}
		interest, err := s.registry.Evaluate(r.ClassID(), change)
		if err != nil {
			return fmt.Errorf("evaluating %s interest in %s: %w", r.ClassID(), change.Class, err)
		}
		if interest == nil {
			return nil
		}
		if taker, ok := r.(StateTaker); ok {
			taker.TakeState(s.GetState(), change.Class, interest)
		}
		return nil
	})
}
