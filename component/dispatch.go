package component

import (
	"errors"
	"fmt"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
)

// TransformFunc builds an action payload from an instance's state.
type TransformFunc func(state changes.Values) changes.Values

type dispatchRule struct {
	actionType string
	transform  TransformFunc
}

type DispatchBuilder struct {
	class      *Class
	actionType string
}

// When names the hook that triggers the dispatch. Hooks that are not
// lifecycle hooks become triggers of the runtime.
func (b *DispatchBuilder) When(hook Hook) *ActionBuilder {
	b.class.rt.AddTrigger(hook)
	return &ActionBuilder{class: b.class, actionType: b.actionType, hook: hook}
}

type ActionBuilder struct {
	class      *Class
	actionType string
	hook       Hook
}

// As completes the description. A nil transform dispatches an empty payload.
func (b *ActionBuilder) As(transform TransformFunc) {
	rt := b.class.rt
	byClass, ok := rt.dispatches[b.hook]
	if !ok {
		byClass = map[changes.ClassID][]dispatchRule{}
		rt.dispatches[b.hook] = byClass
	}
	byClass[b.class.id] = append(byClass[b.class.id], dispatchRule{
		actionType: b.actionType,
		transform:  transform,
	})
}

func (rt *Runtime) runDispatches(hook Hook, inst *Instance) error {
	rules := rt.dispatches[hook][inst.class.id]
	var errs []error
	for _, rule := range rules {
		payload := changes.Values{}
		if rule.transform != nil {
			if p := rule.transform(inst.State()); p != nil {
				payload = p
			}
		}
		if err := rt.store.Dispatch(store.Message{Type: rule.actionType, Payload: payload}); err != nil {
			errs = append(errs, fmt.Errorf("dispatching %s from %s on %s: %w", rule.actionType, inst, hook, err))
		}
	}
	return errors.Join(errs...)
}
