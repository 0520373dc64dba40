package component

import (
	"errors"

	"github.com/delaneyj/strux/store"
)

// PickupFunc runs when an action a class picks up reaches one of its
// mounted instances.
type PickupFunc func(state store.State, inst *Instance) error

type PickupBuilder struct {
	class      *Class
	actionType string
}

func (b *PickupBuilder) Then(handler PickupFunc) {
	rt := b.class.rt
	byType, ok := rt.pickups[b.class.id]
	if !ok {
		byType = map[string][]PickupFunc{}
		rt.pickups[b.class.id] = byType
	}
	byType[b.actionType] = append(byType[b.actionType], handler)
}

func (i *Instance) runPickups(action store.Action) error {
	rt := i.class.rt
	handlers := rt.pickups[i.class.id][action.ActionType()]
	if len(handlers) == 0 {
		return nil
	}
	state := rt.store.GetState()
	var errs []error
	for _, handler := range handlers {
		if err := handler(state, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
