package component

import (
	"errors"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
)

// Lifecycle is the host component's implementation of its hooks. Invoke is
// called for every hook; implementations return nil for hooks they do not
// define.
type Lifecycle interface {
	Invoke(hook Hook, inst *Instance, args ...any) (any, error)
}

// Taker is implemented by lifecycles that react to changes on classes they
// registered interest in with ReactsWhen.
type Taker interface {
	TakeState(inst *Instance, state store.State, trigger *Class, interest changes.Values)
}

type HookFunc func(inst *Instance, args ...any) (any, error)

type TakeStateFunc func(inst *Instance, state store.State, trigger *Class, interest changes.Values)

// Component is a Lifecycle assembled from plain funcs.
type Component struct {
	Hooks      map[Hook]HookFunc
	TakesState TakeStateFunc
}

func (c Component) Invoke(hook Hook, inst *Instance, args ...any) (any, error) {
	if fn, ok := c.Hooks[hook]; ok && fn != nil {
		return fn(inst, args...)
	}
	return nil, nil
}

func (c Component) TakeState(inst *Instance, state store.State, trigger *Class, interest changes.Values) {
	if c.TakesState != nil {
		c.TakesState(inst, state, trigger, interest)
	}
}

type wrapped struct {
	base Lifecycle
	rt   *Runtime
}

// Wrap decorates base with the runtime's behaviour. After base runs a hook:
// shouldComponentUpdate defaults to true, componentDidMount subscribes the
// instance to the store, the dispatches and fetches described for the hook
// fire, and componentWillUnmount releases the subscriptions.
func Wrap(base Lifecycle, rt *Runtime) Lifecycle {
	return &wrapped{base: base, rt: rt}
}

func (w *wrapped) Invoke(hook Hook, inst *Instance, args ...any) (any, error) {
	var (
		out  any
		errs []error
	)
	if w.base != nil {
		var err error
		out, err = w.base.Invoke(hook, inst, args...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if hook == ShouldUpdate && out == nil {
		out = true
	}
	if !w.rt.triggers.Contains(hook) {
		return out, errors.Join(errs...)
	}

	if hook == DidMount {
		inst.subscribe()
	}
	errs = append(errs, w.rt.runDispatches(hook, inst))
	w.rt.runFetches(hook, inst)
	if hook == WillUnmount {
		inst.release()
	}
	return out, errors.Join(errs...)
}

func (w *wrapped) TakeState(inst *Instance, state store.State, trigger *Class, interest changes.Values) {
	if taker, ok := w.base.(Taker); ok {
		taker.TakeState(inst, state, trigger, interest)
	}
}
