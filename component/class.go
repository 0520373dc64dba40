package component

import (
	"github.com/delaneyj/strux/changes"
)

// Class is a component class known to a Runtime. All descriptions hang off
// it: what its instances dispatch, pick up, fetch and react to.
type Class struct {
	id   changes.ClassID
	name string
	rt   *Runtime
}

func (c *Class) ID() changes.ClassID { return c.id }
func (c *Class) Name() string        { return c.name }
func (c *Class) String() string      { return c.name }

// New creates an unmounted instance. base may be nil.
func (c *Class) New(base Lifecycle, initial changes.Values) *Instance {
	return newInstance(c, base, initial)
}

// ReactsWhen registers which values of other classes this class cares about.
// Each rule is anything changes.NewValidator accepts. A later call replaces
// the whole registration.
//
//	nav.ReactsWhen(map[*Class]map[string]any{
//		home:  {"count": func(n any) bool { return n.(int) > 10 }},
//		other: {"title": true},
//	})
func (c *Class) ReactsWhen(spec map[*Class]map[string]any) {
	converted := make(changes.Spec, len(spec))
	for observed, rules := range spec {
		converted[observed.id] = rules
	}
	c.rt.store.Registry().Register(c.id, converted)
}

// Dispatches starts describing an action instances of c dispatch.
//
//	home.Dispatches("MY_ACTION").When(DidMount).As(func(state changes.Values) changes.Values {
//		return changes.Values{"prop": state["prop"]}
//	})
func (c *Class) Dispatches(actionType string) *DispatchBuilder {
	return &DispatchBuilder{class: c, actionType: actionType}
}

// PicksUp starts describing a handler run when an action reaches instances
// of c.
func (c *Class) PicksUp(actionType string) *PickupBuilder {
	return &PickupBuilder{class: c, actionType: actionType}
}

// Fetches starts describing a request made by instances of c. url may hold
// :name placeholders filled in from the translator given to When.
func (c *Class) Fetches(url string, opts *FetchOptions) *FetchBuilder {
	b := &FetchBuilder{class: c, url: url}
	if opts != nil {
		b.opts = *opts
	}
	return b
}
