package component

import (
	"context"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/glog"
)

// OnErrorFunc receives errors that have no caller to return to, such as a
// failed fetch.
type OnErrorFunc func(inst *Instance, err error)

// Runtime ties component classes to a store. It keeps every declarative
// description (dispatches, pickups, fetches, state mappings) and the loop
// asynchronous work is brought back onto. Like the store, it is not safe for
// concurrent use.
type Runtime struct {
	ctx     context.Context
	store   *store.Store
	classes *changes.ClassTable
	byID    map[changes.ClassID]*Class
	loop    *Loop
	fetcher Fetcher
	onError OnErrorFunc

	triggers   mapset.Set[Hook]
	dispatches map[Hook]map[changes.ClassID][]dispatchRule
	fetches    map[Hook]map[changes.ClassID][]fetchRule
	pickups    map[changes.ClassID]map[string][]PickupFunc
	mappings   map[changes.ClassID]string
}

type Option func(*Runtime)

func WithStore(s *store.Store) Option {
	return func(rt *Runtime) {
		rt.store = s
	}
}

func WithLoop(l *Loop) Option {
	return func(rt *Runtime) {
		rt.loop = l
	}
}

func WithFetcher(f Fetcher) Option {
	return func(rt *Runtime) {
		rt.fetcher = f
	}
}

func WithOnError(fn OnErrorFunc) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// WithClassTable shares t with code that defines classes outside the
// runtime, such as a snapshot restore or a socket relay.
func WithClassTable(t *changes.ClassTable) Option {
	return func(rt *Runtime) {
		rt.classes = t
	}
}

// WithContext sets the context fetches run under.
func WithContext(ctx context.Context) Option {
	return func(rt *Runtime) {
		rt.ctx = ctx
	}
}

func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		ctx:        context.Background(),
		classes:    changes.NewClassTable(),
		byID:       map[changes.ClassID]*Class{},
		triggers:   mapset.NewThreadUnsafeSet(LifecycleHooks...),
		dispatches: map[Hook]map[changes.ClassID][]dispatchRule{},
		fetches:    map[Hook]map[changes.ClassID][]fetchRule{},
		pickups:    map[changes.ClassID]map[string][]PickupFunc{},
		mappings:   map[changes.ClassID]string{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.store == nil {
		rt.store = store.New()
	}
	if rt.loop == nil {
		rt.loop = NewLoop()
	}
	if rt.fetcher == nil {
		rt.fetcher = &HTTPFetcher{}
	}
	if rt.onError == nil {
		rt.onError = func(inst *Instance, err error) {
			glog.Errorf("strux: %s: %v", inst, err)
		}
	}
	return rt
}

func (rt *Runtime) Store() *store.Store {
	return rt.store
}

func (rt *Runtime) Loop() *Loop {
	return rt.loop
}

// DefineClass creates a class with a fresh identity. Defining the same name
// twice gives two unrelated classes.
func (rt *Runtime) DefineClass(name string) *Class {
	c := &Class{
		id:   rt.classes.Define(name),
		name: name,
		rt:   rt,
	}
	rt.byID[c.id] = c
	return c
}

func (rt *Runtime) Class(id changes.ClassID) (*Class, bool) {
	c, ok := rt.byID[id]
	return c, ok
}

// ClassByName returns the first class defined with name.
func (rt *Runtime) ClassByName(name string) (*Class, bool) {
	id, ok := rt.classes.Lookup(name)
	if !ok {
		return nil, false
	}
	return rt.Class(id)
}

func (rt *Runtime) classFor(id changes.ClassID) *Class {
	if c, ok := rt.byID[id]; ok {
		return c
	}
	return &Class{id: id, name: rt.classes.Name(id), rt: rt}
}

func (rt *Runtime) ClassName(id changes.ClassID) string {
	return rt.classes.Name(id)
}

// AddTrigger makes custom hooks run dispatches and fetches like lifecycle
// hooks do.
func (rt *Runtime) AddTrigger(hooks ...Hook) {
	for _, h := range hooks {
		rt.triggers.Add(h)
	}
}

func (rt *Runtime) IsTrigger(h Hook) bool {
	return rt.triggers.Contains(h)
}

// MapStateToState keeps the state of mounted instances of each class in sync
// with the record stored under the given application state key.
func (rt *Runtime) MapStateToState(mappings map[string]*Class) {
	for key, c := range mappings {
		rt.mappings[c.id] = key
	}
}

func (rt *Runtime) fail(inst *Instance, err error) {
	if err != nil {
		rt.onError(inst, err)
	}
}
