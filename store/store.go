package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/delaneyj/strux/changes"
	"github.com/golang/glog"
)

var (
	ErrInitialStateShape    = errors.New("initial state must be a flat record of keys and values")
	ErrDoubleInitialization = errors.New("initial state can not be set more than once")
	ErrReducerShape         = errors.New("reducer must return a record of keys and values")
)

// Reducer computes the next application state. It receives a copy of the
// current state and may modify it.
type Reducer func(state changes.Values, action Action) (changes.Values, error)

// Listener is told about every dispatched action once the store has reduced
// it.
type Listener func(action Action) error

// State is a copy of everything the store holds.
type State struct {
	App        changes.Values
	Components map[changes.ClassID]changes.Values
}

type subscription struct {
	fn     Listener
	active bool
}

// Store reduces actions and notifies listeners, one action at a time.
// Dispatches made while listeners are being notified are queued and run after
// the current cycle, so every listener of a cycle sees the same most recent
// change. A Store is not safe for concurrent use.
type Store struct {
	registry *changes.Registry
	tree     *changes.StateTree

	app            changes.Values
	initial        changes.Values
	initialSet     bool
	reducers       map[string]Reducer
	defaultReducer Reducer

	listeners   []*subscription
	dispatching bool
	queue       []Action
	incoming    Action
}

type Option func(*Store)

func WithRegistry(r *changes.Registry) Option {
	return func(s *Store) {
		s.registry = r
	}
}

func WithDefaultReducer(r Reducer) Option {
	return func(s *Store) {
		s.defaultReducer = r
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		tree:     changes.NewStateTree(),
		app:      changes.Values{},
		initial:  changes.Values{},
		reducers: map[string]Reducer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = changes.NewRegistry()
	}
	if s.defaultReducer == nil {
		s.defaultReducer = passThrough
	}
	return s
}

func passThrough(state changes.Values, _ Action) (changes.Values, error) {
	return state, nil
}

func (s *Store) Registry() *changes.Registry {
	return s.registry
}

// Reduce runs proc whenever an action of actionType is dispatched.
func (s *Store) Reduce(actionType string, proc Reducer) *Store {
	s.reducers[actionType] = proc
	return s
}

// ReduceDefault runs proc for actions without a reducer of their own.
func (s *Store) ReduceDefault(proc Reducer) *Store {
	s.defaultReducer = proc
	return s
}

// SetInitialState sets the application state once and resets the store to
// it. state must be a changes.Values or map[string]any.
func (s *Store) SetInitialState(state any) (changes.Values, error) {
	var vals changes.Values
	switch v := state.(type) {
	case changes.Values:
		vals = v
	case map[string]any:
		vals = v
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInitialStateShape, state)
	}
	if s.initialSet {
		return nil, ErrDoubleInitialization
	}
	s.initialSet = true
	s.initial = vals.Clone()

	if err := s.Dispatch(reset{}); err != nil {
		return nil, err
	}
	return s.app.Clone(), nil
}

// Dispatch reduces action and notifies every listener. Called from inside a
// listener it only queues the action; the outermost call drains the queue and
// returns the errors of every action it ran.
func (s *Store) Dispatch(action Action) error {
	if action == nil {
		return errors.New("dispatch of nil action")
	}
	s.queue = append(s.queue, action)
	if s.dispatching {
		glog.V(2).Infof("strux: queued %s behind current dispatch", action.ActionType())
		return nil
	}

	s.dispatching = true
	defer func() {
		s.dispatching = false
		s.incoming = nil
		s.queue = s.queue[:0]
	}()

	var errs []error
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]

		if d, ok := next.(deferred); ok {
			d.fn()
			continue
		}
		if err := s.reduce(next); err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, s.notify(next)...)
	}
	return errors.Join(errs...)
}

// Dispatching reports whether listeners are being notified, in which case a
// dispatch is only queued.
func (s *Store) Dispatching() bool {
	return s.dispatching
}

// After runs fn once every action dispatched so far has been reduced and its
// listeners notified. Outside a dispatch that is right away.
func (s *Store) After(fn func()) {
	if !s.dispatching {
		fn()
		return
	}
	s.queue = append(s.queue, deferred{fn: fn})
}

func (s *Store) reduce(action Action) error {
	if sc, ok := asStateChange(action); ok {
		delta := s.tree.Apply(sc.Class, sc.Old, sc.New)
		glog.V(2).Infof("strux: %s changed %d keys", sc.Class, len(delta))
		return nil
	}
	if _, ok := action.(reset); ok {
		s.app = s.initial.Clone()
		return nil
	}

	proc, ok := s.reducers[action.ActionType()]
	if !ok {
		proc = s.defaultReducer
	}
	next, err := proc(s.app.Clone(), action)
	if err != nil {
		return fmt.Errorf("reducing %s: %w", action.ActionType(), err)
	}
	if next == nil {
		return fmt.Errorf("reducing %s: %w", action.ActionType(), ErrReducerShape)
	}
	s.app = next
	return nil
}

func (s *Store) notify(action Action) []error {
	s.incoming = action
	var errs []error
	for _, sub := range slices.Clone(s.listeners) {
		if !sub.active {
			continue
		}
		if err := sub.fn(action); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Subscribe registers l and returns the func that removes it. Listeners run
// in subscription order. Calling the returned func twice panics.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	sub := &subscription{fn: l, active: true}
	s.listeners = append(s.listeners, sub)
	return func() {
		if !sub.active {
			panic("strux: listener unsubscribed twice")
		}
		sub.active = false
		s.listeners = slices.DeleteFunc(s.listeners, func(other *subscription) bool {
			return other == sub
		})
	}
}

func (s *Store) Listeners() int {
	return len(s.listeners)
}

// GetState returns a copy of the application state and every class slot.
func (s *Store) GetState() State {
	return State{
		App:        s.app.Clone(),
		Components: s.tree.Snapshot(),
	}
}

// App returns a copy of the application state only.
func (s *Store) App() changes.Values {
	return s.app.Clone()
}

func (s *Store) Slot(class changes.ClassID) (changes.Values, bool) {
	return s.tree.Slot(class)
}

// MostRecentChange is only meaningful while listeners of a state-change
// action are running.
func (s *Store) MostRecentChange() (changes.Change, bool) {
	return s.tree.MostRecent()
}

// Incoming returns the action listeners are currently being told about, or
// nil outside a notification cycle.
func (s *Store) Incoming() Action {
	return s.incoming
}
