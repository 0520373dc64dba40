package component

import (
	"errors"
	"fmt"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

var (
	ErrAlreadyMounted = errors.New("instance is already mounted")
	ErrNotMounted     = errors.New("instance is not mounted")
	ErrReleased       = errors.New("instance was unmounted and can not mount again")
)

type phase uint8

const (
	unmounted phase = iota
	mounted
	released
)

func (p phase) String() string {
	switch p {
	case unmounted:
		return "unmounted"
	case mounted:
		return "mounted"
	default:
		return "released"
	}
}

// Instance is one mounted (or mountable) component. It moves from unmounted
// to mounted to released exactly once; its store subscriptions live only
// while it is mounted.
type Instance struct {
	id    ulid.ULID
	class *Class
	life  Lifecycle
	state changes.Values
	phase phase

	unsubscribers []func()
}

func newInstance(c *Class, base Lifecycle, initial changes.Values) *Instance {
	return &Instance{
		id:    ulid.Make(),
		class: c,
		life:  Wrap(base, c.rt),
		state: initial.Clone(),
	}
}

func (i *Instance) ID() ulid.ULID            { return i.id }
func (i *Instance) Class() *Class            { return i.class }
func (i *Instance) ClassID() changes.ClassID { return i.class.id }
func (i *Instance) Mounted() bool            { return i.phase == mounted }
func (i *Instance) State() changes.Values    { return i.state.Clone() }

func (i *Instance) Get(key string) (any, bool) {
	v, ok := i.state[key]
	return v, ok
}

func (i *Instance) String() string {
	if i == nil {
		return "<nil instance>"
	}
	return fmt.Sprintf("%s(%s)", i.class.name, i.id)
}

// Mount runs componentWillMount and componentDidMount. Subscriptions are made
// as part of componentDidMount.
func (i *Instance) Mount() error {
	switch i.phase {
	case mounted:
		return ErrAlreadyMounted
	case released:
		return ErrReleased
	}
	if _, err := i.life.Invoke(WillMount, i); err != nil {
		return fmt.Errorf("mounting %s: %w", i, err)
	}
	i.phase = mounted
	glog.V(1).Infof("strux: mounted %s", i)
	if _, err := i.life.Invoke(DidMount, i); err != nil {
		return fmt.Errorf("mounting %s: %w", i, err)
	}
	return nil
}

// Unmount runs componentWillUnmount, which releases every subscription.
func (i *Instance) Unmount() error {
	if i.phase != mounted {
		return ErrNotMounted
	}
	_, err := i.life.Invoke(WillUnmount, i)
	// no-op when the wrapper already released
	i.release()
	i.phase = released
	glog.V(1).Infof("strux: unmounted %s", i)
	if err != nil {
		return fmt.Errorf("unmounting %s: %w", i, err)
	}
	return nil
}

// SetState merges values into the instance state, sends the old and new
// records through the store as a state change and only then runs
// componentDidUpdate and done. Called while the store is notifying listeners,
// the change is queued and so are componentDidUpdate and done; their errors
// then go to the runtime's error handler.
func (i *Instance) SetState(values changes.Values, done func()) error {
	if i.phase != mounted {
		return ErrNotMounted
	}
	prev := i.state.Clone()
	next := i.state.Clone()
	for k, v := range values {
		next[k] = v
	}

	var errs []error
	should := true
	out, err := i.life.Invoke(ShouldUpdate, i, next)
	if err != nil {
		errs = append(errs, err)
	}
	if b, ok := out.(bool); ok {
		should = b
	}
	if should {
		if _, err := i.life.Invoke(WillUpdate, i, next); err != nil {
			errs = append(errs, err)
		}
	}

	i.state = next
	s := i.class.rt.store
	queued := s.Dispatching()
	if err := s.Dispatch(store.StateChange{
		Class: i.class.id,
		Old:   prev,
		New:   next.Clone(),
	}); err != nil {
		errs = append(errs, err)
	}

	finish := func() error {
		var err error
		if should {
			_, err = i.life.Invoke(DidUpdate, i, prev)
		}
		if done != nil {
			done()
		}
		return err
	}
	if queued {
		s.After(func() {
			i.class.rt.fail(i, finish())
		})
		return errors.Join(errs...)
	}
	if err := finish(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReceiveProps runs componentWillReceiveProps.
func (i *Instance) ReceiveProps(props changes.Values) error {
	_, err := i.Invoke(WillReceiveProps, props)
	return err
}

// Invoke runs any hook through the wrapped lifecycle, custom ones included.
// Mounting hooks should go through Mount and Unmount instead.
func (i *Instance) Invoke(hook Hook, args ...any) (any, error) {
	return i.life.Invoke(hook, i, args...)
}

// TakeState makes Instance a store.StateTaker. A trigger class the runtime
// did not define reaches the Taker as a Class carrying only its id and the
// name the runtime's class table has for it.
func (i *Instance) TakeState(state store.State, trigger changes.ClassID, interest changes.Values) {
	taker, ok := i.life.(Taker)
	if !ok {
		return
	}
	taker.TakeState(i, state, i.class.rt.classFor(trigger), interest)
}

func (i *Instance) subscribe() {
	if len(i.unsubscribers) > 0 {
		return
	}
	s := i.class.rt.store
	i.unsubscribers = append(i.unsubscribers,
		store.Attach(s, i),
		s.Subscribe(i.runPickups),
		s.Subscribe(i.syncMapping),
	)
}

func (i *Instance) release() {
	unsubscribers := i.unsubscribers
	i.unsubscribers = nil
	for _, unsubscribe := range unsubscribers {
		unsubscribe()
	}
}
