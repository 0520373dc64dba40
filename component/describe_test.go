package component_test

import (
	"testing"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/component"
	"github.com/delaneyj/strux/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(s *store.Store) *[]store.Message {
	var got []store.Message
	s.Subscribe(func(action store.Action) error {
		if m, ok := action.(store.Message); ok {
			got = append(got, m)
		}
		return nil
	})
	return &got
}

func TestDispatchesOnLifecycleHook(t *testing.T) {
	rt := component.NewRuntime()
	home := rt.DefineClass("Home")
	home.Dispatches("MY_ACTION").When(component.DidMount).As(func(state changes.Values) changes.Values {
		return changes.Values{"prop": state["prop"]}
	})
	home.Dispatches("BYE").When(component.WillUnmount).As(nil)
	got := messages(rt.Store())

	inst := home.New(nil, changes.Values{"prop": "value"})
	require.NoError(t, inst.Mount())
	require.Len(t, *got, 1)
	assert.Equal(t, store.Message{Type: "MY_ACTION", Payload: changes.Values{"prop": "value"}}, (*got)[0])

	require.NoError(t, inst.Unmount())
	require.Len(t, *got, 2)
	assert.Equal(t, store.Message{Type: "BYE", Payload: changes.Values{}}, (*got)[1])
}

func TestDispatchesAreScopedToTheirClass(t *testing.T) {
	rt := component.NewRuntime()
	home := rt.DefineClass("Home")
	nav := rt.DefineClass("Nav")
	home.Dispatches("HOME_MOUNTED").When(component.DidMount).As(nil)
	got := messages(rt.Store())

	require.NoError(t, nav.New(nil, nil).Mount())
	assert.Empty(t, *got)
}

func TestCustomTriggers(t *testing.T) {
	rt := component.NewRuntime()
	home := rt.DefineClass("Home")
	const clicked component.Hook = "onClick"

	assert.False(t, rt.IsTrigger(clicked))
	home.Dispatches("CLICKED").When(clicked).As(func(state changes.Values) changes.Values {
		return changes.Values{"at": state["at"]}
	})
	assert.True(t, rt.IsTrigger(clicked))
	got := messages(rt.Store())

	var ran bool
	inst := home.New(component.Component{
		Hooks: map[component.Hook]component.HookFunc{
			clicked: func(inst *component.Instance, args ...any) (any, error) {
				ran = true
				return "handled", nil
			},
		},
	}, changes.Values{"at": 3})

	out, err := inst.Invoke(clicked)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "handled", out)
	require.Len(t, *got, 1)
	assert.Equal(t, changes.Values{"at": 3}, (*got)[0].Payload)
}

func TestUntriggeredHookOnlyRunsBase(t *testing.T) {
	rt := component.NewRuntime()
	rec := &recorder{}
	inst := rt.DefineClass("Home").New(rec, nil)
	out, err := inst.Invoke("onHover")
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, []component.Hook{"onHover"}, rec.hooks)
}

func TestPicksUp(t *testing.T) {
	rt := component.NewRuntime()
	rt.Store().Reduce("LOGIN", func(state changes.Values, action store.Action) (changes.Values, error) {
		state["user"] = action.(store.Message).Payload["name"]
		return state, nil
	})
	nav := rt.DefineClass("Nav")

	var seen []any
	nav.PicksUp("LOGIN").Then(func(state store.State, inst *component.Instance) error {
		seen = append(seen, state.App["user"])
		return inst.SetState(changes.Values{"user": state.App["user"]}, nil)
	})

	inst := nav.New(nil, nil)
	require.NoError(t, rt.Store().Dispatch(store.Message{Type: "LOGIN", Payload: changes.Values{"name": "early"}}))
	assert.Empty(t, seen)

	require.NoError(t, inst.Mount())
	require.NoError(t, rt.Store().Dispatch(store.Message{Type: "OTHER"}))
	assert.Empty(t, seen)

	require.NoError(t, rt.Store().Dispatch(store.Message{Type: "LOGIN", Payload: changes.Values{"name": "ada"}}))
	assert.Equal(t, []any{"ada"}, seen)
	assert.Equal(t, changes.Values{"user": "ada"}, inst.State())

	require.NoError(t, inst.Unmount())
	require.NoError(t, rt.Store().Dispatch(store.Message{Type: "LOGIN", Payload: changes.Values{"name": "late"}}))
	assert.Equal(t, []any{"ada"}, seen)
}

func TestMapStateToState(t *testing.T) {
	rt := component.NewRuntime()
	rt.Store().Reduce("SET_PROFILE", func(state changes.Values, action store.Action) (changes.Values, error) {
		state["profile"] = action.(store.Message).Payload
		return state, nil
	})
	profile := rt.DefineClass("Profile")
	rt.MapStateToState(map[string]*component.Class{"profile": profile})

	rec := &recorder{}
	inst := profile.New(rec, changes.Values{"name": "ada", "local": true})
	require.NoError(t, inst.Mount())

	require.NoError(t, rt.Store().Dispatch(store.Message{
		Type:    "SET_PROFILE",
		Payload: changes.Values{"name": "grace", "age": 85},
	}))
	assert.Equal(t, changes.Values{"name": "grace", "age": 85, "local": true}, inst.State())
	updates := 0
	for _, h := range rec.hooks {
		if h == component.DidUpdate {
			updates++
		}
	}
	assert.Equal(t, 1, updates)

	// same record again: nothing differs so no further update
	require.NoError(t, rt.Store().Dispatch(store.Message{
		Type:    "SET_PROFILE",
		Payload: changes.Values{"name": "grace", "age": 85},
	}))
	updates = 0
	for _, h := range rec.hooks {
		if h == component.DidUpdate {
			updates++
		}
	}
	assert.Equal(t, 1, updates)
}

func TestMapStateToStateUpdatesSlotBeforeDidUpdate(t *testing.T) {
	rt := component.NewRuntime()
	rt.Store().Reduce("SET_PROFILE", func(state changes.Values, action store.Action) (changes.Values, error) {
		state["profile"] = action.(store.Message).Payload
		return state, nil
	})
	profile := rt.DefineClass("Profile")
	rt.MapStateToState(map[string]*component.Class{"profile": profile})

	var atUpdate []changes.Values
	inst := profile.New(component.Component{
		Hooks: map[component.Hook]component.HookFunc{
			component.DidUpdate: func(inst *component.Instance, args ...any) (any, error) {
				slot, _ := rt.Store().Slot(profile.ID())
				atUpdate = append(atUpdate, slot)
				return nil, nil
			},
		},
	}, nil)
	require.NoError(t, inst.Mount())

	require.NoError(t, rt.Store().Dispatch(store.Message{
		Type:    "SET_PROFILE",
		Payload: changes.Values{"name": "grace"},
	}))
	require.Len(t, atUpdate, 1)
	assert.Equal(t, changes.Values{"name": "grace"}, atUpdate[0])
}
