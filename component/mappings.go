package component

import (
	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
)

// syncMapping copies the application state record mapped to the instance's
// class into its state, touching only keys that are missing or differ.
func (i *Instance) syncMapping(store.Action) error {
	rt := i.class.rt
	key, ok := rt.mappings[i.class.id]
	if !ok || i.phase != mounted {
		return nil
	}
	chunk, ok := asValues(rt.store.App()[key])
	if !ok {
		return nil
	}
	updates := isolateUpdates(chunk, i.state)
	if updates == nil {
		return nil
	}
	return i.SetState(updates, nil)
}

func isolateUpdates(chunk, current changes.Values) changes.Values {
	var out changes.Values
	for key, val := range chunk {
		if prev, ok := current[key]; ok && changes.Equal(prev, val) {
			continue
		}
		if out == nil {
			out = changes.Values{}
		}
		out[key] = val
	}
	return out
}

func asValues(v any) (changes.Values, bool) {
	switch m := v.(type) {
	case changes.Values:
		return m, m != nil
	case map[string]any:
		return m, m != nil
	}
	return nil, false
}
