package socketpool

import (
	"errors"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
)

var ErrMissingClass = errors.New("state change frame without a class")

// StateChanges answers "_STATE_CHANGE" frames shaped like
//
//	{"type":"_STATE_CHANGE","payload":{"class":"Home","old":{...},"new":{...}}}
//
// by dispatching them as state changes. Unknown class names are defined on
// the fly.
func StateChanges(classes *changes.ClassTable) Handler {
	return func(c *Conn, payload changes.Values) error {
		name, _ := payload["class"].(string)
		if name == "" {
			return ErrMissingClass
		}
		id, ok := classes.Lookup(name)
		if !ok {
			id = classes.Define(name)
		}
		return c.pool.store.Dispatch(store.StateChange{
			Class: id,
			Old:   record(payload["old"]),
			New:   record(payload["new"]),
		})
	}
}

func record(v any) changes.Values {
	m, _ := v.(map[string]any)
	return m
}
