package socketpool

import (
	"github.com/delaneyj/strux/changes"
)

const (
	FrameAction   = "action"
	FrameChange   = "change"
	FrameSnapshot = "snapshot"
)

// Inbound is what clients send. Each one becomes a store.Message unless the
// connection has a handler for its type.
type Inbound struct {
	Type    string         `json:"type"`
	Payload changes.Values `json:"payload"`
}

// Frame is what the pool sends.
type Frame struct {
	Type   string            `json:"type"`
	Action string            `json:"action,omitempty"`
	Class  string            `json:"class,omitempty"`
	Delta  map[string][2]any `json:"delta,omitempty"`
	State  changes.Values    `json:"state,omitempty"`
}

func changeFrame(class string, d changes.Delta) Frame {
	delta := make(map[string][2]any, len(d))
	for k, p := range d {
		delta[k] = [2]any{p.Old, p.New}
	}
	return Frame{Type: FrameChange, Class: class, Delta: delta}
}
