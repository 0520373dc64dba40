package changes

// StateTree keeps the last known flat state of each class and the most recent
// change applied to it. All instances of a class share one slot.
type StateTree struct {
	slots     map[ClassID]Values
	recent    Change
	hasRecent bool
}

func NewStateTree() *StateTree {
	return &StateTree{
		slots: map[ClassID]Values{},
	}
}

// Apply folds one instance's state transition into the tree and returns the
// delta. For a class seen for the first time every key of newValues is
// reported, paired with its entry in oldValues. Afterwards keys are compared
// against the stored slot, not against oldValues, and only differing ones are
// reported. The result also becomes the most recent change.
func (t *StateTree) Apply(class ClassID, oldValues, newValues Values) Delta {
	delta := Delta{}

	slot, seen := t.slots[class]
	if !seen {
		for key, val := range newValues {
			delta[key] = Pair{Old: oldValues[key], New: val}
		}
		t.slots[class] = newValues.Clone()
	} else {
		for key, val := range newValues {
			prev, had := slot[key]
			if !had {
				prev = oldValues[key]
			}
			if !had || !Equal(prev, val) {
				delta[key] = Pair{Old: prev, New: val}
			}
			slot[key] = val
		}
	}

	t.recent = Change{Class: class, Delta: delta}
	t.hasRecent = true
	return delta
}

// MostRecent returns the change produced by the last Apply. It is only
// meaningful during the notification cycle that follows that Apply.
func (t *StateTree) MostRecent() (Change, bool) {
	return t.recent, t.hasRecent
}

// Slot returns a copy of the stored state for class.
func (t *StateTree) Slot(class ClassID) (Values, bool) {
	slot, ok := t.slots[class]
	if !ok {
		return nil, false
	}
	return slot.Clone(), true
}

// Snapshot copies every slot.
func (t *StateTree) Snapshot() map[ClassID]Values {
	out := make(map[ClassID]Values, len(t.slots))
	for class, slot := range t.slots {
		out[class] = slot.Clone()
	}
	return out
}

func (t *StateTree) Len() int {
	return len(t.slots)
}
