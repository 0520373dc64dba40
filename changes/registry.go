package changes

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/maps"
)

// Spec describes what one observer class watches: observed class, then value
// name, then a rule accepted by NewValidator.
type Spec map[ClassID]map[string]any

// Rules are the normalized validators for one (observer, observed) pair.
type Rules map[string]Validator

// Registry records which keyed values of other classes each observer class
// cares about.
//
//	observer -> observed -> value name -> Validator
//
// It is filled at startup and read during notification; it is not safe for
// concurrent mutation.
type Registry struct {
	connections map[ClassID]map[ClassID]Rules
}

func NewRegistry() *Registry {
	return &Registry{
		connections: map[ClassID]map[ClassID]Rules{},
	}
}

// Register replaces everything previously registered for observer.
func (r *Registry) Register(observer ClassID, spec Spec) {
	byClass := make(map[ClassID]Rules, len(spec))
	for observed, values := range spec {
		rules := make(Rules, len(values))
		for name, rule := range values {
			rules[name] = NewValidator(rule)
		}
		byClass[observed] = rules
	}
	r.connections[observer] = byClass
}

func (r *Registry) Lookup(observer, observed ClassID) (Rules, bool) {
	rules, ok := r.connections[observer][observed]
	return rules, ok
}

// Observers returns every registered observer in ascending order.
func (r *Registry) Observers() []ClassID {
	ids := maps.Keys(r.connections)
	slices.Sort(ids)
	return ids
}

// Watching returns the set of classes observer has rules for.
func (r *Registry) Watching(observer ClassID) mapset.Set[ClassID] {
	set := mapset.NewThreadUnsafeSet[ClassID]()
	for observed := range r.connections[observer] {
		set.Add(observed)
	}
	return set
}

// ObserversOf returns the observers with rules for observed.
func (r *Registry) ObserversOf(observed ClassID) mapset.Set[ClassID] {
	set := mapset.NewThreadUnsafeSet[ClassID]()
	for observer, byClass := range r.connections {
		if _, ok := byClass[observed]; ok {
			set.Add(observer)
		}
	}
	return set
}

// Evaluate returns the new value of every key in change that observer has an
// interested rule for. A nil result means no interest; it is never an empty
// map.
func (r *Registry) Evaluate(observer ClassID, change Change) (Values, error) {
	rules, ok := r.Lookup(observer, change.Class)
	if !ok || len(rules) == 0 || len(change.Delta) == 0 {
		return nil, nil
	}

	var out Values
	for _, name := range change.Delta.Keys() {
		validator, ok := rules[name]
		if !ok {
			continue
		}
		pair := change.Delta[name]
		interested, err := validator.interested(pair)
		if err != nil {
			return nil, err
		}
		if !interested {
			continue
		}
		if out == nil {
			out = Values{}
		}
		out[name] = pair.New
	}
	return out, nil
}
