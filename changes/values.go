package changes

import (
	"math"
	"reflect"
	"slices"

	"golang.org/x/exp/maps"
)

// Values is a flat record of named values.
type Values map[string]any

func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Keys returns the record's keys in sorted order.
func (v Values) Keys() []string {
	keys := maps.Keys(v)
	slices.Sort(keys)
	return keys
}

// Pair holds both sides of one key's transition.
type Pair struct {
	Old any
	New any
}

// Delta maps each changed key to its transition.
type Delta map[string]Pair

func (d Delta) Keys() []string {
	keys := maps.Keys(d)
	slices.Sort(keys)
	return keys
}

// Change is the outcome of one state-change action.
type Change struct {
	Class ClassID
	Delta Delta
}

// Equal reports whether a and b are the same value. Comparable dynamic types
// use ==. Maps, slices, funcs and chans compare by identity, which is what a
// caller replacing a slice with a fresh copy expects to see as a change.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	case reflect.Float32, reflect.Float64:
		fa, fb := ra.Float(), rb.Float()
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return false
		}
		return fa == fb
	}
	if !ra.Type().Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return safeEqual(a, b)
}

// safeEqual compares two values of a comparable type. Structs and arrays
// holding uncomparable interface values still panic on ==, so fall back.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
