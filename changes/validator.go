package changes

import (
	"errors"
	"fmt"
)

// Mode decides whether equal old and new values are considered at all.
type Mode string

const (
	// ModeChange skips keys whose value did not change.
	ModeChange Mode = "change"
	// ModeAlways runs the predicate even when the value did not change.
	ModeAlways Mode = "always"
)

// Predicate reports whether a transition is interesting.
type Predicate func(newValue, oldValue any) bool

type Validator struct {
	Mode  Mode
	Check Predicate
	// Unconditional marks the literal `true` rule: interested without asking
	// a predicate.
	Unconditional bool
}

var ErrInvalidValidatorMode = errors.New("invalid validator mode")

type InvalidModeError struct {
	Mode Mode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("%q is not a valid validator mode", string(e.Mode))
}

func (e *InvalidModeError) Is(target error) bool {
	return target == ErrInvalidValidatorMode
}

// Validate returns an *InvalidModeError when the mode is neither ModeChange
// nor ModeAlways.
func (v Validator) Validate() error {
	if v.Mode != ModeChange && v.Mode != ModeAlways {
		return &InvalidModeError{Mode: v.Mode}
	}
	return nil
}

func (v Validator) interested(p Pair) (bool, error) {
	if v.Mode == ModeChange && Equal(p.Old, p.New) {
		return false, nil
	}
	if err := v.Validate(); err != nil {
		return false, err
	}
	if v.Unconditional {
		return true, nil
	}
	if v.Check == nil {
		return false, nil
	}
	return v.Check(p.New, p.Old), nil
}

// NewValidator turns one rule from a registration spec into a Validator.
//
// Bare predicates and `true` get ModeChange. A two element []any or [2]any
// is read as (mode, predicate). Shapes it does not recognise, `false`
// included, become a validator that is never interested; registration does
// not fail on them.
func NewValidator(rule any) Validator {
	switch r := rule.(type) {
	case Validator:
		return r
	case *Validator:
		if r != nil {
			return *r
		}
	case Predicate:
		return Validator{Mode: ModeChange, Check: r}
	case func(newValue, oldValue any) bool:
		return Validator{Mode: ModeChange, Check: r}
	case func(newValue any) bool:
		return Validator{Mode: ModeChange, Check: func(n, _ any) bool { return r(n) }}
	case bool:
		return Validator{Mode: ModeChange, Unconditional: r}
	case []any:
		if len(r) == 2 {
			return pairValidator(r[0], r[1])
		}
	case [2]any:
		return pairValidator(r[0], r[1])
	}
	return Validator{Mode: ModeChange}
}

func pairValidator(mode, check any) Validator {
	v := NewValidator(check)
	switch m := mode.(type) {
	case Mode:
		v.Mode = m
	case string:
		v.Mode = Mode(m)
	default:
		v.Mode = Mode(fmt.Sprint(m))
	}
	return v
}
