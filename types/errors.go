package types

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Error kinds reported by the registry, the graph and the pass manager.
//
// Every failure returned by this module wraps one of these, so callers can test the kind with errors.Is,
// while the message identifies the offending names.
var (
	// ErrNotFound is returned for unknown operator, attribute or pass names.
	ErrNotFound = errors.New("not found")

	// ErrTypeMismatch is returned when an attribute is requested or registered with a type other than the one
	// it is bound to.
	ErrTypeMismatch = errors.New("attribute type mismatch")

	// ErrMissingDependency is returned when a pass is run without one of the attributes it requires.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrCyclicDependency is returned when no valid order exists for a set of passes.
	ErrCyclicDependency = errors.New("cyclic pass dependency")

	// ErrGraphCycleDetected is returned when the nodes reachable from a graph's outputs are not acyclic.
	ErrGraphCycleDetected = errors.New("graph cycle detected")
)

// TypeMismatchError details an ErrTypeMismatch: the attribute Key is bound to type Bound but was used with
// type Requested.
type TypeMismatchError struct {
	Key       string
	Bound     reflect.Type
	Requested reflect.Type
}

// Error implements error.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: attribute %q holds %s, requested as %s", ErrTypeMismatch, e.Key, e.Bound, e.Requested)
}

// Unwrap returns ErrTypeMismatch.
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// MissingDependencyError details an ErrMissingDependency.
type MissingDependencyError struct {
	// Pass is the name of the pass that declared the requirement.
	Pass string

	// Attr is the unmet attribute name.
	Attr string
}

// Error implements error.
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: pass %q requires attribute %q", ErrMissingDependency, e.Pass, e.Attr)
}

// Unwrap returns ErrMissingDependency.
func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// NotFoundf returns an error wrapping ErrNotFound with the formatted message.
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}
