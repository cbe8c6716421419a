package op

import (
	"reflect"
	"sync"

	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultLevel is the priority level used by SetAttr.
const DefaultLevel = 10

// attrTable is the type-erased view of an AttrTable[T], as the Registry stores it.
type attrTable interface {
	name() string
	valueType() reflect.Type
	Has(o *Op) bool
	len() int
	grow(n int)
	clear()
}

// AttrTable holds the values of one operator attribute for every operator of a Registry, indexed by Op.ID.
//
// Tables are created by GetAttrTable and are never removed from the Registry.
type AttrTable[T any] struct {
	attrName string

	mu      sync.RWMutex
	values  []T
	present []bool
	levels  []int
}

var _ attrTable = (*AttrTable[int])(nil)

func newAttrTable[T any](name string, size int) *AttrTable[T] {
	t := &AttrTable[T]{attrName: name}
	t.grow(size)
	return t
}

// Name of the attribute.
func (t *AttrTable[T]) Name() string { return t.attrName }

// Len returns the number of slots, at least the number of operators registered.
func (t *AttrTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// Count returns the number of operators that have a value set.
func (t *AttrTable[T]) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var count int
	for _, p := range t.present {
		if p {
			count++
		}
	}
	return count
}

// Get returns the value of the attribute for the operator o. found is false if no value was set for o.
func (t *AttrTable[T]) Get(o *Op) (value T, found bool) {
	if o == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if o.id >= len(t.values) || !t.present[o.id] {
		return
	}
	return t.values[o.id], true
}

// GetOr returns the value of the attribute for the operator o, or defaultValue if it was not set.
func (t *AttrTable[T]) GetOr(o *Op, defaultValue T) T {
	if value, found := t.Get(o); found {
		return value
	}
	return defaultValue
}

// Has returns whether a value is set for the operator o.
func (t *AttrTable[T]) Has(o *Op) bool {
	_, found := t.Get(o)
	return found
}

// set stores value for o unless a value with a higher level is already stored.
// Writes are serialized by the table lock: concurrent writes of the same level are won by the last to acquire it.
func (t *AttrTable[T]) set(o *Op, value T, level int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o.id >= len(t.values) {
		t.growLocked(o.id + 1)
	}
	if t.present[o.id] && t.levels[o.id] > level {
		klog.V(2).Infof("op %q: attribute %q already set with level %d, ignoring value with level %d",
			o.name, t.attrName, t.levels[o.id], level)
		return false
	}
	t.values[o.id] = value
	t.present[o.id] = true
	t.levels[o.id] = level
	return true
}

func (t *AttrTable[T]) name() string { return t.attrName }

func (t *AttrTable[T]) valueType() reflect.Type { return reflect.TypeFor[T]() }

func (t *AttrTable[T]) len() int { return t.Len() }

func (t *AttrTable[T]) grow(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.growLocked(n)
}

func (t *AttrTable[T]) growLocked(n int) {
	if n <= len(t.values) {
		return
	}
	extra := n - len(t.values)
	t.values = append(t.values, make([]T, extra)...)
	t.present = append(t.present, make([]bool, extra)...)
	t.levels = append(t.levels, make([]int, extra)...)
}

func (t *AttrTable[T]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	for i := range t.values {
		t.values[i] = zero
		t.present[i] = false
		t.levels[i] = 0
	}
}

// GetAttrTable returns the table of the attribute attrName, creating it if needed.
//
// The first call for an attribute name binds it to the type T. Later calls with a different type return an error
// wrapping types.ErrTypeMismatch (see types.TypeMismatchError).
func GetAttrTable[T any](r *Registry, attrName string) (*AttrTable[T], error) {
	table, err := LookupAttrTable[T](r, attrName)
	if err != nil || table != nil {
		return table, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if erased, found := r.tables[attrName]; found {
		// Created concurrently.
		return castAttrTable[T](erased)
	}
	created := newAttrTable[T](attrName, len(r.ops))
	r.tables[attrName] = created
	klog.V(1).Infof("op registry: attribute %q bound to type %s", attrName, created.valueType())
	return created, nil
}

// LookupAttrTable returns the table of the attribute attrName, or nil if no operator attribute with that name
// was ever created.
func LookupAttrTable[T any](r *Registry, attrName string) (*AttrTable[T], error) {
	r.mu.RLock()
	erased, found := r.tables[attrName]
	r.mu.RUnlock()
	if !found {
		return nil, nil
	}
	return castAttrTable[T](erased)
}

// MustGetAttrTable is like GetAttrTable, but it panics on error.
// It is meant for package level variables holding the tables a package reads.
func MustGetAttrTable[T any](r *Registry, attrName string) *AttrTable[T] {
	table, err := GetAttrTable[T](r, attrName)
	if err != nil {
		panic(err)
	}
	return table
}

func castAttrTable[T any](erased attrTable) (*AttrTable[T], error) {
	table, ok := erased.(*AttrTable[T])
	if !ok {
		return nil, errors.WithStack(&types.TypeMismatchError{
			Key:       erased.name(),
			Bound:     erased.valueType(),
			Requested: reflect.TypeFor[T](),
		})
	}
	return table, nil
}
