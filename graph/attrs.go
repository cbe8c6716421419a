package graph

import (
	"reflect"
	"slices"

	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// attrValue boxes an attribute value with the type it was stored as.
type attrValue struct {
	typ   reflect.Type
	value any
}

// attrMap is the attribute storage shared by Graph and Node.
//
// Values are shared, not copied, when a map is cloned: attribute values should be treated as immutable once set,
// and replaced rather than modified in place.
type attrMap map[string]attrValue

func setTyped[T any](m attrMap, key string, value T) {
	m[key] = attrValue{typ: reflect.TypeFor[T](), value: value}
}

// setDynamic stores value with its dynamic type as tag.
func setDynamic(m attrMap, key string, value any) {
	m[key] = attrValue{typ: reflect.TypeOf(value), value: value}
}

// lookupTyped is the single typed access point: it checks the stored tag against T.
func lookupTyped[T any](m attrMap, key string) (value T, found bool, err error) {
	boxed, found := m[key]
	if !found {
		return
	}
	requested := reflect.TypeFor[T]()
	if boxed.typ != requested {
		err = errors.WithStack(&types.TypeMismatchError{Key: key, Bound: boxed.typ, Requested: requested})
		return value, true, err
	}
	if boxed.value == nil {
		// Typed nil of an interface type.
		return value, true, nil
	}
	return boxed.value.(T), true, nil
}

func (m attrMap) clone() attrMap {
	c := make(attrMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (m attrMap) keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
