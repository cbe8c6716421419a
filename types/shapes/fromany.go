package shapes

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// FromAnyValue returns the shape of a Go value: a scalar of a supported type, or (possibly nested) slices of it.
// Nested slices must be regular. Elements of type any, as decoded from text formats, are unwrapped.
//
// Example:
//
//	shape, _ := shapes.FromAnyValue([][]float32{{0, 0}}) // (Float32)[1 2]
//
// Front-ends use it to derive the shape of a variable from example data.
func FromAnyValue(v any) (shape Shape, err error) {
	if v == nil {
		return Invalid(), errors.New("cannot derive the shape of a nil value")
	}
	err = fromValue(&shape, reflect.ValueOf(v))
	if err != nil {
		shape = Invalid()
	}
	return
}

func fromValue(shape *Shape, v reflect.Value) error {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
		if !v.IsValid() {
			return errors.New("cannot derive the shape of a nil element")
		}
	}
	if v.Kind() != reflect.Slice {
		shape.DType = dtypes.FromGoType(v.Type())
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("type %s has no corresponding dtype", v.Type())
		}
		return nil
	}
	if v.Len() == 0 {
		return errors.Errorf("empty slice of %s: cannot derive its inner dimensions", v.Type())
	}
	shape.Dimensions = append(shape.Dimensions, v.Len())
	prefix := shape.Clone()
	if err := fromValue(shape, v.Index(0)); err != nil {
		return err
	}
	for ii := 1; ii < v.Len(); ii++ {
		sibling := prefix.Clone()
		if err := fromValue(&sibling, v.Index(ii)); err != nil {
			return err
		}
		if !shape.Equal(sibling) {
			return errors.Errorf("irregular nested slices: element #%d has shape %s, element #0 has shape %s",
				ii, sibling, shape)
		}
	}
	return nil
}
