// Package ops registers a standard catalog of tensor operators into op.Default(), with the operator attributes
// the standard passes use: FInferShape, FInplaceOption and TIsElementwise.
//
// Import it for its side effects:
//
//	import _ "github.com/gomlx/graphir/ops"
//
// Other packages can add operators or attributes to the same registry the same way; nothing here is privileged.
package ops

import (
	"math"

	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/shapeinference"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
)

// InferShapeFunc is the type of the FInferShape operator attribute: given the node attributes and the shapes of its
// inputs, it returns the shapes of its outputs.
type InferShapeFunc func(attrs op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error)

// InplaceOption is the type of the FInplaceOption operator attribute: pairs of (input index, output index) that can
// share the same storage.
type InplaceOption = [][2]int

// ElementwiseGroup is the operator group whose members have TIsElementwise set.
const ElementwiseGroup = "Elementwise"

func init() {
	RegisterAll(op.Default())
}

// RegisterAll registers the standard catalog into r. Calling it again re-applies the same definitions.
func RegisterAll(r *op.Registry) {
	must.M(op.SetGroupAttr(r.Group(ElementwiseGroup), types.OpAttrIsElementwise, true, 1))

	for _, def := range []struct {
		name       string
		constraint shapeinference.DTypeConstraint
	}{
		{"add", shapeinference.Number},
		{"sub", shapeinference.Number},
		{"mul", shapeinference.Number},
		{"div", shapeinference.Number},
		{"max", shapeinference.Number},
		{"min", shapeinference.Number},
		{"and", shapeinference.Boolean},
		{"or", shapeinference.Boolean},
	} {
		registerBinary(r, def.name, def.constraint)
	}
	for _, def := range []struct {
		name       string
		constraint shapeinference.DTypeConstraint
	}{
		{"exp", shapeinference.FloatOrComplex},
		{"log", shapeinference.FloatOrComplex},
		{"sqrt", shapeinference.FloatOrComplex},
		{"tanh", shapeinference.Float},
		{"negate", shapeinference.SignedNumber},
		{"identity", shapeinference.AnyDType},
	} {
		registerUnary(r, def.name, def.constraint)
	}
	registerStructural(r)
}

func registerBinary(r *op.Registry, name string, constraint shapeinference.DTypeConstraint) {
	o := r.Register(name).
		Describe("Element-wise "+name+" of two tensors, with broadcasting.").
		SetNumInputs(2).
		SetNumOutputs(1)
	if len(o.Arguments()) == 0 {
		o.AddArgument("lhs", "Tensor", "Left-hand side operand.").
			AddArgument("rhs", "Tensor", "Right-hand side operand.")
	}
	must.M(o.Include(ElementwiseGroup))
	must.M(op.SetAttr(o, types.OpAttrInplaceOption, InplaceOption{{0, 0}, {1, 0}}))
	must.M(op.SetAttr(o, types.OpAttrInferShape, InferShapeFunc(
		func(_ op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			output, err := shapeinference.BinaryOp(name, constraint, inputs[0], inputs[1])
			return []shapes.Shape{output}, err
		})))
}

func registerUnary(r *op.Registry, name string, constraint shapeinference.DTypeConstraint) {
	o := r.Register(name).
		Describe("Element-wise "+name+" of a tensor.").
		SetNumInputs(1).
		SetNumOutputs(1)
	if len(o.Arguments()) == 0 {
		o.AddArgument("x", "Tensor", "Operand.")
	}
	must.M(o.Include(ElementwiseGroup))
	must.M(op.SetAttr(o, types.OpAttrInplaceOption, InplaceOption{{0, 0}}))
	must.M(op.SetAttr(o, types.OpAttrInferShape, InferShapeFunc(
		func(_ op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			output, err := shapeinference.UnaryOp(name, constraint, inputs[0])
			return []shapes.Shape{output}, err
		})))
}

func setInferShape(o *op.Op, fn InferShapeFunc) {
	must.M(op.SetAttr(o, types.OpAttrInferShape, fn))
}

func registerStructural(r *op.Registry) {
	setInferShape(r.Register("matmul").
		Describe("Matrix multiplication of [..., m, k] by [..., k, n].").
		SetNumInputs(2).
		SetNumOutputs(1),
		func(_ op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			output, err := shapeinference.MatMul(inputs[0], inputs[1])
			return []shapes.Shape{output}, err
		})

	setInferShape(r.Register("transpose").
		Describe("Permutes the axes of a tensor; attribute perm lists the source axis of each output axis.").
		SetNumInputs(1).
		SetNumOutputs(1),
		func(attrs op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			perm, err := IntsAttr(attrs, "perm")
			if err != nil {
				return nil, err
			}
			output, err := shapeinference.Transpose(inputs[0], perm)
			return []shapes.Shape{output}, err
		})

	reshape := r.Register("reshape").
		Describe("Changes the dimensions of a tensor, keeping its elements; attribute shape holds the new dimensions.").
		SetNumInputs(1).
		SetNumOutputs(1)
	must.M(op.SetAttr(reshape, types.OpAttrInplaceOption, InplaceOption{{0, 0}}))
	setInferShape(reshape, func(attrs op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
		dims, err := IntsAttr(attrs, "shape")
		if err != nil {
			return nil, err
		}
		output, err := shapeinference.Reshape(inputs[0], dims)
		return []shapes.Shape{output}, err
	})

	setInferShape(r.Register("concat").
		Describe("Concatenates num_args tensors along attribute axis.").
		SetNumInputsFunc(func(attrs op.AttrReader) (int, error) {
			return IntAttr(attrs, "num_args")
		}).
		SetNumOutputs(1),
		func(attrs op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			axis, err := IntAttrOr(attrs, "axis", 0)
			if err != nil {
				return nil, err
			}
			output, err := shapeinference.Concatenate(inputs, axis)
			return []shapes.Shape{output}, err
		})

	setInferShape(r.Register("reduce_sum").
		Describe("Sums the elements of a tensor over attribute axes, or over all axes if not given.").
		SetNumInputs(1).
		SetNumOutputs(1),
		func(attrs op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			var axes []int
			if _, found := attrs.RawAttr("axes"); found {
				var err error
				if axes, err = IntsAttr(attrs, "axes"); err != nil {
					return nil, err
				}
			}
			output, err := shapeinference.Reduce(inputs[0], axes)
			return []shapes.Shape{output}, err
		})

	setInferShape(r.Register("split").
		Describe("Splits a tensor in num_outputs equal parts along attribute axis.").
		SetNumInputs(1).
		SetNumOutputsFunc(func(attrs op.AttrReader) (int, error) {
			return IntAttr(attrs, "num_outputs")
		}),
		func(attrs op.AttrReader, inputs []shapes.Shape) ([]shapes.Shape, error) {
			numOutputs, err := IntAttr(attrs, "num_outputs")
			if err != nil {
				return nil, err
			}
			axis, err := IntAttrOr(attrs, "axis", 0)
			if err != nil {
				return nil, err
			}
			return shapeinference.Split(inputs[0], axis, numOutputs)
		})
}

// IntAttr reads an integer node attribute.
func IntAttr(attrs op.AttrReader, key string) (int, error) {
	v, found := attrs.RawAttr(key)
	if !found {
		return 0, types.NotFoundf("attribute %q", key)
	}
	return toInt(key, v)
}

// IntAttrOr reads an integer node attribute, returning defaultValue if it is not set.
func IntAttrOr(attrs op.AttrReader, key string, defaultValue int) (int, error) {
	v, found := attrs.RawAttr(key)
	if !found {
		return defaultValue, nil
	}
	return toInt(key, v)
}

// IntsAttr reads an integer list node attribute. It accepts []int, []int64 and []any of integers,
// as decoded from text formats.
func IntsAttr(attrs op.AttrReader, key string) ([]int, error) {
	v, found := attrs.RawAttr(key)
	if !found {
		return nil, types.NotFoundf("attribute %q", key)
	}
	switch list := v.(type) {
	case []int:
		return list, nil
	case []int64:
		ints := make([]int, len(list))
		for i, x := range list {
			ints[i] = int(x)
		}
		return ints, nil
	case []any:
		ints := make([]int, len(list))
		for i, x := range list {
			n, err := toInt(key, x)
			if err != nil {
				return nil, err
			}
			ints[i] = n
		}
		return ints, nil
	}
	return nil, errors.Errorf("attribute %q must be a list of integers, got %T", key, v)
}

func toInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, errors.Errorf("attribute %q value %d overflows int", key, n)
		}
		return int(n), nil
	}
	return 0, errors.Errorf("attribute %q must be an integer, got %T", key, v)
}
