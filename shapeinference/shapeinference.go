// Package shapeinference calculates the shapes resulting from operations and validates their inputs.
//
// Operators of the standard catalog (package ops) bind these functions as their FInferShape attribute, and the
// InferShape pass calls them node by node.
//
// Element-wise operations are checked against a DTypeConstraint: the set of data types the operation accepts.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/pkg/errors"
)

// DTypeConstraint restricts the data types an operation accepts.
type DTypeConstraint int

const (
	// AnyDType accepts every valid data type.
	AnyDType DTypeConstraint = iota

	// Number accepts integers, floats and complex numbers.
	Number

	// SignedNumber accepts signed integers, floats and complex numbers.
	SignedNumber

	// Float accepts only floats.
	Float

	// FloatOrComplex accepts floats and complex numbers.
	FloatOrComplex

	// Boolean accepts booleans and integers (bitwise).
	Boolean
)

// String implements fmt.Stringer.
func (c DTypeConstraint) String() string {
	switch c {
	case AnyDType:
		return "any"
	case Number:
		return "number"
	case SignedNumber:
		return "signed number"
	case Float:
		return "float"
	case FloatOrComplex:
		return "float or complex"
	case Boolean:
		return "boolean"
	}
	return "unknown"
}

// Accepts returns whether the data type satisfies the constraint.
func (c DTypeConstraint) Accepts(dtype dtypes.DType) bool {
	if dtype == dtypes.InvalidDType {
		return false
	}
	isNumber := dtype.IsInt() || dtype.IsFloat() || dtype.IsComplex()
	switch c {
	case AnyDType:
		return true
	case Number:
		return isNumber
	case SignedNumber:
		return isNumber && !dtype.IsUnsigned()
	case Float:
		return dtype.IsFloat()
	case FloatOrComplex:
		return dtype.IsFloat() || dtype.IsComplex()
	case Boolean:
		return dtype == dtypes.Bool || dtype.IsInt()
	}
	return false
}

func checkDType(opName string, constraint DTypeConstraint, operand shapes.Shape) error {
	if !operand.Ok() {
		return errors.Errorf("invalid shape %s for %q", operand, opName)
	}
	if !constraint.Accepts(operand.DType) {
		return errors.Errorf("%q requires a %s data type, got %s", opName, constraint, operand)
	}
	return nil
}

// BinaryOp returns the output shape of an element-wise binary operation.
//
// The data types must match and satisfy constraint. Shapes are broadcast: a scalar operand takes the shape of
// the other operand, and otherwise ranks must match, with each axis either equal or 1 on one side.
func BinaryOp(opName string, constraint DTypeConstraint, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if err = checkDType(opName, constraint, lhsShape); err != nil {
		return
	}
	if err = checkDType(opName, constraint, rhsShape); err != nil {
		return
	}
	if lhsShape.DType != rhsShape.DType {
		err = errors.Errorf("data types for %q must match, got %s and %s", opName, lhsShape, rhsShape)
		return
	}
	if lhsShape.IsScalar() {
		return rhsShape.Clone(), nil
	}
	if rhsShape.IsScalar() {
		return lhsShape.Clone(), nil
	}
	if lhsShape.Rank() != rhsShape.Rank() {
		err = errors.Errorf("if operands are not scalars, their rank must match for %q, got shapes %s and %s",
			opName, lhsShape, rhsShape)
		return
	}
	output = lhsShape.Clone()
	for axis := range output.Rank() {
		lhsDim, rhsDim := lhsShape.Dimensions[axis], rhsShape.Dimensions[axis]
		if lhsDim != 1 && rhsDim != 1 && lhsDim != rhsDim {
			err = errors.Errorf("dimension of axis #%d doesn't match and cannot be broadcast for %q, got shapes %s and %s",
				axis, opName, lhsShape, rhsShape)
			return
		}
		output.Dimensions[axis] = max(lhsDim, rhsDim)
	}
	return
}

// UnaryOp returns the output shape of an element-wise unary operation: the operand shape.
func UnaryOp(opName string, constraint DTypeConstraint, operand shapes.Shape) (output shapes.Shape, err error) {
	if err = checkDType(opName, constraint, operand); err != nil {
		return
	}
	return operand.Clone(), nil
}

// AdjustAxisToRank converts negative axes to a value starting from the end of the rank.
func AdjustAxisToRank(axis, rank int) (int, error) {
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return 0, errors.Errorf("axis %d is out of range for rank %d", axis, rank)
	}
	return axis, nil
}

// MatMul returns the shape of the matrix multiplication of lhs [..., m, k] and rhs [..., k, n]: [..., m, n].
// Batch dimensions (all but the last two) must be equal.
func MatMul(lhs, rhs shapes.Shape) (output shapes.Shape, err error) {
	if err = checkDType("matmul", Number, lhs); err != nil {
		return
	}
	if lhs.DType != rhs.DType {
		err = errors.Errorf("data types for matmul must match, got %s and %s", lhs, rhs)
		return
	}
	if lhs.Rank() < 2 || rhs.Rank() != lhs.Rank() {
		err = errors.Errorf("matmul requires operands of equal rank >= 2, got %s and %s", lhs, rhs)
		return
	}
	rank := lhs.Rank()
	if !slices.Equal(lhs.Dimensions[:rank-2], rhs.Dimensions[:rank-2]) {
		err = errors.Errorf("matmul batch dimensions must match, got %s and %s", lhs, rhs)
		return
	}
	if lhs.Dimensions[rank-1] != rhs.Dimensions[rank-2] {
		err = errors.Errorf("matmul contracting dimensions don't match: %s x %s", lhs, rhs)
		return
	}
	output = lhs.Clone()
	output.Dimensions[rank-1] = rhs.Dimensions[rank-1]
	return
}

// Transpose returns the shape of the operand with its axes permuted.
func Transpose(operand shapes.Shape, permutation []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	if len(permutation) != rank {
		err = errors.Errorf("permutation has %d axes, but operand %s has rank %d", len(permutation), operand, rank)
		return
	}
	used := make([]bool, rank)
	output = operand.Clone()
	for axis, srcAxis := range permutation {
		if srcAxis < 0 || srcAxis >= rank {
			err = errors.Errorf("invalid permutation axis %d for operand %s", srcAxis, operand)
			return
		}
		if used[srcAxis] {
			err = errors.Errorf("permutation %v uses axis %d more than once", permutation, srcAxis)
			return
		}
		used[srcAxis] = true
		output.Dimensions[axis] = operand.Dimensions[srcAxis]
	}
	return
}

// Reshape returns the operand shape with new dimensions, which must hold the same number of elements.
// At most one dimension can be -1, in which case it is inferred.
func Reshape(operand shapes.Shape, dimensions []int) (output shapes.Shape, err error) {
	output = shapes.Make(operand.DType, dimensions...)
	inferred := -1
	known := 1
	for axis, dim := range dimensions {
		if dim == -1 {
			if inferred >= 0 {
				err = errors.Errorf("reshape to %v: only one dimension can be inferred", dimensions)
				return
			}
			inferred = axis
			continue
		}
		if dim < 0 {
			err = errors.Errorf("reshape to %v: invalid dimension %d", dimensions, dim)
			return
		}
		known *= dim
	}
	if inferred >= 0 {
		if known == 0 || operand.Size()%known != 0 {
			err = errors.Errorf("cannot reshape %s to %v", operand, dimensions)
			return
		}
		output.Dimensions[inferred] = operand.Size() / known
	}
	if output.Size() != operand.Size() {
		err = errors.Errorf("cannot reshape %s (%d elements) to %v (%d elements)", operand, operand.Size(),
			dimensions, output.Size())
	}
	return
}

// Concatenate returns the shape of the concatenation of inputs along axis.
// All inputs must have the same data type, rank, and dimensions except on axis.
func Concatenate(inputs []shapes.Shape, axis int) (output shapes.Shape, err error) {
	if len(inputs) == 0 {
		err = errors.New("concatenate requires at least one input")
		return
	}
	first := inputs[0]
	if first.IsScalar() {
		err = errors.Errorf("cannot concatenate scalars (%s)", first)
		return
	}
	adjustedAxis, err := AdjustAxisToRank(axis, first.Rank())
	if err != nil {
		return
	}
	output = first.Clone()
	for i, input := range inputs[1:] {
		if input.DType != first.DType || input.Rank() != first.Rank() {
			err = errors.Errorf("concatenate input #%d %s doesn't match input #0 %s", i+1, input, first)
			return
		}
		for a := range input.Rank() {
			if a != adjustedAxis && input.Dimensions[a] != first.Dimensions[a] {
				err = errors.Errorf("concatenate input #%d %s doesn't match input #0 %s on axis %d", i+1, input, first, a)
				return
			}
		}
		output.Dimensions[adjustedAxis] += input.Dimensions[adjustedAxis]
	}
	return
}

// Reduce returns the shape of the operand with the given axes reduced (removed).
// No axes means reducing all of them, resulting in a scalar.
func Reduce(operand shapes.Shape, axes []int) (output shapes.Shape, err error) {
	if err = checkDType("reduce", Number, operand); err != nil {
		return
	}
	if len(axes) == 0 {
		return shapes.Make(operand.DType), nil
	}
	reduced := make([]bool, operand.Rank())
	for _, axis := range axes {
		adjusted, err := AdjustAxisToRank(axis, operand.Rank())
		if err != nil {
			return shapes.Invalid(), errors.WithMessagef(err, "reduce %s", operand)
		}
		reduced[adjusted] = true
	}
	output = shapes.Make(operand.DType)
	for axis, dim := range operand.Dimensions {
		if !reduced[axis] {
			output.Dimensions = append(output.Dimensions, dim)
		}
	}
	return
}

// Split returns the shapes of splitting operand in numOutputs equal parts along axis.
func Split(operand shapes.Shape, axis, numOutputs int) (outputs []shapes.Shape, err error) {
	adjustedAxis, err := AdjustAxisToRank(axis, operand.Rank())
	if err != nil {
		return nil, err
	}
	if numOutputs <= 0 || operand.Dimensions[adjustedAxis]%numOutputs != 0 {
		return nil, errors.Errorf("cannot split axis %d of %s in %d parts", axis, operand, numOutputs)
	}
	part := operand.Clone()
	part.Dimensions[adjustedAxis] /= numOutputs
	outputs = make([]shapes.Shape, numOutputs)
	for i := range outputs {
		outputs[i] = part.Clone()
	}
	return outputs, nil
}
