package shapeinference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	Bool = dtypes.Bool
	I8   = dtypes.Int8
	I32  = dtypes.Int32
	F32  = dtypes.Float32
	U64  = dtypes.Uint64

	S = shapes.Make
)

func TestBinaryOp(t *testing.T) {
	// Invalid data types.
	_, err := BinaryOp("and", Boolean, S(F32), S(F32))
	assert.Error(t, err)
	_, err = BinaryOp("mul", Number, S(Bool, 1), S(Bool, 1))
	assert.Error(t, err)
	_, err = BinaryOp("add", Number, S(F32), S(I32))
	assert.Error(t, err)
	_, err = BinaryOp("add", Number, shapes.Invalid(), S(F32))
	assert.Error(t, err)

	intMatrix := S(I8, 3, 3)
	output := must.M1(BinaryOp("or", Boolean, intMatrix, intMatrix))
	assert.True(t, intMatrix.Equal(output))

	// Scalars broadcast.
	output = must.M1(BinaryOp("add", Number, S(F32), S(F32, 2, 3)))
	assert.True(t, S(F32, 2, 3).Equal(output))
	output = must.M1(BinaryOp("add", Number, S(F32, 2, 3), S(F32)))
	assert.True(t, S(F32, 2, 3).Equal(output))

	// Axes of dimension 1 broadcast.
	output = must.M1(BinaryOp("add", Number, S(F32, 2, 1), S(F32, 1, 3)))
	assert.True(t, S(F32, 2, 3).Equal(output), "got %s", output)

	_, err = BinaryOp("add", Number, S(F32, 2, 3), S(F32, 3, 2))
	assert.Error(t, err)
	_, err = BinaryOp("add", Number, S(F32, 2, 3), S(F32, 6))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank must match")
}

func TestUnaryOp(t *testing.T) {
	output := must.M1(UnaryOp("exp", FloatOrComplex, S(F32, 4)))
	assert.True(t, S(F32, 4).Equal(output))
	_, err := UnaryOp("exp", FloatOrComplex, S(I32, 4))
	assert.Error(t, err)
	_, err = UnaryOp("negate", SignedNumber, S(U64))
	assert.Error(t, err)
	_, err = UnaryOp("tanh", Float, S(dtypes.Complex64))
	assert.Error(t, err)
	_ = must.M1(UnaryOp("identity", AnyDType, S(Bool, 2)))
	assert.Equal(t, "float or complex", FloatOrComplex.String())
}

func TestMatMul(t *testing.T) {
	output := must.M1(MatMul(S(F32, 2, 3), S(F32, 3, 5)))
	assert.True(t, S(F32, 2, 5).Equal(output))
	output = must.M1(MatMul(S(F32, 7, 2, 3), S(F32, 7, 3, 5)))
	assert.True(t, S(F32, 7, 2, 5).Equal(output))

	_, err := MatMul(S(F32, 2, 3), S(F32, 4, 5))
	assert.Error(t, err)
	_, err = MatMul(S(F32, 3), S(F32, 3))
	assert.Error(t, err)
	_, err = MatMul(S(F32, 1, 2, 3), S(F32, 2, 3, 5))
	assert.Error(t, err)
	_, err = MatMul(S(F32, 2, 3), S(I32, 3, 5))
	assert.Error(t, err)
}

func TestTransposeAndReshape(t *testing.T) {
	output := must.M1(Transpose(S(F32, 2, 3, 4), []int{2, 0, 1}))
	assert.True(t, S(F32, 4, 2, 3).Equal(output))
	_, err := Transpose(S(F32, 2, 3), []int{0, 0})
	assert.Error(t, err)
	_, err = Transpose(S(F32, 2, 3), []int{0})
	assert.Error(t, err)

	output = must.M1(Reshape(S(F32, 2, 3, 4), []int{6, -1}))
	assert.True(t, S(F32, 6, 4).Equal(output))
	_, err = Reshape(S(F32, 2, 3), []int{4, 2})
	assert.Error(t, err)
	_, err = Reshape(S(F32, 2, 3), []int{-1, -1})
	assert.Error(t, err)
	_, err = Reshape(S(F32, 2, 3), []int{4, -1})
	assert.Error(t, err)
}

func TestConcatenateReduceSplit(t *testing.T) {
	output := must.M1(Concatenate([]shapes.Shape{S(F32, 2, 3), S(F32, 2, 5)}, -1))
	assert.True(t, S(F32, 2, 8).Equal(output))
	_, err := Concatenate([]shapes.Shape{S(F32, 2, 3), S(F32, 3, 3)}, 1)
	assert.Error(t, err)
	_, err = Concatenate(nil, 0)
	assert.Error(t, err)

	output = must.M1(Reduce(S(F32, 2, 3, 4), []int{0, -1}))
	assert.True(t, S(F32, 3).Equal(output))
	output = must.M1(Reduce(S(F32, 2, 3), nil))
	assert.True(t, output.IsScalar())
	_, err = Reduce(S(F32, 2, 3), []int{2})
	assert.Error(t, err)

	parts := must.M1(Split(S(F32, 6, 2), 0, 3))
	require.Len(t, parts, 3)
	assert.True(t, S(F32, 2, 2).Equal(parts[2]))
	_, err = Split(S(F32, 5, 2), 0, 3)
	assert.Error(t, err)
}
