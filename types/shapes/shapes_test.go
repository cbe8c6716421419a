package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	assert.False(t, invalidShape.Ok())
	assert.Equal(t, "(Invalid)", invalidShape.String())

	shape0 := Make(dtypes.Float64)
	assert.True(t, shape0.Ok())
	assert.True(t, shape0.IsScalar())
	assert.Equal(t, 0, shape0.Rank())
	assert.Equal(t, 1, shape0.Size())
	assert.Equal(t, int64(8), shape0.Memory())

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	assert.True(t, shape1.Ok())
	assert.False(t, shape1.IsScalar())
	assert.Equal(t, 3, shape1.Rank())
	assert.Equal(t, 4*3*2, shape1.Size())
	assert.Equal(t, int64(4*4*3*2), shape1.Memory())
	assert.Equal(t, 2, shape1.Dim(-1))
	assert.Equal(t, "(Float32)[4 3 2]", shape1.String())

	assert.False(t, Make(dtypes.Float32, 2, -1).Ok())
}

func TestShape_CloneAndEqual(t *testing.T) {
	dims := []int{2, 3}
	s := Make(dtypes.Int32, dims...)
	dims[0] = 7
	assert.Equal(t, []int{2, 3}, s.Dimensions, "Make must copy its dimensions")

	c := s.Clone()
	c.Dimensions[1] = 5
	assert.Equal(t, 3, s.Dimensions[1])
	assert.False(t, s.Equal(c))
	assert.True(t, s.Equal(Make(dtypes.Int32, 2, 3)))
	assert.False(t, s.Equal(Make(dtypes.Int64, 2, 3)))
	assert.True(t, s.EqualDimensions(Make(dtypes.Int64, 2, 3)))
}

func TestFromAnyValue(t *testing.T) {
	shape, err := FromAnyValue([][]float64{{0, 0}})
	require.NoError(t, err)
	assert.True(t, shape.Equal(Make(dtypes.Float64, 1, 2)))

	shape, err = FromAnyValue(int32(3))
	require.NoError(t, err)
	assert.True(t, shape.Equal(Make(dtypes.Int32)))

	_, err = FromAnyValue([][]float32{{1, 2}, {3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "irregular")

	_, err = FromAnyValue([]float32{})
	require.Error(t, err)

	_, err = FromAnyValue(nil)
	require.Error(t, err)

	// As decoded from YAML or JSON.
	shape, err = FromAnyValue([]any{[]any{1, 2, 3}, []any{4, 5, 6}})
	require.NoError(t, err)
	assert.True(t, shape.Equal(Make(dtypes.Int64, 2, 3)))
	_, err = FromAnyValue([]any{nil})
	require.Error(t, err)

	_, err = FromAnyValue("text")
	require.Error(t, err)
}
