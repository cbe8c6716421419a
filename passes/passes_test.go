package passes

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/pass"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/graphir/ops"
)

var f32 = func(dims ...int) shapes.Shape { return shapes.Make(dtypes.Float32, dims...) }

func variable(name string, shape shapes.Shape) *graph.Node {
	v := graph.NewVariable(name)
	graph.SetNodeAttr(v, types.NodeAttrShape, shape)
	return v
}

func node(opName, name string, inputs ...*graph.Node) *graph.Node {
	entries := make([]graph.NodeEntry, len(inputs))
	for i, input := range inputs {
		entries[i] = input.Output(0)
	}
	return graph.NewNode(op.MustGet(opName), name, entries...)
}

func TestInferShape(t *testing.T) {
	x1, x2 := variable("x1", f32(2, 3)), variable("x2", f32(1, 3))
	sum := node("add", "add", x1, x2)
	y := node("exp", "exp", sum)
	g := graph.FromOutputs(y.Output(0))

	out := must.M1(pass.Apply(g, InferShapeName))
	shapeMap := must.M1(graph.GetAttr[types.ShapeMap](out, types.AttrShape))
	require.Len(t, shapeMap, 4)
	assert.True(t, f32(1, 3).Equal(shapeMap[1]))
	assert.True(t, f32(2, 3).Equal(shapeMap[3]))
	dtypeMap := must.M1(graph.GetAttr[types.DTypeMap](out, types.AttrDType))
	assert.Equal(t, types.DTypeMap{dtypes.Float32, dtypes.Float32, dtypes.Float32, dtypes.Float32}, dtypeMap)
}

func TestInferShape_Errors(t *testing.T) {
	// Shapes from the graph attribute.
	x := graph.NewVariable("x")
	split := node("split", "split", x)
	split.SetRawAttr("num_outputs", 2)
	g := graph.FromOutputs(split.Output(1))
	_, err := pass.Apply(g, InferShapeName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `shape of variable "x" unknown`)

	graph.SetAttr(g, types.AttrShapeInputs, map[string]shapes.Shape{"x": f32(4, 2)})
	out := must.M1(pass.Apply(g, InferShapeName))
	shapeMap := must.M1(graph.GetAttr[types.ShapeMap](out, types.AttrShape))
	require.Len(t, shapeMap, 3)
	assert.True(t, f32(2, 2).Equal(shapeMap[2]))

	// Incompatible shapes.
	a, b := variable("a", f32(2, 3)), variable("b", f32(3, 2))
	_, err = pass.Apply(graph.FromOutputs(node("add", "bad", a, b).Output(0)), InferShapeName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "bad"`)

	// Wrong arity.
	_, err = pass.Apply(graph.FromOutputs(node("add", "unary_add", a).Output(0)), InferShapeName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 2 inputs")

	// Operator without shape inference.
	r := op.Default()
	custom := r.Register("passes_test_custom")
	_, err = pass.Apply(graph.FromOutputs(graph.NewNode(custom, "c", a.Output(0)).Output(0)), InferShapeName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), types.OpAttrInferShape)
}

func TestPlanMemory(t *testing.T) {
	t.Run("in-place chain", func(t *testing.T) {
		x1, x2 := variable("x1", f32(2, 3)), variable("x2", f32(2, 3))
		y := node("exp", "exp", node("add", "add", x1, x2))
		out := must.M1(pass.Apply(graph.FromOutputs(y.Output(0)), InferShapeName, PlanMemoryName))
		storage := must.M1(graph.GetAttr[types.StorageMap](out, types.AttrStorageID))
		assert.Equal(t, types.StorageMap{StorageExternal, StorageExternal, 0, 0}, storage)
		assert.Equal(t, []int64{24}, must.M1(graph.GetAttr[[]int64](out, types.AttrStoragePoolSize)))
	})

	t.Run("reuse after last use", func(t *testing.T) {
		x, w := variable("x", f32(2, 3)), variable("w", f32(3, 3))
		m1 := node("matmul", "m1", x, w)
		m2 := node("matmul", "m2", m1, w)
		m3 := node("matmul", "m3", m2, w)
		out := must.M1(pass.Apply(graph.FromOutputs(m3.Output(0)), InferShapeName, PlanMemoryName))
		storage := must.M1(graph.GetAttr[types.StorageMap](out, types.AttrStorageID))
		assert.Equal(t, types.StorageMap{StorageExternal, StorageExternal, 0, 1, 0}, storage)
		assert.Equal(t, []int64{24, 24}, must.M1(graph.GetAttr[[]int64](out, types.AttrStoragePoolSize)))
	})

	t.Run("graph outputs are kept", func(t *testing.T) {
		x := variable("x", f32(4))
		a := node("exp", "a", x)
		y := node("exp", "y", a)
		out := must.M1(pass.Apply(graph.FromOutputs(y.Output(0), a.Output(0)), InferShapeName, PlanMemoryName))
		storage := must.M1(graph.GetAttr[types.StorageMap](out, types.AttrStorageID))
		assert.Equal(t, types.StorageMap{StorageExternal, 0, 1}, storage)
	})

	t.Run("invalid output index", func(t *testing.T) {
		x := variable("x", f32(4))
		a := node("exp", "a", x)
		_, err := pass.Apply(graph.FromOutputs(a.Output(3)), InferShapeName, PlanMemoryName)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "references output 3")
	})

	t.Run("requires shapes", func(t *testing.T) {
		x := variable("x", f32(4))
		_, err := pass.Apply(graph.FromOutputs(node("exp", "a", x).Output(0)), PlanMemoryName)
		var missing *types.MissingDependencyError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, PlanMemoryName, missing.Pass)
		assert.Equal(t, types.AttrShape, missing.Attr)
	})
}

func TestPrintGraphIR(t *testing.T) {
	x1, x2 := variable("x1", f32(2, 3)), variable("x.2", f32(2, 3))
	sum := node("add", "add", x1, x2)
	y := node("reduce_sum", "sum", sum)
	y.SetRawAttr("axes", []int{1})
	g := graph.FromOutputs(y.Output(0))

	out := must.M1(pass.Apply(g, PrintGraphIRName))
	ir := must.M1(graph.GetAttr[string](out, types.AttrGraphIR))
	assert.Equal(t, `#0 x1 = variable()
#1 x_2 = variable()
#2 add = add(#0:0, #1:0)
#3 sum = reduce_sum(#2:0){axes=[1]}
outputs: #3:0
`, ir)

	// Planned: PrintGraphIR doesn't depend on the others, so it keeps its place.
	order := must.M1(pass.Default().Plan(g, PrintGraphIRName, PlanMemoryName, InferShapeName))
	assert.Equal(t, []string{PrintGraphIRName, InferShapeName, PlanMemoryName}, order)

	out = must.M1(pass.Apply(g, InferShapeName, PlanMemoryName, PrintGraphIRName))
	ir = must.M1(graph.GetAttr[string](out, types.AttrGraphIR))
	assert.Contains(t, ir, fmt.Sprintf("#2 add = add(#0:0, #1:0) -> %s @0\n", f32(2, 3)))
	assert.Contains(t, ir, fmt.Sprintf("#3 sum = reduce_sum(#2:0){axes=[1]} -> %s @1\n", f32(2)))
	assert.Contains(t, ir, fmt.Sprintf("#0 x1 = variable() -> %s\n", f32(2, 3)))
}

func TestRegisterAll(t *testing.T) {
	m := pass.NewManager(op.NewRegistry())
	RegisterAll(m)
	assert.Equal(t, []string{InferShapeName, PlanMemoryName, PrintGraphIRName}, m.List())

	// A registry without the standard operators lacks FInferShape.
	_, err := m.Run(graph.FromOutputs(), InferShapeName)
	assert.ErrorIs(t, err, types.ErrMissingDependency)
}
