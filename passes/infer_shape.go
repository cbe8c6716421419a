package passes

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// variableShape returns the shape of a variable: its types.NodeAttrShape attribute, or its entry in the
// types.AttrShapeInputs graph attribute.
func variableShape(g *graph.Graph, n *graph.Node) (shapes.Shape, error) {
	shape, found, err := graph.LookupNodeAttr[shapes.Shape](n, types.NodeAttrShape)
	if err != nil || found {
		return shape, err
	}
	inputs, found, err := graph.LookupAttr[map[string]shapes.Shape](g, types.AttrShapeInputs)
	if err != nil {
		return shape, err
	}
	if found {
		if shape, found = inputs[n.Name]; found {
			return shape, nil
		}
	}
	return shapes.Invalid(), errors.Errorf("shape of variable %q unknown: set its %q attribute or add it to graph attribute %q",
		n.Name, types.NodeAttrShape, types.AttrShapeInputs)
}

// InferShape sets the types.AttrShape (types.ShapeMap) and types.AttrDType (types.DTypeMap) graph attributes,
// indexed by entry id of the IndexedGraph.
//
// Operators must have the types.OpAttrInferShape attribute (an ops.InferShapeFunc).
func InferShape(g *graph.Graph) (*graph.Graph, error) {
	idx, err := g.Indexed()
	if err != nil {
		return nil, err
	}
	shapeMap := make(types.ShapeMap, idx.NumNodeEntries())
	inputShapes := make([]shapes.Shape, 0, 4)
	for nodeID := range idx.NumNodes() {
		node := idx.Node(nodeID)
		n := node.Source
		if n.IsVariable() {
			shape, err := variableShape(g, n)
			if err != nil {
				return nil, err
			}
			shapeMap[idx.EntryID(nodeID, 0)] = shape
			continue
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		fn, found, err := op.GetAttr[ops.InferShapeFunc](n.Op, types.OpAttrInferShape)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.Errorf("node %q: operator %q has no %q attribute", n.Name, n.Op.Name(), types.OpAttrInferShape)
		}
		inputShapes = inputShapes[:0]
		for _, input := range node.Inputs {
			inputShapes = append(inputShapes, shapeMap[idx.IndexedEntryID(input)])
		}
		outputs, err := fn(n, inputShapes)
		if err != nil {
			return nil, errors.WithMessagef(err, "inferring shape of node %q (%s)", n.Name, n.Op.Name())
		}
		if len(outputs) != idx.NumNodeOutputs(nodeID) {
			return nil, errors.Errorf("node %q: shape inference returned %d shapes for %d outputs",
				n.Name, len(outputs), idx.NumNodeOutputs(nodeID))
		}
		for i, shape := range outputs {
			shapeMap[idx.EntryID(nodeID, i)] = shape
		}
	}

	dtypeMap := make(types.DTypeMap, len(shapeMap))
	for entryID, shape := range shapeMap {
		dtypeMap[entryID] = shape.DType
		if shape.DType == dtypes.InvalidDType {
			klog.Warningf("InferShape: entry %d has an invalid dtype", entryID)
		}
	}
	graph.SetAttr(g, types.AttrShape, shapeMap)
	graph.SetAttr(g, types.AttrDType, dtypeMap)
	return g, nil
}
