// Package types holds the vocabulary shared by the operator registry, the graph and the passes:
// error kinds and the well-known attribute names and value types that passes produce for downstream consumers.
package types

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/types/shapes"
)

// Well-known graph attribute names.
//
// These are conventions between passes and runtimes; the core does not interpret them.
const (
	// AttrShape holds a ShapeMap.
	AttrShape = "shape"

	// AttrDType holds a DTypeMap.
	AttrDType = "dtype"

	// AttrShapeInputs holds a map[string]shapes.Shape with the shapes of the variables, by name.
	AttrShapeInputs = "shape_inputs"

	// AttrStorageID holds a StorageMap.
	AttrStorageID = "storage_id"

	// AttrStoragePoolSize holds a []int64 with the size in bytes of each storage id.
	AttrStoragePoolSize = "storage_pool_size"

	// AttrGraphIR holds a human-readable dump (string) of the graph.
	AttrGraphIR = "graph_ir"
)

// Well-known operator attribute names.
const (
	// OpAttrInferShape holds the shape inference function of an operator.
	OpAttrInferShape = "FInferShape"

	// OpAttrInplaceOption holds [][2]int pairs of (input, output) indices that may share storage.
	OpAttrInplaceOption = "FInplaceOption"

	// OpAttrIsElementwise holds a bool, true for element-wise operators.
	OpAttrIsElementwise = "TIsElementwise"
)

// NodeAttrShape is the node attribute holding the shapes.Shape of a variable node.
const NodeAttrShape = "__shape__"

// ShapeMap maps an IndexedGraph entry id to the shape of that entry.
type ShapeMap []shapes.Shape

// DTypeMap maps an IndexedGraph entry id to its data type.
type DTypeMap []dtypes.DType

// StorageMap maps an IndexedGraph entry id to a storage id. Negative values mean no storage was assigned.
type StorageMap []int
