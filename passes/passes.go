// Package passes implements standard graph passes on top of the core: shape inference, memory planning and a
// human-readable dump of the graph.
//
// They are registered into pass.Default() when the package is imported, and can be registered into other
// managers with RegisterAll.
package passes

import (
	"github.com/gomlx/graphir/pass"
	"github.com/gomlx/graphir/types"
	"github.com/janpfeifer/must"
)

// Names of the passes in this package.
const (
	InferShapeName   = "InferShape"
	PlanMemoryName   = "PlanMemory"
	PrintGraphIRName = "PrintGraphIR"
)

func init() {
	RegisterAll(pass.Default())
}

// RegisterAll registers the passes of this package into m.
func RegisterAll(m *pass.Manager) {
	must.M(m.Register(&pass.Pass{
		Name:        InferShapeName,
		Description: "Infers the shape and dtype of every node output from the shapes of the variables.",
		Func:        InferShape,
		Requires:    []string{types.OpAttrInferShape},
		Provides:    []string{types.AttrShape, types.AttrDType},
	}))
	must.M(m.Register(&pass.Pass{
		Name:        PlanMemoryName,
		Description: "Assigns storage ids to node outputs, reusing storage no longer needed and sharing it in-place.",
		Func:        PlanMemory,
		Requires:    []string{types.AttrShape, types.AttrDType, types.OpAttrInplaceOption},
		Provides:    []string{types.AttrStorageID, types.AttrStoragePoolSize},
	}))
	must.M(m.Register(&pass.Pass{
		Name:        PrintGraphIRName,
		Description: "Renders the graph, with shapes and storage when available, as text.",
		Func:        PrintGraphIR,
		Provides:    []string{types.AttrGraphIR},
	}))
}
