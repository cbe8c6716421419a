package passes

import (
	"fmt"
	"strings"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/internal/utils"
	"github.com/gomlx/graphir/types"
)

// PrintGraphIR renders the graph as text into the types.AttrGraphIR graph attribute (a string).
//
// One line per node, in IndexedGraph order:
//
//	#2 add = add(#0:0, #1:0) -> (Float32)[2 3] @0
//
// where "-> shape" is present if the graph has the types.AttrShape attribute and "@storage" if it has
// types.AttrStorageID. The last line lists the graph outputs.
func PrintGraphIR(g *graph.Graph) (*graph.Graph, error) {
	idx, err := g.Indexed()
	if err != nil {
		return nil, err
	}
	shapeMap, _, err := graph.LookupAttr[types.ShapeMap](g, types.AttrShape)
	if err != nil {
		return nil, err
	}
	storage, _, err := graph.LookupAttr[types.StorageMap](g, types.AttrStorageID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	w := func(format string, args ...any) {
		_, _ = fmt.Fprintf(&sb, format, args...)
	}
	writeEntries := func(entries []graph.IndexedEntry) {
		for i, e := range entries {
			if i > 0 {
				w(", ")
			}
			w("#%d:%d", e.NodeID, e.Index)
		}
	}
	for nodeID := range idx.NumNodes() {
		node := idx.Node(nodeID)
		n := node.Source
		w("#%d %s = ", nodeID, utils.NormalizeIdentifier(n.Name))
		if n.IsVariable() {
			w("variable()")
		} else {
			w("%s(", n.Op.Name())
			writeEntries(node.Inputs)
			w(")")
		}
		writeNodeAttrs(w, n)
		if len(node.ControlDeps) > 0 {
			w(" after %v", node.ControlDeps)
		}
		for i := range idx.NumNodeOutputs(nodeID) {
			entryID := idx.EntryID(nodeID, i)
			sep := ","
			if i == 0 {
				sep = " ->"
			}
			if entryID < len(shapeMap) {
				w("%s %s", sep, shapeMap[entryID])
			}
			if entryID < len(storage) && storage[entryID] >= 0 {
				w(" @%d", storage[entryID])
			}
		}
		w("\n")
	}
	w("outputs: ")
	writeEntries(idx.Outputs())
	w("\n")
	graph.SetAttr(g, types.AttrGraphIR, sb.String())
	return g, nil
}

// writeNodeAttrs writes the node attributes, except the internal ones (prefixed with "__"), as {key=value, ...}.
func writeNodeAttrs(w func(format string, args ...any), n *graph.Node) {
	var count int
	for _, key := range n.AttrKeys() {
		if strings.HasPrefix(key, "__") {
			continue
		}
		value, _ := n.RawAttr(key)
		if count == 0 {
			w("{")
		} else {
			w(", ")
		}
		w("%s=%v", key, value)
		count++
	}
	if count > 0 {
		w("}")
	}
}
