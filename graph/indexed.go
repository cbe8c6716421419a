package graph

import (
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// IndexedEntry references an output of a node by node id.
type IndexedEntry struct {
	NodeID int
	Index  int
}

// IndexedNode is a node of an IndexedGraph.
type IndexedNode struct {
	// Source is the graph node.
	Source *Node

	// Inputs of the node, by node id.
	Inputs []IndexedEntry

	// ControlDeps are the node ids of the control dependencies.
	ControlDeps []int
}

// IndexedGraph numbers the nodes of a graph in topological order: every node id is larger than the ids of its
// inputs and control dependencies.
//
// The numbering is deterministic: nodes are numbered in depth-first post-order, visiting the graph outputs in
// order, and for each node its inputs left-to-right followed by its control dependencies.
//
// Node outputs are also numbered with dense entry ids, see EntryID. Passes use entry ids to index the
// well-known per-entry attributes (types.ShapeMap, types.DTypeMap, ...).
type IndexedGraph struct {
	nodes      []IndexedNode
	nodeIDs    map[*Node]int
	nodeRowPtr []int
	inputNodes []int
	outputs    []IndexedEntry
}

// BuildIndexed builds the IndexedGraph of g.
//
// It returns an error wrapping types.ErrGraphCycleDetected if the nodes reachable from the outputs of g have a
// cycle.
func BuildIndexed(g *Graph) (*IndexedGraph, error) {
	idx := &IndexedGraph{nodeIDs: make(map[*Node]int)}
	err := DFSVisit(g.outputs, func(n *Node) error {
		nodeID := len(idx.nodes)
		inputs := make([]IndexedEntry, len(n.inputs))
		for i, input := range n.inputs {
			inputs[i] = IndexedEntry{NodeID: idx.nodeIDs[input.Node], Index: input.Index}
		}
		var controlDeps []int
		if len(n.controlDeps) > 0 {
			controlDeps = make([]int, len(n.controlDeps))
			for i, dep := range n.controlDeps {
				controlDeps[i] = idx.nodeIDs[dep]
			}
		}
		idx.nodes = append(idx.nodes, IndexedNode{Source: n, Inputs: inputs, ControlDeps: controlDeps})
		idx.nodeIDs[n] = nodeID
		if n.IsVariable() {
			idx.inputNodes = append(idx.inputNodes, nodeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	idx.nodeRowPtr = make([]int, len(idx.nodes)+1)
	for nodeID, node := range idx.nodes {
		numOutputs, err := node.Source.NumOutputs()
		if err != nil {
			return nil, errors.WithMessagef(err, "indexing node %q", node.Source.Name)
		}
		idx.nodeRowPtr[nodeID+1] = idx.nodeRowPtr[nodeID] + numOutputs
	}
	for _, node := range idx.nodes {
		for i, input := range node.Inputs {
			if err := idx.checkEntry(input); err != nil {
				return nil, errors.WithMessagef(err, "input #%d of node %q", i, node.Source.Name)
			}
		}
	}
	idx.outputs = make([]IndexedEntry, len(g.outputs))
	for i, output := range g.outputs {
		idx.outputs[i] = IndexedEntry{NodeID: idx.nodeIDs[output.Node], Index: output.Index}
		if err := idx.checkEntry(idx.outputs[i]); err != nil {
			return nil, errors.WithMessagef(err, "graph output #%d", i)
		}
	}
	return idx, nil
}

// checkEntry returns an error if e references an output its node doesn't have.
func (idx *IndexedGraph) checkEntry(e IndexedEntry) error {
	if numOutputs := idx.NumNodeOutputs(e.NodeID); e.Index < 0 || e.Index >= numOutputs {
		return errors.Errorf("references output %d of node %q, which has %d outputs",
			e.Index, idx.nodes[e.NodeID].Source.Name, numOutputs)
	}
	return nil
}

// NumNodes returns the number of nodes.
func (idx *IndexedGraph) NumNodes() int { return len(idx.nodes) }

// Node returns the node with the given id.
func (idx *IndexedGraph) Node(nodeID int) *IndexedNode { return &idx.nodes[nodeID] }

// NodeID returns the id of the node n. found is false if n is not reachable from the graph outputs.
func (idx *IndexedGraph) NodeID(n *Node) (nodeID int, found bool) {
	nodeID, found = idx.nodeIDs[n]
	return
}

// EntryID returns the dense id of the output index of node nodeID.
func (idx *IndexedGraph) EntryID(nodeID, index int) int {
	return idx.nodeRowPtr[nodeID] + index
}

// IndexedEntryID returns the dense id of the entry e.
func (idx *IndexedGraph) IndexedEntryID(e IndexedEntry) int {
	return idx.EntryID(e.NodeID, e.Index)
}

// NodeEntryID returns the dense id of the entry e. It returns an error wrapping types.ErrNotFound if e's node is
// not part of the graph.
func (idx *IndexedGraph) NodeEntryID(e NodeEntry) (int, error) {
	nodeID, found := idx.nodeIDs[e.Node]
	if !found {
		return 0, types.NotFoundf("entry %s is not part of the indexed graph", e)
	}
	if err := idx.checkEntry(IndexedEntry{NodeID: nodeID, Index: e.Index}); err != nil {
		return 0, errors.WithMessagef(err, "entry %s", e)
	}
	return idx.EntryID(nodeID, e.Index), nil
}

// NumNodeEntries returns the total number of node outputs.
func (idx *IndexedGraph) NumNodeEntries() int { return idx.nodeRowPtr[len(idx.nodes)] }

// NumNodeOutputs returns the number of outputs of the node nodeID.
func (idx *IndexedGraph) NumNodeOutputs(nodeID int) int {
	return idx.nodeRowPtr[nodeID+1] - idx.nodeRowPtr[nodeID]
}

// InputNodes returns the ids of the variable nodes, in ascending order.
func (idx *IndexedGraph) InputNodes() []int { return idx.inputNodes }

// Outputs returns the graph outputs as indexed entries.
func (idx *IndexedGraph) Outputs() []IndexedEntry { return idx.outputs }
