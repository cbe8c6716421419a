package passes

import (
	"slices"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/ops"
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// StorageExternal is the storage id of variables: their memory is owned by the caller.
const StorageExternal = -1

// memoryPool tracks the storage blocks allocated so far and which are free.
type memoryPool struct {
	sizes []int64
	live  []int // number of live entries using each storage id
	free  []int // storage ids with no live entries
}

// alloc returns the smallest free storage that fits size, or a new one.
func (p *memoryPool) alloc(size int64) int {
	best := -1
	for i, sid := range p.free {
		if p.sizes[sid] >= size && (best == -1 || p.sizes[sid] < p.sizes[p.free[best]]) {
			best = i
		}
	}
	if best >= 0 {
		sid := p.free[best]
		p.free = slices.Delete(p.free, best, best+1)
		p.live[sid] = 1
		return sid
	}
	p.sizes = append(p.sizes, size)
	p.live = append(p.live, 1)
	return len(p.sizes) - 1
}

// release drops one live reference to sid, freeing it when none is left.
func (p *memoryPool) release(sid int) {
	p.live[sid]--
	if p.live[sid] == 0 {
		p.free = append(p.free, sid)
	}
}

// PlanMemory assigns a storage id to every entry of the graph, in topological order, reusing storage of entries
// no longer needed, and sharing the storage of an input with an output when the operator allows it
// (types.OpAttrInplaceOption) and the input has no other consumer.
//
// Variables get StorageExternal. Graph outputs keep their storage until the end.
// It sets the graph attributes types.AttrStorageID (types.StorageMap) and types.AttrStoragePoolSize ([]int64).
func PlanMemory(g *graph.Graph) (*graph.Graph, error) {
	idx, err := g.Indexed()
	if err != nil {
		return nil, err
	}
	shapeMap, err := graph.GetAttr[types.ShapeMap](g, types.AttrShape)
	if err != nil {
		return nil, err
	}
	if len(shapeMap) != idx.NumNodeEntries() {
		return nil, errors.Errorf("graph attribute %q has %d entries, but the graph has %d: was the graph changed after InferShape?",
			types.AttrShape, len(shapeMap), idx.NumNodeEntries())
	}
	refCount := make([]int, idx.NumNodeEntries())
	for nodeID := range idx.NumNodes() {
		for _, input := range idx.Node(nodeID).Inputs {
			refCount[idx.IndexedEntryID(input)]++
		}
	}
	for _, output := range idx.Outputs() {
		refCount[idx.IndexedEntryID(output)]++
	}

	storage := make(types.StorageMap, idx.NumNodeEntries())
	pool := &memoryPool{}
	for nodeID := range idx.NumNodes() {
		node := idx.Node(nodeID)
		if node.Source.IsVariable() {
			storage[idx.EntryID(nodeID, 0)] = StorageExternal
			continue
		}
		inplace, _, err := op.GetAttr[ops.InplaceOption](node.Source.Op, types.OpAttrInplaceOption)
		if err != nil {
			return nil, err
		}
		taken := make([]bool, len(node.Inputs))
		for i := range idx.NumNodeOutputs(nodeID) {
			entryID := idx.EntryID(nodeID, i)
			size := shapeMap[entryID].Memory()
			sid := StorageExternal
			for _, pair := range inplace {
				inputIdx, outputIdx := pair[0], pair[1]
				if outputIdx != i || inputIdx >= len(node.Inputs) || taken[inputIdx] {
					continue
				}
				inputEntry := idx.IndexedEntryID(node.Inputs[inputIdx])
				inputSID := storage[inputEntry]
				if inputSID >= 0 && refCount[inputEntry] == 1 && pool.live[inputSID] == 1 && pool.sizes[inputSID] >= size {
					sid = inputSID
					taken[inputIdx] = true
					pool.live[sid]++
					klog.V(2).Infof("PlanMemory: %s output %d shares storage %d with input %d",
						node.Source.Name, i, sid, inputIdx)
					break
				}
			}
			if sid == StorageExternal {
				sid = pool.alloc(size)
			}
			storage[entryID] = sid
		}
		for _, input := range node.Inputs {
			entryID := idx.IndexedEntryID(input)
			refCount[entryID]--
			if refCount[entryID] == 0 && storage[entryID] >= 0 {
				pool.release(storage[entryID])
			}
		}
		// Outputs nobody reads are released right away.
		for i := range idx.NumNodeOutputs(nodeID) {
			entryID := idx.EntryID(nodeID, i)
			if refCount[entryID] == 0 {
				pool.release(storage[entryID])
			}
		}
	}
	graph.SetAttr(g, types.AttrStorageID, storage)
	graph.SetAttr(g, types.AttrStoragePoolSize, pool.sizes)
	return g, nil
}
