// Package graph holds the graph data model: Node, NodeEntry and Graph, plus IndexedGraph, the derived
// topologically ordered view of a Graph.
//
// Graphs and nodes carry attributes: string keys mapped to values of arbitrary type. Values are stored together
// with their type, and typed accessors (GetAttr, LookupAttr, GetNodeAttr, ...) check it: requesting an attribute
// with a different type returns an error wrapping types.ErrTypeMismatch rather than a converted value.
package graph

import (
	"reflect"
	"slices"

	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// Graph is the set of nodes reachable from its outputs, plus graph-level attributes.
//
// A Graph is meant to be used by one goroutine at a time. Distinct graphs can be processed concurrently as long
// as the nodes they share are not mutated.
type Graph struct {
	outputs []NodeEntry
	attrs   attrMap

	// indexed is the cached IndexedGraph, valid while indexedEpoch == structureEpoch.
	indexed      *IndexedGraph
	indexedEpoch uint64
}

// FromOutputs creates a graph with the given outputs.
//
// It doesn't validate the nodes: cycles are only detected when the IndexedGraph is built.
func FromOutputs(outputs ...NodeEntry) *Graph {
	return &Graph{
		outputs: slices.Clone(outputs),
		attrs:   make(attrMap),
	}
}

// Outputs returns a copy of the graph outputs.
func (g *Graph) Outputs() []NodeEntry { return slices.Clone(g.outputs) }

// NumOutputs returns the number of graph outputs.
func (g *Graph) NumOutputs() int { return len(g.outputs) }

// SetOutputs replaces the outputs of the graph. The cached IndexedGraph is dropped.
func (g *Graph) SetOutputs(outputs ...NodeEntry) {
	g.outputs = slices.Clone(outputs)
	g.Invalidate()
}

// Clone returns a new Graph with the same outputs and nodes, and a copy of the attribute map.
// Attribute values themselves are shared.
func (g *Graph) Clone() *Graph {
	return &Graph{
		outputs:      slices.Clone(g.outputs),
		attrs:        g.attrs.clone(),
		indexed:      g.indexed,
		indexedEpoch: g.indexedEpoch,
	}
}

// Indexed returns the IndexedGraph of g, building it if it was never built or if the structure of any node
// changed since it was.
//
// It returns an error wrapping types.ErrGraphCycleDetected if the graph has a cycle.
func (g *Graph) Indexed() (*IndexedGraph, error) {
	epoch := structureEpoch.Load()
	if g.indexed != nil && g.indexedEpoch == epoch {
		return g.indexed, nil
	}
	idx, err := BuildIndexed(g)
	if err != nil {
		return nil, err
	}
	g.indexed, g.indexedEpoch = idx, epoch
	return idx, nil
}

// Invalidate drops the cached IndexedGraph. Passes that change the graph structure call it.
func (g *Graph) Invalidate() {
	g.indexed = nil
}

// HasAttr returns whether the graph has the attribute key.
func (g *Graph) HasAttr(key string) bool {
	_, found := g.attrs[key]
	return found
}

// AttrType returns the type the attribute was stored with, or nil if it is not set.
func (g *Graph) AttrType(key string) reflect.Type {
	return g.attrs[key].typ
}

// AttrKeys returns the names of the graph attributes, sorted.
func (g *Graph) AttrKeys() []string { return g.attrs.keys() }

// DeleteAttr removes a graph attribute.
func (g *Graph) DeleteAttr(key string) { delete(g.attrs, key) }

// RawAttr returns a graph attribute without type checking.
func (g *Graph) RawAttr(key string) (value any, found bool) {
	boxed, found := g.attrs[key]
	if !found {
		return nil, false
	}
	return boxed.value, true
}

// SetRawAttr sets a graph attribute tagged with the dynamic type of value.
func (g *Graph) SetRawAttr(key string, value any) {
	if g.attrs == nil {
		g.attrs = make(attrMap)
	}
	setDynamic(g.attrs, key, value)
}

// MoveAttr renames a graph attribute, keeping its value and type.
func (g *Graph) MoveAttr(from, to string) error {
	boxed, found := g.attrs[from]
	if !found {
		return types.NotFoundf("graph attribute %q", from)
	}
	delete(g.attrs, from)
	g.attrs[to] = boxed
	return nil
}

// SetAttr sets the graph attribute key, tagged with type T. It replaces any previous value, whatever its type.
func SetAttr[T any](g *Graph, key string, value T) {
	if g.attrs == nil {
		g.attrs = make(attrMap)
	}
	setTyped(g.attrs, key, value)
}

// LookupAttr returns the graph attribute key. found is false if the graph doesn't have it.
// It returns an error wrapping types.ErrTypeMismatch if the attribute was stored with a type other than T.
func LookupAttr[T any](g *Graph, key string) (value T, found bool, err error) {
	value, found, err = lookupTyped[T](g.attrs, key)
	if err != nil {
		err = errors.WithMessage(err, "graph attribute")
	}
	return
}

// GetAttr is like LookupAttr, but a missing attribute is an error wrapping types.ErrNotFound.
func GetAttr[T any](g *Graph, key string) (T, error) {
	value, found, err := LookupAttr[T](g, key)
	if err == nil && !found {
		err = types.NotFoundf("graph attribute %q", key)
	}
	return value, err
}
