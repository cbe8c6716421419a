package graph

import (
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// structureEpoch is incremented on every change to the edges or attributes of any Node: attributes can change
// the number of outputs of variable arity operators.
// A cached IndexedGraph built at an older epoch is rebuilt before use.
var structureEpoch atomic.Uint64

// NodeEntry references one output of a Node: it is the edge of the graph.
type NodeEntry struct {
	Node  *Node
	Index int
}

// String implements fmt.Stringer, e.g. "add:0".
func (e NodeEntry) String() string {
	if e.Node == nil {
		return fmt.Sprintf("<nil>:%d", e.Index)
	}
	return fmt.Sprintf("%s:%d", e.Node.Name, e.Index)
}

// Node is an instance of an operator in a graph, or a variable (a leaf without operator) if Op is nil.
//
// Nodes are shared: the same node can be referenced by many NodeEntry values, in one or more graphs.
// A Node is not safe for concurrent mutation.
type Node struct {
	// Op is the operator, nil for variables.
	Op *op.Op

	// Name of the node, used for diagnostics.
	Name string

	inputs      []NodeEntry
	controlDeps []*Node
	attrs       attrMap
}

// NewNode creates a node of the operator o with the given inputs.
func NewNode(o *op.Op, name string, inputs ...NodeEntry) *Node {
	return &Node{
		Op:     o,
		Name:   name,
		inputs: slices.Clone(inputs),
		attrs:  make(attrMap),
	}
}

// NewVariable creates a variable node: a leaf, without operator or inputs, with one output.
func NewVariable(name string) *Node {
	return &Node{Name: name, attrs: make(attrMap)}
}

// IsVariable returns whether the node has no operator.
func (n *Node) IsVariable() bool { return n.Op == nil }

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n.IsVariable() {
		return fmt.Sprintf("Variable(%s)", n.Name)
	}
	return fmt.Sprintf("%s(%s)", n.Op.Name(), n.Name)
}

// Output returns the entry of the i-th output of the node.
func (n *Node) Output(i int) NodeEntry {
	return NodeEntry{Node: n, Index: i}
}

// Inputs returns a copy of the node inputs.
func (n *Node) Inputs() []NodeEntry { return slices.Clone(n.inputs) }

// Input returns the i-th input.
func (n *Node) Input(i int) NodeEntry { return n.inputs[i] }

// NumInputs returns the number of inputs connected to the node.
func (n *Node) NumInputs() int { return len(n.inputs) }

// SetInputs replaces all the inputs of the node.
func (n *Node) SetInputs(inputs ...NodeEntry) {
	n.inputs = slices.Clone(inputs)
	structureEpoch.Add(1)
}

// ReplaceInput replaces the i-th input of the node.
func (n *Node) ReplaceInput(i int, entry NodeEntry) error {
	if i < 0 || i >= len(n.inputs) {
		return errors.Errorf("node %q has %d inputs, cannot replace input #%d", n.Name, len(n.inputs), i)
	}
	n.inputs[i] = entry
	structureEpoch.Add(1)
	return nil
}

// AddControlDeps adds nodes that must be ordered before this one, without data flowing between them.
func (n *Node) AddControlDeps(deps ...*Node) {
	n.controlDeps = append(n.controlDeps, deps...)
	structureEpoch.Add(1)
}

// ControlDeps returns a copy of the control dependencies.
func (n *Node) ControlDeps() []*Node { return slices.Clone(n.controlDeps) }

// NumOutputs returns the number of outputs of the node, resolving variable arity operators with the node
// attributes. Variables have one output.
func (n *Node) NumOutputs() (int, error) {
	if n.IsVariable() {
		return 1, nil
	}
	return n.Op.ResolveNumOutputs(n)
}

// Validate checks the number of inputs against the operator and that every input references an existing output.
func (n *Node) Validate() error {
	if n.IsVariable() {
		if len(n.inputs) > 0 {
			return errors.Errorf("variable %q cannot have inputs, got %d", n.Name, len(n.inputs))
		}
		return nil
	}
	numInputs, err := n.Op.ResolveNumInputs(n)
	if err != nil {
		return errors.WithMessagef(err, "node %q", n.Name)
	}
	if numInputs != len(n.inputs) {
		return errors.Errorf("node %q: operator %q takes %d inputs, got %d", n.Name, n.Op.Name(), numInputs, len(n.inputs))
	}
	for i, input := range n.inputs {
		if input.Node == nil {
			return errors.Errorf("node %q: input #%d references a nil node", n.Name, i)
		}
		numOutputs, err := input.Node.NumOutputs()
		if err != nil {
			return errors.WithMessagef(err, "node %q: input #%d", n.Name, i)
		}
		if input.Index < 0 || input.Index >= numOutputs {
			return errors.Errorf("node %q: input #%d references output %d of %q, which has %d outputs",
				n.Name, i, input.Index, input.Node.Name, numOutputs)
		}
	}
	return nil
}

// RawAttr returns a node attribute without type checking. It implements op.AttrReader.
func (n *Node) RawAttr(key string) (value any, found bool) {
	boxed, found := n.attrs[key]
	if !found {
		return nil, false
	}
	return boxed.value, true
}

// SetRawAttr sets a node attribute tagged with the dynamic type of value.
// Front-ends that decode attributes from text use it.
func (n *Node) SetRawAttr(key string, value any) {
	n.ensureAttrs()
	setDynamic(n.attrs, key, value)
	structureEpoch.Add(1)
}

// HasAttr returns whether the node has the attribute.
func (n *Node) HasAttr(key string) bool {
	_, found := n.attrs[key]
	return found
}

// AttrType returns the type the attribute was stored with, or nil if it is not set.
func (n *Node) AttrType(key string) reflect.Type {
	return n.attrs[key].typ
}

// AttrKeys returns the names of the node attributes, sorted.
func (n *Node) AttrKeys() []string { return n.attrs.keys() }

// DeleteAttr removes a node attribute.
func (n *Node) DeleteAttr(key string) {
	delete(n.attrs, key)
	structureEpoch.Add(1)
}

func (n *Node) ensureAttrs() {
	if n.attrs == nil {
		n.attrs = make(attrMap)
	}
}

// SetNodeAttr sets the attribute key of the node n, tagged with type T. It replaces any previous value,
// whatever its type.
func SetNodeAttr[T any](n *Node, key string, value T) {
	n.ensureAttrs()
	setTyped(n.attrs, key, value)
	structureEpoch.Add(1)
}

// LookupNodeAttr returns the attribute key of the node n. found is false if it is not set.
// It returns an error wrapping types.ErrTypeMismatch if the attribute was stored with a type other than T.
func LookupNodeAttr[T any](n *Node, key string) (value T, found bool, err error) {
	value, found, err = lookupTyped[T](n.attrs, key)
	if err != nil {
		err = errors.WithMessagef(err, "node %q", n.Name)
	}
	return
}

// GetNodeAttr is like LookupNodeAttr, but a missing attribute is an error wrapping types.ErrNotFound.
func GetNodeAttr[T any](n *Node, key string) (T, error) {
	value, found, err := LookupNodeAttr[T](n, key)
	if err == nil && !found {
		err = types.NotFoundf("node %q has no attribute %q", n.Name, key)
	}
	return value, err
}
