// Package graphfile loads graphs from a YAML description:
//
//	nodes:
//	  - name: x
//	    shape: {dtype: Float32, dims: [2, 3]}
//	  - name: y
//	    op: exp
//	    inputs: ["x:0"]
//	outputs: ["y"]
//
// A node without "op" (or with op "variable") is a variable. Its shape is given by "shape", or derived from
// "example" data. Inputs and outputs reference node outputs as
// "name:index", where ":0" can be omitted. Nodes can only reference nodes listed before them.
package graphfile

import (
	"io"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/internal/utils"
	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/types"
	"github.com/gomlx/graphir/types/shapes"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// VariableOp is the op name that marks a variable, same as leaving "op" empty.
const VariableOp = "variable"

// File is the YAML document.
type File struct {
	Nodes   []Node   `yaml:"nodes"`
	Outputs []string `yaml:"outputs"`

	// Attrs are graph attributes, set with their decoded YAML types.
	Attrs map[string]any `yaml:"attrs,omitempty"`
}

// Node describes one graph node.
type Node struct {
	Name        string         `yaml:"name"`
	Op          string         `yaml:"op,omitempty"`
	Inputs      []string       `yaml:"inputs,omitempty"`
	ControlDeps []string       `yaml:"control_deps,omitempty"`
	Attrs       map[string]any `yaml:"attrs,omitempty"`
	Shape       *Shape         `yaml:"shape,omitempty"`

	// Example data of a variable, used to derive its shape when Shape is not given.
	Example any `yaml:"example,omitempty"`
}

// Shape of a variable, stored in its types.NodeAttrShape attribute.
type Shape struct {
	DType string `yaml:"dtype"`
	Dims  []int  `yaml:"dims"`
}

// Load decodes a YAML graph from r and builds it, resolving operators in reg.
func Load(r io.Reader, reg *op.Registry) (*graph.Graph, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decoding YAML graph")
	}
	return f.Build(reg)
}

// Build creates the graph described by f.
func (f *File) Build(reg *op.Registry) (*graph.Graph, error) {
	nodes := make(map[string]*graph.Node, len(f.Nodes))
	for i, spec := range f.Nodes {
		if spec.Name == "" {
			return nil, errors.Errorf("node #%d has no name", i)
		}
		if _, found := nodes[spec.Name]; found {
			return nil, errors.Errorf("node %q defined more than once", spec.Name)
		}
		n, err := spec.build(reg, nodes)
		if err != nil {
			return nil, errors.WithMessagef(err, "node %q", spec.Name)
		}
		nodes[spec.Name] = n
	}
	if len(f.Outputs) == 0 {
		return nil, errors.New("graph has no outputs")
	}
	outputs := make([]graph.NodeEntry, len(f.Outputs))
	for i, ref := range f.Outputs {
		e, err := parseEntry(ref, nodes)
		if err != nil {
			return nil, errors.WithMessagef(err, "output #%d", i)
		}
		outputs[i] = e
	}
	g := graph.FromOutputs(outputs...)
	warnUnreachable(nodes, outputs)
	for key, value := range f.Attrs {
		g.SetRawAttr(key, value)
	}
	klog.V(1).Infof("graphfile: loaded %d nodes, %d outputs", len(f.Nodes), len(outputs))
	return g, nil
}

// warnUnreachable logs the nodes no output depends on: they are not part of the graph.
func warnUnreachable(nodes map[string]*graph.Node, outputs []graph.NodeEntry) {
	defined := utils.MakeSet[string](len(nodes))
	for name := range nodes {
		defined.Insert(name)
	}
	reachable := utils.MakeSet[string](len(nodes))
	_ = graph.DFSVisit(outputs, func(n *graph.Node) error {
		reachable.Insert(n.Name)
		return nil
	})
	if unused := defined.Sub(reachable); len(unused) > 0 {
		klog.Warningf("graphfile: nodes not reachable from the outputs are dropped: %v", utils.Sorted(unused))
	}
}

func (spec *Node) build(reg *op.Registry, nodes map[string]*graph.Node) (*graph.Node, error) {
	var n *graph.Node
	if spec.Op == "" || spec.Op == VariableOp {
		if len(spec.Inputs) > 0 {
			return nil, errors.Errorf("variables take no inputs, got %d", len(spec.Inputs))
		}
		n = graph.NewVariable(spec.Name)
	} else {
		o, err := reg.Get(spec.Op)
		if err != nil {
			return nil, err
		}
		inputs := make([]graph.NodeEntry, len(spec.Inputs))
		for i, ref := range spec.Inputs {
			if inputs[i], err = parseEntry(ref, nodes); err != nil {
				return nil, errors.WithMessagef(err, "input #%d", i)
			}
		}
		n = graph.NewNode(o, spec.Name, inputs...)
	}
	for _, name := range spec.ControlDeps {
		dep, found := nodes[name]
		if !found {
			return nil, errors.Errorf("control dependency %q not defined before use", name)
		}
		n.AddControlDeps(dep)
	}
	for key, value := range spec.Attrs {
		n.SetRawAttr(key, value)
	}
	switch {
	case spec.Shape != nil:
		dtype, err := dtypes.DTypeString(spec.Shape.DType)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dtype %q", spec.Shape.DType)
		}
		graph.SetNodeAttr(n, types.NodeAttrShape, shapes.Make(dtype, spec.Shape.Dims...))
	case spec.Example != nil:
		shape, err := shapes.FromAnyValue(spec.Example)
		if err != nil {
			return nil, errors.WithMessage(err, "example")
		}
		graph.SetNodeAttr(n, types.NodeAttrShape, shape)
	}
	return n, nil
}

// parseEntry parses "name" or "name:index".
func parseEntry(ref string, nodes map[string]*graph.Node) (graph.NodeEntry, error) {
	name, index := ref, 0
	if pos := strings.LastIndexByte(ref, ':'); pos >= 0 {
		var err error
		name = ref[:pos]
		index, err = strconv.Atoi(ref[pos+1:])
		if err != nil || index < 0 {
			return graph.NodeEntry{}, errors.Errorf("invalid output index in %q", ref)
		}
	}
	n, found := nodes[name]
	if !found {
		return graph.NodeEntry{}, errors.Errorf("node %q not defined before use", name)
	}
	return n.Output(index), nil
}
