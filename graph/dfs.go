package graph

import (
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// DFSVisit visits every node reachable from outputs exactly once, in depth-first post-order: a node is visited
// after all its inputs (left-to-right) and control dependencies.
//
// It returns an error wrapping types.ErrGraphCycleDetected if a cycle is found, or the first error returned
// by fn. The traversal is iterative, so deep graphs don't exhaust the stack.
func DFSVisit(outputs []NodeEntry, fn func(n *Node) error) error {
	const (
		unvisited = iota
		inProgress
		done
	)
	type frame struct {
		node     *Node
		children []*Node
		next     int
	}
	state := make(map[*Node]int)
	var stack []frame
	push := func(n *Node) {
		children := make([]*Node, 0, len(n.inputs)+len(n.controlDeps))
		for _, input := range n.inputs {
			children = append(children, input.Node)
		}
		children = append(children, n.controlDeps...)
		stack = append(stack, frame{node: n, children: children})
		state[n] = inProgress
	}

	for i, output := range outputs {
		if output.Node == nil {
			return errors.Errorf("graph output #%d references a nil node", i)
		}
		if state[output.Node] != unvisited {
			continue
		}
		push(output.Node)
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.children) {
				child := top.children[top.next]
				top.next++
				if child == nil {
					return errors.Errorf("node %q has an input or control dependency referencing a nil node", top.node.Name)
				}
				switch state[child] {
				case unvisited:
					push(child)
				case inProgress:
					return errors.Wrapf(types.ErrGraphCycleDetected, "node %q depends on itself through %q",
						child.Name, top.node.Name)
				}
				continue
			}
			n := top.node
			stack = stack[:len(stack)-1]
			state[n] = done
			if err := fn(n); err != nil {
				return err
			}
		}
	}
	return nil
}
