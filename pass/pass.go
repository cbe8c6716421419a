// Package pass implements graph transformation passes and the Manager that sequences them.
//
// A Pass is a named function from Graph to Graph that declares the attributes it requires and the graph
// attributes it provides. The Manager runs passes in the order given by the caller, checking before each pass that
// its requirements are met; optionally it can compute an order from the declarations (see Manager.Plan).
package pass

import (
	"github.com/gomlx/graphir/graph"
)

// Func transforms a graph. It may modify g's attributes in place and return g, or return a new Graph.
// It should not modify the attributes of nodes it didn't create, since nodes may be shared with other graphs.
type Func func(g *graph.Graph) (*graph.Graph, error)

// Pass is a named graph transformation with declared dependencies.
type Pass struct {
	// Name is the key of the pass in a Manager.
	Name string

	// Description for humans.
	Description string

	// Func does the transformation.
	Func Func

	// Requires lists attributes that must be available before the pass runs: either a graph attribute or an
	// operator attribute known to the registry.
	Requires []string

	// Provides lists graph attributes the pass guarantees to be present on its output graph.
	Provides []string

	// ChangesGraph indicates the pass may change the nodes or edges of the graph.
	ChangesGraph bool
}
