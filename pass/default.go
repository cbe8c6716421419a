package pass

import (
	"sync"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/op"
)

var defaultManager = sync.OnceValue(func() *Manager {
	return NewManager(op.Default())
})

// Default returns the process-wide pass catalog, bound to op.Default().
func Default() *Manager {
	return defaultManager()
}

// Register adds the pass to the default catalog.
func Register(p *Pass) error {
	return Default().Register(p)
}

// Apply runs the named passes of the default catalog over g. See Manager.Run.
func Apply(g *graph.Graph, names ...string) (*graph.Graph, error) {
	return Default().Run(g, names...)
}
