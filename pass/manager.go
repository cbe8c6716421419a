package pass

import (
	"slices"
	"sync"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Manager is a catalog of passes bound to an operator Registry, used to resolve operator attribute requirements.
//
// Registration and lookups are safe for concurrent use. Running passes over different graphs concurrently is
// safe; see RunBatch.
type Manager struct {
	registry *op.Registry

	mu     sync.RWMutex
	passes map[string]*Pass
}

// NewManager creates an empty catalog bound to the given operator registry.
func NewManager(registry *op.Registry) *Manager {
	return &Manager{
		registry: registry,
		passes:   make(map[string]*Pass),
	}
}

// Registry returns the operator registry the manager checks operator attribute requirements against.
func (m *Manager) Registry() *op.Registry { return m.registry }

// Register adds the pass to the catalog. A pass with the same name is replaced.
func (m *Manager) Register(p *Pass) error {
	if p == nil || p.Name == "" {
		return errors.New("pass must have a name")
	}
	if p.Func == nil {
		return errors.Errorf("pass %q has no function", p.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.passes[p.Name]; found {
		klog.V(1).Infof("pass %q registered again: replacing previous registration", p.Name)
	}
	m.passes[p.Name] = p
	return nil
}

// Get returns the pass with the given name, or an error wrapping types.ErrNotFound.
func (m *Manager) Get(name string) (*Pass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, found := m.passes[name]
	if !found {
		return nil, types.NotFoundf("pass %q", name)
	}
	return p, nil
}

// List returns the names of the registered passes, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.passes))
	for name := range m.passes {
		names = append(names, name)
	}
	m.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (m *Manager) lookupAll(names []string) ([]*Pass, error) {
	passes := make([]*Pass, len(names))
	for i, name := range names {
		p, err := m.Get(name)
		if err != nil {
			return nil, err
		}
		passes[i] = p
	}
	return passes, nil
}

// available returns whether the attribute is a graph attribute of g or an operator attribute of the registry.
func (m *Manager) available(g *graph.Graph, attr string) bool {
	return g.HasAttr(attr) || m.registry.HasAttr(attr)
}

// Run applies the named passes to g in order, each one receiving the graph returned by the previous one.
//
// Before running a pass, every attribute it requires must be either a graph attribute or an operator attribute;
// otherwise Run returns a *types.MissingDependencyError and no further passes run. After a pass, every attribute
// it provides must be present on the returned graph.
//
// g itself is never modified by the Manager: the first pass receives a clone of g (sharing its nodes).
// On error, the graphs produced by the passes completed so far are discarded.
func (m *Manager) Run(g *graph.Graph, names ...string) (*graph.Graph, error) {
	passes, err := m.lookupAll(names)
	if err != nil {
		return nil, err
	}
	current := g.Clone()
	for _, p := range passes {
		for _, attr := range p.Requires {
			if !m.available(current, attr) {
				return nil, errors.WithStack(&types.MissingDependencyError{Pass: p.Name, Attr: attr})
			}
		}
		klog.V(1).Infof("running pass %q", p.Name)
		next, err := p.Func(current)
		if err != nil {
			return nil, errors.WithMessagef(err, "pass %q failed", p.Name)
		}
		if next == nil {
			return nil, errors.Errorf("pass %q returned a nil graph", p.Name)
		}
		for _, attr := range p.Provides {
			if !next.HasAttr(attr) {
				return nil, errors.Errorf("pass %q declares it provides %q, but the attribute is missing from its output",
					p.Name, attr)
			}
		}
		if p.ChangesGraph {
			next.Invalidate()
		}
		current = next
	}
	return current, nil
}

// RunPlanned orders the named passes with Plan and runs them.
func (m *Manager) RunPlanned(g *graph.Graph, names ...string) (*graph.Graph, error) {
	order, err := m.Plan(g, names...)
	if err != nil {
		return nil, err
	}
	return m.Run(g, order...)
}

// RunBatch runs the named passes over each graph, concurrently. The results are in the same order as graphs.
//
// The graphs must not share nodes whose attributes the passes modify.
// If any graph fails, the first error is returned.
func (m *Manager) RunBatch(graphs []*graph.Graph, names ...string) ([]*graph.Graph, error) {
	results := make([]*graph.Graph, len(graphs))
	var eg errgroup.Group
	for i, g := range graphs {
		eg.Go(func() error {
			result, err := m.Run(g, names...)
			if err != nil {
				return errors.WithMessagef(err, "graph #%d", i)
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
