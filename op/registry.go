package op

import (
	"slices"
	"sync"

	"github.com/gomlx/graphir/types"
	"k8s.io/klog/v2"
)

// Registry holds the operators and their attribute tables.
//
// All methods are safe for concurrent use. Operator id allocation and table growth happen under one exclusive
// lock; reading attributes takes only the read lock of the table.
type Registry struct {
	mu     sync.RWMutex
	ops    []*Op
	byName map[string]*Op
	tables map[string]attrTable
	groups map[string]*Group
}

// NewRegistry creates an empty Registry.
//
// Most programs use the process-wide registry returned by Default. Separate registries are useful for tests and
// for tools that load independent operator sets.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Op),
		tables: make(map[string]attrTable),
		groups: make(map[string]*Group),
	}
}

// Register returns the operator with the given name, creating it with the next free id if it doesn't exist yet.
//
// It is idempotent: registering the same name again returns the same *Op.
func (r *Registry) Register(name string) *Op {
	r.mu.RLock()
	o, found := r.byName[name]
	r.mu.RUnlock()
	if found {
		return o
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if o, found = r.byName[name]; found {
		return o
	}
	o = newOp(r, name, len(r.ops))
	r.ops = append(r.ops, o)
	r.byName[name] = o
	for _, table := range r.tables {
		table.grow(len(r.ops))
	}
	klog.V(2).Infof("op registry: registered %q with id %d", name, o.id)
	return o
}

// Get returns the operator with the given name, or an error wrapping types.ErrNotFound.
func (r *Registry) Get(name string) (*Op, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, found := r.byName[name]
	if !found {
		return nil, types.NotFoundf("operator %q", name)
	}
	return o, nil
}

// MustGet is like Get, but panics if the operator is not registered.
func (r *Registry) MustGet(name string) *Op {
	o, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return o
}

// GetByID returns the operator with the given id, or an error wrapping types.ErrNotFound.
func (r *Registry) GetByID(id int) (*Op, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.ops) {
		return nil, types.NotFoundf("operator id %d (%d operators registered)", id, len(r.ops))
	}
	return r.ops[id], nil
}

// NumOps returns the number of registered operators. Ids range from 0 to NumOps()-1.
func (r *Registry) NumOps() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// ListNames returns the names of all registered operators, sorted.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// HasAttr returns whether an operator attribute table with the given name exists.
func (r *Registry) HasAttr(attrName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.tables[attrName]
	return found
}

// AttrNames returns the names of all operator attributes, sorted.
func (r *Registry) AttrNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// ResetAttr clears the values of the attribute for every operator. The attribute keeps its type binding.
// It returns an error wrapping types.ErrNotFound if no such attribute exists.
func (r *Registry) ResetAttr(attrName string) error {
	r.mu.RLock()
	table, found := r.tables[attrName]
	r.mu.RUnlock()
	if !found {
		return types.NotFoundf("operator attribute %q", attrName)
	}
	table.clear()
	return nil
}

// Group returns the operator group with the given name, creating it if needed.
func (r *Registry) Group(name string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, found := r.groups[name]
	if !found {
		g = &Group{registry: r, name: name}
		r.groups[name] = g
	}
	return g
}
