package pass

import (
	"slices"
	"strings"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/internal/utils"
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// Plan computes an order in which the named passes can run on g such that every requirement is met.
//
// A pass that requires an attribute provided by another pass of the list runs after it. Requirements already
// available (graph attributes of g, or operator attributes) add no ordering constraint. Among the passes ready to
// run, the one listed first in names goes first, so the result is deterministic and equal to names when names is
// already a valid order.
//
// It returns a *types.MissingDependencyError if a requirement is neither available nor provided, and an error
// wrapping types.ErrCyclicDependency if the passes depend on each other in a cycle. Each pass can be listed once.
func (m *Manager) Plan(g *graph.Graph, names ...string) ([]string, error) {
	seen := utils.MakeSet[string](len(names))
	for _, name := range names {
		if seen.Has(name) {
			return nil, errors.Errorf("pass %q listed more than once", name)
		}
		seen.Insert(name)
	}
	passes, err := m.lookupAll(names)
	if err != nil {
		return nil, err
	}

	providers := make(map[string][]int)
	for i, p := range passes {
		for _, attr := range p.Provides {
			providers[attr] = append(providers[attr], i)
		}
	}

	// dependents[i] lists the passes that must run after pass i.
	dependents := make([][]int, len(passes))
	numPending := make([]int, len(passes))
	for i, p := range passes {
		for _, attr := range p.Requires {
			if m.available(g, attr) {
				continue
			}
			// A pass never satisfies its own requirement.
			producers := slices.DeleteFunc(slices.Clone(providers[attr]), func(producer int) bool { return producer == i })
			if len(producers) == 0 {
				return nil, errors.WithStack(&types.MissingDependencyError{Pass: p.Name, Attr: attr})
			}
			for _, producer := range producers {
				dependents[producer] = append(dependents[producer], i)
				numPending[i]++
			}
		}
	}

	order := make([]string, 0, len(passes))
	scheduled := make([]bool, len(passes))
	for len(order) < len(passes) {
		next := -1
		for i := range passes {
			if !scheduled[i] && numPending[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			var blocked []string
			for i, p := range passes {
				if !scheduled[i] {
					blocked = append(blocked, p.Name)
				}
			}
			return nil, errors.Wrapf(types.ErrCyclicDependency, "passes %s depend on each other",
				strings.Join(blocked, ", "))
		}
		scheduled[next] = true
		order = append(order, passes[next].Name)
		for _, dependent := range dependents[next] {
			numPending[dependent]--
		}
	}
	return order, nil
}
