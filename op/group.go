package op

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
)

// Group is a named set of operators that share attributes.
//
// An attribute set on a Group is applied to every member, including operators that join the group later with
// Op.Include.
type Group struct {
	registry *Registry
	name     string

	mu      sync.Mutex
	members []*Op
	setters []func(o *Op) error
}

// Name of the group.
func (g *Group) Name() string { return g.name }

// Members returns the operators included in the group, in inclusion order.
func (g *Group) Members() []*Op {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.members)
}

// addMember applies the group attributes to o, then records it as a member. If any attribute fails, o is not
// added. Runs under the group lock.
func (g *Group) addMember(o *Op) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, setter := range g.setters {
		if err := setter(o); err != nil {
			return errors.WithMessagef(err, "including operator %q in group %q", o.name, g.name)
		}
	}
	g.members = append(g.members, o)
	return nil
}

// SetGroupAttr sets the attribute attrName for every current and future member of the group, with the given
// priority level. Values set directly on an operator with a higher level take precedence.
func SetGroupAttr[T any](g *Group, attrName string, value T, level int) error {
	if _, err := GetAttrTable[T](g.registry, attrName); err != nil {
		return errors.WithMessagef(err, "setting attribute %q of group %q", attrName, g.name)
	}
	setter := func(o *Op) error {
		return SetAttrLevel(o, attrName, value, level)
	}
	g.mu.Lock()
	g.setters = append(g.setters, setter)
	members := slices.Clone(g.members)
	g.mu.Unlock()
	for _, o := range members {
		if err := setter(o); err != nil {
			return err
		}
	}
	return nil
}
