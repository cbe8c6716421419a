package op

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
)

// VariableArity is the number of inputs or outputs of an operator whose arity depends on node attributes.
// See Op.SetNumInputsFunc and Op.SetNumOutputsFunc.
const VariableArity = -1

// AttrReader gives read access to the attributes of a node, used to resolve the arity of operators
// with VariableArity.
type AttrReader interface {
	RawAttr(key string) (value any, found bool)
}

// ArityFunc returns the number of inputs or outputs of a node given its attributes.
type ArityFunc func(attrs AttrReader) (int, error)

// ArgumentInfo documents one input of an operator.
type ArgumentInfo struct {
	Name        string
	TypeInfo    string
	Description string
}

// Op describes one operator kind. There is exactly one Op per name in a Registry.
//
// The setters return the Op itself, so the metadata can be declared in a chain. Every setter overwrites the
// previous value: the last call wins.
type Op struct {
	registry *Registry
	name     string
	id       int

	mu           sync.RWMutex
	description  string
	numInputs    int
	numOutputs   int
	numInputsFn  ArityFunc
	numOutputsFn ArityFunc
	arguments    []ArgumentInfo
	supportLevel int
	groups       []string
}

func newOp(r *Registry, name string, id int) *Op {
	return &Op{
		registry:     r,
		name:         name,
		id:           id,
		numInputs:    1,
		numOutputs:   1,
		supportLevel: 10,
	}
}

// Name of the operator, its unique key in the Registry.
func (o *Op) Name() string { return o.name }

// ID is the dense index of the operator in its Registry, used to index every AttrTable.
func (o *Op) ID() int { return o.id }

// Registry that owns the operator.
func (o *Op) Registry() *Registry { return o.registry }

// String implements fmt.Stringer.
func (o *Op) String() string {
	return fmt.Sprintf("Op(%s#%d)", o.name, o.id)
}

// Describe sets the human-readable description of the operator.
func (o *Op) Describe(description string) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.description = description
	return o
}

// Description of the operator.
func (o *Op) Description() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.description
}

// SetNumInputs sets a fixed number of inputs. It discards any function set with SetNumInputsFunc.
// Use VariableArity together with SetNumInputsFunc for operators whose arity depends on node attributes.
func (o *Op) SetNumInputs(n int) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.numInputs = n
	if n != VariableArity {
		o.numInputsFn = nil
	}
	return o
}

// SetNumOutputs sets a fixed number of outputs. It discards any function set with SetNumOutputsFunc.
func (o *Op) SetNumOutputs(n int) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.numOutputs = n
	if n != VariableArity {
		o.numOutputsFn = nil
	}
	return o
}

// SetNumInputsFunc makes the number of inputs variable: it is computed from the node attributes by fn.
func (o *Op) SetNumInputsFunc(fn ArityFunc) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.numInputs = VariableArity
	o.numInputsFn = fn
	return o
}

// SetNumOutputsFunc makes the number of outputs variable: it is computed from the node attributes by fn.
func (o *Op) SetNumOutputsFunc(fn ArityFunc) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.numOutputs = VariableArity
	o.numOutputsFn = fn
	return o
}

// NumInputs returns the declared number of inputs, or VariableArity.
func (o *Op) NumInputs() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.numInputs
}

// NumOutputs returns the declared number of outputs, or VariableArity.
func (o *Op) NumOutputs() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.numOutputs
}

// ResolveNumInputs returns the number of inputs of a node of this operator with the given attributes.
func (o *Op) ResolveNumInputs(attrs AttrReader) (int, error) {
	o.mu.RLock()
	n, fn := o.numInputs, o.numInputsFn
	o.mu.RUnlock()
	return o.resolveArity("inputs", n, fn, attrs)
}

// ResolveNumOutputs returns the number of outputs of a node of this operator with the given attributes.
func (o *Op) ResolveNumOutputs(attrs AttrReader) (int, error) {
	o.mu.RLock()
	n, fn := o.numOutputs, o.numOutputsFn
	o.mu.RUnlock()
	return o.resolveArity("outputs", n, fn, attrs)
}

func (o *Op) resolveArity(what string, n int, fn ArityFunc, attrs AttrReader) (int, error) {
	if n != VariableArity {
		return n, nil
	}
	if fn == nil {
		return 0, errors.Errorf("operator %q has a variable number of %s but no function to resolve it", o.name, what)
	}
	resolved, err := fn(attrs)
	if err != nil {
		return 0, errors.WithMessagef(err, "resolving number of %s of operator %q", what, o.name)
	}
	if resolved < 0 {
		return 0, errors.Errorf("operator %q resolved to a negative number of %s (%d)", o.name, what, resolved)
	}
	return resolved, nil
}

// AddArgument documents the next input of the operator.
func (o *Op) AddArgument(name, typeInfo, description string) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.arguments = append(o.arguments, ArgumentInfo{Name: name, TypeInfo: typeInfo, Description: description})
	return o
}

// Arguments returns a copy of the documented inputs.
func (o *Op) Arguments() []ArgumentInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.arguments)
}

// SetSupportLevel sets how well supported the operator is; lower is better.
func (o *Op) SetSupportLevel(level int) *Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.supportLevel = level
	return o
}

// SupportLevel of the operator. It defaults to 10.
func (o *Op) SupportLevel() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.supportLevel
}

// Include adds the operator to the named group: it receives every attribute set on the group, past and future.
// See Registry.Group.
func (o *Op) Include(group string) error {
	o.mu.Lock()
	if slices.Contains(o.groups, group) {
		o.mu.Unlock()
		return nil
	}
	o.groups = append(o.groups, group)
	o.mu.Unlock()
	if err := o.registry.Group(group).addMember(o); err != nil {
		o.mu.Lock()
		o.groups = slices.DeleteFunc(o.groups, func(name string) bool { return name == group })
		o.mu.Unlock()
		return err
	}
	return nil
}

// AttrNames returns the names of the operator attributes set for o, sorted.
func (o *Op) AttrNames() []string {
	r := o.registry
	r.mu.RLock()
	tables := make([]attrTable, 0, len(r.tables))
	for _, table := range r.tables {
		tables = append(tables, table)
	}
	r.mu.RUnlock()
	var names []string
	for _, table := range tables {
		if table.Has(o) {
			names = append(names, table.name())
		}
	}
	slices.Sort(names)
	return names
}

// Groups returns the names of the groups the operator was included in.
func (o *Op) Groups() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.groups)
}

// SetAttr sets the attribute attrName of the operator o, with the default priority level.
// A previous value for the same operator and attribute is overwritten.
//
// It returns an error wrapping types.ErrTypeMismatch if attrName is already bound to a type other than T.
func SetAttr[T any](o *Op, attrName string, value T) error {
	return SetAttrLevel(o, attrName, value, DefaultLevel)
}

// SetAttrLevel sets the attribute attrName of the operator o with the given priority level.
//
// A value already set with a higher level is kept, and the new value is dropped.
// Otherwise, the new value overwrites the old one.
func SetAttrLevel[T any](o *Op, attrName string, value T, level int) error {
	if o == nil {
		return errors.Errorf("SetAttr(%q) called with a nil operator", attrName)
	}
	table, err := GetAttrTable[T](o.registry, attrName)
	if err != nil {
		return errors.WithMessagef(err, "setting attribute %q of operator %q", attrName, o.name)
	}
	table.set(o, value, level)
	return nil
}

// GetAttr returns the attribute attrName of the operator o. found is false if it was never set for o.
//
// It returns an error wrapping types.ErrTypeMismatch if attrName is bound to a type other than T.
func GetAttr[T any](o *Op, attrName string) (value T, found bool, err error) {
	if o == nil {
		return value, false, errors.Wrapf(types.ErrNotFound, "GetAttr(%q) called with a nil operator", attrName)
	}
	table, err := LookupAttrTable[T](o.registry, attrName)
	if err != nil || table == nil {
		return value, false, err
	}
	value, found = table.Get(o)
	return value, found, nil
}
