package op

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gomlx/graphir/types"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapAttrs map[string]any

func (m mapAttrs) RawAttr(key string) (any, bool) {
	v, found := m[key]
	return v, found
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	add := r.Register("add")
	exp := r.Register("exp")
	assert.Equal(t, 0, add.ID())
	assert.Equal(t, 1, exp.ID())
	assert.Same(t, add, r.Register("add"))
	assert.Equal(t, 2, r.NumOps())
	assert.Equal(t, []string{"add", "exp"}, r.ListNames())

	got, err := r.Get("exp")
	require.NoError(t, err)
	assert.Same(t, exp, got)
	got, err = r.GetByID(0)
	require.NoError(t, err)
	assert.Same(t, add, got)

	_, err = r.Get("conv")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), `"conv"`)
	_, err = r.GetByID(7)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Panics(t, func() { r.MustGet("conv") })
}

func TestOp_Metadata(t *testing.T) {
	r := NewRegistry()
	add := r.Register("add").Describe("first").SetNumInputs(3).SetNumOutputs(1)
	r.Register("add").Describe("Element-wise sum.").SetNumInputs(2)
	assert.Equal(t, "Element-wise sum.", add.Description())
	assert.Equal(t, 2, add.NumInputs())
	assert.Equal(t, 1, add.NumOutputs())
	assert.Equal(t, 10, add.SupportLevel())
	add.SetSupportLevel(1).AddArgument("lhs", "Tensor", "left").AddArgument("rhs", "Tensor", "right")
	assert.Equal(t, 1, add.SupportLevel())
	require.Len(t, add.Arguments(), 2)
	assert.Equal(t, "rhs", add.Arguments()[1].Name)
	assert.Equal(t, "Op(add#0)", add.String())
}

func TestOp_VariableArity(t *testing.T) {
	r := NewRegistry()
	concat := r.Register("concat").SetNumInputsFunc(func(attrs AttrReader) (int, error) {
		v, found := attrs.RawAttr("num_args")
		if !found {
			return 0, errors.New("missing num_args")
		}
		return v.(int), nil
	})
	assert.Equal(t, VariableArity, concat.NumInputs())
	n, err := concat.ResolveNumInputs(mapAttrs{"num_args": 4})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, err = concat.ResolveNumInputs(mapAttrs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing num_args")

	n, err = concat.ResolveNumOutputs(mapAttrs{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A fixed arity replaces the function.
	concat.SetNumInputs(2)
	n, err = concat.ResolveNumInputs(mapAttrs{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	broken := r.Register("broken").SetNumOutputs(VariableArity)
	_, err = broken.ResolveNumOutputs(mapAttrs{})
	require.Error(t, err)
}

func TestAttr_Roundtrip(t *testing.T) {
	r := NewRegistry()
	add := r.Register("add")
	exp := r.Register("exp")

	require.NoError(t, SetAttr(add, "TIsElementwise", true))
	v, found, err := GetAttr[bool](add, "TIsElementwise")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, v)

	_, found, err = GetAttr[bool](exp, "TIsElementwise")
	require.NoError(t, err)
	assert.False(t, found)

	// Never created attribute.
	_, found, err = GetAttr[bool](exp, "FNothing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, r.HasAttr("FNothing"))

	// Last write wins.
	require.NoError(t, SetAttr(add, "TIsElementwise", false))
	v, _, _ = GetAttr[bool](add, "TIsElementwise")
	assert.False(t, v)
}

func TestOp_AttrNames(t *testing.T) {
	r := NewRegistry()
	a, b := r.Register("a"), r.Register("b")
	require.NoError(t, SetAttr(a, "FOne", 1))
	require.NoError(t, SetAttr(a, "FName", "a"))
	require.NoError(t, SetAttr(b, "FOne", 2))
	assert.Equal(t, []string{"FName", "FOne"}, a.AttrNames())
	assert.Equal(t, []string{"FOne"}, b.AttrNames())
	assert.Empty(t, r.Register("c").AttrNames())
	assert.Equal(t, []string{"FName", "FOne"}, r.AttrNames())
}

func TestAttr_TypeMismatch(t *testing.T) {
	r := NewRegistry()
	o := r.Register("identity")
	require.NoError(t, SetAttr(o, "FInplaceOption", [][2]int{{0, 0}}))

	_, _, err := GetAttr[[]int](o, "FInplaceOption")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	var mismatch *types.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "FInplaceOption", mismatch.Key)

	err = SetAttr(o, "FInplaceOption", "inplace")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	_, err = GetAttrTable[int](r, "FInplaceOption")
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	assert.Panics(t, func() { MustGetAttrTable[int](r, "FInplaceOption") })

	// The stored value is untouched.
	v, found, err := GetAttr[[][2]int](o, "FInplaceOption")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, [][2]int{{0, 0}}, v)
}

func TestAttrTable_GrowsWithRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	table := must.M1(GetAttrTable[string](r, "doc"))
	assert.Equal(t, 1, table.Len())
	c := r.Register("b")
	r.Register("c")
	assert.Equal(t, r.NumOps(), table.Len())

	require.NoError(t, SetAttr(c, "doc", "B"))
	assert.Equal(t, "B", table.GetOr(c, "none"))
	assert.Equal(t, "none", table.GetOr(r.MustGet("a"), "none"))
	assert.True(t, table.Has(c))
	assert.Equal(t, 1, table.Count())
	assert.Equal(t, []string{"doc"}, r.AttrNames())

	require.NoError(t, r.ResetAttr("doc"))
	assert.Equal(t, 0, table.Count())
	assert.ErrorIs(t, r.ResetAttr("unknown"), types.ErrNotFound)
}

func TestAttr_Levels(t *testing.T) {
	r := NewRegistry()
	o := r.Register("tanh")
	require.NoError(t, SetAttrLevel(o, "FGradient", "high", 20))
	require.NoError(t, SetAttr(o, "FGradient", "default"))
	v, _, _ := GetAttr[string](o, "FGradient")
	assert.Equal(t, "high", v, "lower level must not overwrite a higher one")

	require.NoError(t, SetAttrLevel(o, "FGradient", "override", 20))
	v, _, _ = GetAttr[string](o, "FGradient")
	assert.Equal(t, "override", v, "equal level overwrites")
}

func TestGroup(t *testing.T) {
	r := NewRegistry()
	add := r.Register("add")
	require.NoError(t, add.Include("ElementwiseBinary"))
	g := r.Group("ElementwiseBinary")
	require.NoError(t, SetGroupAttr(g, "TIsElementwise", true, 5))

	sub := r.Register("sub")
	require.NoError(t, sub.Include("ElementwiseBinary"))
	require.NoError(t, sub.Include("ElementwiseBinary"))
	assert.Len(t, g.Members(), 2)
	assert.Equal(t, []string{"ElementwiseBinary"}, sub.Groups())

	for _, o := range []*Op{add, sub} {
		v, found, err := GetAttr[bool](o, "TIsElementwise")
		require.NoError(t, err)
		assert.True(t, found, o.Name())
		assert.True(t, v)
	}

	// Direct attribute with default level wins over the group level 5.
	require.NoError(t, SetAttr(sub, "TIsElementwise", false))
	v, _, _ := GetAttr[bool](sub, "TIsElementwise")
	assert.False(t, v)

	err := SetGroupAttr(g, "TIsElementwise", 1, 5)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestGroup_IncludeFailure(t *testing.T) {
	r := NewRegistry()
	g := r.Group("Broken")
	g.setters = append(g.setters, func(o *Op) error {
		return errors.Errorf("cannot configure %q", o.Name())
	})
	o := r.Register("exp")
	err := o.Include("Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `including operator "exp" in group "Broken"`)
	assert.Empty(t, o.Groups())
	assert.Empty(t, g.Members())

	// Once the group can be applied, including works again.
	g.setters = nil
	require.NoError(t, o.Include("Broken"))
	assert.Equal(t, []string{"Broken"}, o.Groups())
	assert.Len(t, g.Members(), 1)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	r := NewRegistry()
	table := must.M1(GetAttrTable[int](r, "index"))
	const numWorkers, numOps = 8, 50
	var wg sync.WaitGroup
	for w := range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range numOps {
				o := r.Register(fmt.Sprintf("op%d", i))
				if err := SetAttr(o, "index", i); err != nil {
					t.Errorf("worker %d: %v", w, err)
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, numOps, r.NumOps())
	seen := make(map[int]bool)
	for i := range numOps {
		o := r.MustGet(fmt.Sprintf("op%d", i))
		assert.False(t, seen[o.ID()], "ids must be unique")
		seen[o.ID()] = true
		v, found := table.Get(o)
		assert.True(t, found)
		assert.Equal(t, i, v)
	}
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
	o := Register("op_test_default_registry")
	assert.Same(t, o, MustGet("op_test_default_registry"))
	got, err := Get("op_test_default_registry")
	require.NoError(t, err)
	assert.Same(t, o, got)
}
