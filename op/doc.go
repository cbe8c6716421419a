// Package op implements the operator registry: the universe of operator kinds (Op) and the operator attribute
// tables attached to them.
//
// Every distinct operator name is registered once and receives a dense, zero-based id, stable for the lifetime of
// the Registry. Attributes are stored column-wise: one AttrTable[T] per attribute name, a dense slice indexed by
// the operator id, so looking up an attribute of an operator is a slice access.
//
// Registration is decentralized: any package can register an operator, or contribute attributes to an operator
// registered elsewhere, typically from an init function:
//
//	func init() {
//		o := op.Register("add").
//			Describe("Element-wise sum of two tensors.").
//			SetNumInputs(2).
//			SetNumOutputs(1)
//		must.M(op.SetAttr(o, "TIsElementwise", true))
//	}
//
// The order in which packages register is irrelevant: Register is idempotent and the default Registry is created
// on first use.
//
// Attribute values may be of any Go type, chosen by the caller through the type parameter. The first use of an
// attribute name binds it to that type; using it later with a different type returns an error wrapping
// types.ErrTypeMismatch.
package op
