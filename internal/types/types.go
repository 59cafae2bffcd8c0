// Package types models the a7 type system: primitives, nominal
// struct/enum/union types identified by symbol id, and structural
// array/slice/pointer/function types.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates type values.
type Kind uint8

const (
	Unknown Kind = iota
	Void
	Nil
	Primitive
	Struct
	Enum
	Union
	Array
	Slice
	Pointer
	Function
	GenericParam
)

// Type is a tagged type value. Struct, enum, and union types are nominal
// (identity is the declaring symbol id); everything else compares
// structurally.
type Type struct {
	Kind Kind

	// Name is the primitive name ("i32", "bool", …), the generic
	// parameter name, or the declared name of a nominal type (carried
	// for display only).
	Name string

	// SymID identifies the declaring symbol for nominal types.
	SymID int32

	// Tagged marks a tagged union.
	Tagged bool

	// Elem is the array/slice element type or the pointer target.
	Elem *Type

	// Size is the array length, or -1 when not a compile-time constant.
	Size int64

	Params []*Type
	Return *Type
}

var (
	VoidType    = &Type{Kind: Void}
	NilType     = &Type{Kind: Nil}
	UnknownType = &Type{Kind: Unknown}
)

var primitives = map[string]*Type{}

func init() {
	for _, name := range []string{
		"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64",
		"isize", "usize", "f32", "f64", "bool", "char", "string",
	} {
		primitives[name] = &Type{Kind: Primitive, Name: name}
	}
}

// Prim returns the shared instance for a primitive type name, or nil for
// an unknown name.
func Prim(name string) *Type {
	return primitives[name]
}

// NewStruct builds a nominal struct type.
func NewStruct(name string, symID int32) *Type {
	return &Type{Kind: Struct, Name: name, SymID: symID}
}

// NewEnum builds a nominal enum type.
func NewEnum(name string, symID int32) *Type {
	return &Type{Kind: Enum, Name: name, SymID: symID}
}

// NewUnion builds a nominal union type.
func NewUnion(name string, symID int32, tagged bool) *Type {
	return &Type{Kind: Union, Name: name, SymID: symID, Tagged: tagged}
}

// NewArray builds an array type. size is -1 when unknown at compile time.
func NewArray(elem *Type, size int64) *Type {
	return &Type{Kind: Array, Elem: elem, Size: size}
}

// NewSlice builds a slice type.
func NewSlice(elem *Type) *Type {
	return &Type{Kind: Slice, Elem: elem}
}

// NewPointer builds a pointer type.
func NewPointer(target *Type) *Type {
	return &Type{Kind: Pointer, Elem: target}
}

// NewFunction builds a function type.
func NewFunction(params []*Type, ret *Type) *Type {
	if ret == nil {
		ret = VoidType
	}
	return &Type{Kind: Function, Params: params, Return: ret}
}

// NewGenericParam builds a generic parameter type referenced by name.
func NewGenericParam(name string) *Type {
	return &Type{Kind: GenericParam, Name: name}
}

// IsInteger reports whether t is one of the integer primitives.
func (t *Type) IsInteger() bool {
	if t == nil || t.Kind != Primitive {
		return false
	}
	switch t.Name {
	case "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "isize", "usize", "char":
		return true
	}
	return false
}

// IsFloat reports whether t is f32 or f64.
func (t *Type) IsFloat() bool {
	return t != nil && t.Kind == Primitive && (t.Name == "f32" || t.Name == "f64")
}

// IsNumeric reports whether t is an integer or float primitive.
func (t *Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsBool reports whether t is the bool primitive.
func (t *Type) IsBool() bool {
	return t != nil && t.Kind == Primitive && t.Name == "bool"
}

// Equal implements the equality rules of the type system: nominal for
// struct/enum/union via symbol id, structural for everything else.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Unknown, Void, Nil:
		return true
	case Primitive:
		return t.Name == o.Name
	case Struct, Enum, Union:
		return t.SymID == o.SymID
	case Array:
		return t.Size == o.Size && t.Elem.Equal(o.Elem)
	case Slice, Pointer:
		return t.Elem.Equal(o.Elem)
	case GenericParam:
		return t.Name == o.Name
	case Function:
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return t.Return.Equal(o.Return)
	}
	return false
}

// AssignableTo reports whether a value of type t can be assigned to a
// location of type dst. Identity only, except nil which is assignable to
// any pointer; numeric widening is never implicit.
func (t *Type) AssignableTo(dst *Type) bool {
	if t == nil || dst == nil {
		return false
	}
	if t.Kind == Nil {
		return dst.Kind == Pointer
	}
	return t.Equal(dst)
}

// Castable reports whether cast(dst, value-of-t) is permitted:
// numeric↔numeric, pointer↔pointer, enum↔integer.
func (t *Type) Castable(dst *Type) bool {
	if t == nil || dst == nil {
		return false
	}
	switch {
	case t.IsNumeric() && dst.IsNumeric():
		return true
	case t.Kind == Pointer && dst.Kind == Pointer:
		return true
	case t.Kind == Enum && dst.IsInteger():
		return true
	case t.IsInteger() && dst.Kind == Enum:
		return true
	}
	return false
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Unknown:
		return "<unknown>"
	case Void:
		return "void"
	case Nil:
		return "nil"
	case Primitive, GenericParam:
		return t.Name
	case Struct, Enum, Union:
		return t.Name
	case Array:
		if t.Size >= 0 {
			return fmt.Sprintf("[%d]%s", t.Size, t.Elem)
		}
		return fmt.Sprintf("[?]%s", t.Elem)
	case Slice:
		return "[]" + t.Elem.String()
	case Pointer:
		return "ref " + t.Elem.String()
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		if t.Return != nil && t.Return.Kind != Void {
			return fmt.Sprintf("fn(%s) %s", strings.Join(parts, ", "), t.Return)
		}
		return fmt.Sprintf("fn(%s)", strings.Join(parts, ", "))
	}
	return "<invalid>"
}
