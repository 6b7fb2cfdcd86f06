package step

import (
	"fmt"
	"strings"
)

// Value is one parameter of an entity record. The dynamic type is one of string,
// int64, float64, Ref, Enum, Binary, List, Typed, Unset or Derived.
type Value any

type (
	// Ref is a reference to another entity instance (#id).
	Ref int
	// Enum is an enumeration or boolean literal without its dots (T, F, MILLI).
	Enum string
	// Binary is a hex-encoded binary literal.
	Binary string
	// List is an aggregate value.
	List []Value
	// Typed is a value wrapped in its defined type, e.g. LENGTH_MEASURE(2.5).
	Typed struct {
		Type  string
		Value Value
	}
	// Unset is the '$' placeholder for an omitted optional attribute.
	Unset struct{}
	// Derived is the '*' placeholder for a derived attribute.
	Derived struct{}
)

// Record is one entity record: a type name and its parameters.
// Simple instances have one record; complex instances have one per partial type.
type Record struct {
	Type   string
	Params []Value
}

// Entity is an instance of the data section.
type Entity struct {
	ID      int
	Records []Record
}

// Type returns the record type of a simple instance, or the space separated record
// types of a complex instance.
func (e *Entity) Type() string {
	if len(e.Records) == 1 {
		return e.Records[0].Type
	}
	types := make([]string, len(e.Records))
	for i, r := range e.Records {
		types[i] = r.Type
	}
	return strings.Join(types, " ")
}

// Complex reports whether the instance was written with the complex (multi-record) syntax.
func (e *Entity) Complex() bool {
	return len(e.Records) > 1
}

// Is reports whether the entity has a record of any of the given types.
func (e *Entity) Is(types ...string) bool {
	for _, r := range e.Records {
		for _, t := range types {
			if r.Type == t {
				return true
			}
		}
	}
	return false
}

// Record returns the first record of any of the given types.
func (e *Entity) Record(types ...string) (Record, bool) {
	for _, r := range e.Records {
		for _, t := range types {
			if r.Type == t {
				return r, true
			}
		}
	}
	return Record{}, false
}

func (r Record) param(i int) (Value, error) {
	if i < 0 || i >= len(r.Params) {
		return nil, fmt.Errorf("%s: missing parameter %d", r.Type, i)
	}
	v := r.Params[i]
	if t, ok := v.(Typed); ok {
		v = t.Value
	}
	return v, nil
}

// Text returns parameter i as a string, or "" when it is not a string.
func (r Record) Text(i int) string {
	v, err := r.param(i)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IsUnset reports whether parameter i is missing, '$' or '*'.
func (r Record) IsUnset(i int) bool {
	v, err := r.param(i)
	if err != nil {
		return true
	}
	switch v.(type) {
	case Unset, Derived:
		return true
	}
	return false
}

// Ref returns parameter i as an entity reference.
func (r Record) Ref(i int) (int, error) {
	v, err := r.param(i)
	if err != nil {
		return 0, err
	}
	ref, ok := v.(Ref)
	if !ok {
		return 0, fmt.Errorf("%s: parameter %d is %T, want reference", r.Type, i, v)
	}
	return int(ref), nil
}

// Refs returns parameter i as a list of entity references.
func (r Record) Refs(i int) ([]int, error) {
	v, err := r.param(i)
	if err != nil {
		return nil, err
	}
	return refList(r.Type, i, v)
}

func refList(typ string, i int, v Value) ([]int, error) {
	list, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("%s: parameter %d is %T, want list", typ, i, v)
	}
	refs := make([]int, 0, len(list))
	for _, item := range list {
		ref, ok := item.(Ref)
		if !ok {
			return nil, fmt.Errorf("%s: parameter %d holds %T, want reference", typ, i, item)
		}
		refs = append(refs, int(ref))
	}
	return refs, nil
}

// Real returns parameter i as a number. Integers are accepted.
func (r Record) Real(i int) (float64, error) {
	v, err := r.param(i)
	if err != nil {
		return 0, err
	}
	f, ok := number(v)
	if !ok {
		return 0, fmt.Errorf("%s: parameter %d is %T, want number", r.Type, i, v)
	}
	return f, nil
}

// Reals returns parameter i as a list of numbers.
func (r Record) Reals(i int) ([]float64, error) {
	v, err := r.param(i)
	if err != nil {
		return nil, err
	}
	return realList(r.Type, i, v)
}

func realList(typ string, i int, v Value) ([]float64, error) {
	list, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("%s: parameter %d is %T, want list", typ, i, v)
	}
	out := make([]float64, len(list))
	for j, item := range list {
		f, ok := number(item)
		if !ok {
			return nil, fmt.Errorf("%s: parameter %d holds %T, want number", typ, i, item)
		}
		out[j] = f
	}
	return out, nil
}

// Int returns parameter i as an integer.
func (r Record) Int(i int) (int, error) {
	v, err := r.param(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%s: parameter %d is %T, want integer", r.Type, i, v)
	}
	return int(n), nil
}

// Ints returns parameter i as a list of integers.
func (r Record) Ints(i int) ([]int, error) {
	v, err := r.param(i)
	if err != nil {
		return nil, err
	}
	return intList(r.Type, i, v)
}

func intList(typ string, i int, v Value) ([]int, error) {
	list, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("%s: parameter %d is %T, want list", typ, i, v)
	}
	out := make([]int, len(list))
	for j, item := range list {
		n, ok := item.(int64)
		if !ok {
			return nil, fmt.Errorf("%s: parameter %d holds %T, want integer", typ, i, item)
		}
		out[j] = int(n)
	}
	return out, nil
}

// Bool returns parameter i as a logical. Unknown (.U.) reads as true.
func (r Record) Bool(i int) (bool, error) {
	v, err := r.param(i)
	if err != nil {
		return false, err
	}
	e, ok := v.(Enum)
	if !ok {
		return false, fmt.Errorf("%s: parameter %d is %T, want logical", r.Type, i, v)
	}
	return e != "F", nil
}

// Enum returns parameter i as an enumeration, or "" when it is not one.
func (r Record) Enum(i int) string {
	v, err := r.param(i)
	if err != nil {
		return ""
	}
	e, _ := v.(Enum)
	return string(e)
}

// List returns parameter i as an aggregate.
func (r Record) List(i int) (List, error) {
	v, err := r.param(i)
	if err != nil {
		return nil, err
	}
	list, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("%s: parameter %d is %T, want list", r.Type, i, v)
	}
	return list, nil
}

func number(v Value) (float64, bool) {
	if t, ok := v.(Typed); ok {
		v = t.Value
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}
