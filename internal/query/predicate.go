// Package query holds the predicate tree used to filter alerts, posts and
// case studies, and the compiler that turns a search expression into one.
package query

import (
	"strings"
)

// Kind tags the variant of a Predicate
type Kind int

const (
	KindEq Kind = iota
	KindIn
	KindInFold
	KindContains
	KindAnd
	KindOr
)

// Record exposes named field values to in-memory evaluation. Scalar fields
// return a single element, list fields return every element.
type Record interface {
	FieldValues(field string) []string
}

// Predicate is a boolean filter tree. Eq, In and Contains are leaves bound
// to a field; And and Or combine children.
type Predicate struct {
	Kind     Kind
	Field    string
	Value    string
	Values   []string
	Children []Predicate
}

// Eq matches when any value of field equals value.
func Eq(field, value string) Predicate {
	return Predicate{Kind: KindEq, Field: field, Value: value}
}

// In matches when any value of field is one of values. On list fields this
// is "contains any of".
func In(field string, values ...string) Predicate {
	return Predicate{Kind: KindIn, Field: field, Values: values}
}

// InFold is In compared after trimming spaces and ignoring case.
func InFold(field string, values ...string) Predicate {
	return Predicate{Kind: KindInFold, Field: field, Values: values}
}

// Contains matches when any value of field contains substr, ignoring case.
func Contains(field, substr string) Predicate {
	return Predicate{Kind: KindContains, Field: field, Value: substr}
}

// And matches when every child matches. And() with no children is true.
func And(children ...Predicate) Predicate {
	return Predicate{Kind: KindAnd, Children: children}
}

// Or matches when at least one child matches. Or() with no children is false.
func Or(children ...Predicate) Predicate {
	return Predicate{Kind: KindOr, Children: children}
}

// True returns the predicate that matches every record.
func True() Predicate {
	return And()
}

// IsTrue reports whether p trivially matches everything.
func (p Predicate) IsTrue() bool {
	return p.Kind == KindAnd && len(p.Children) == 0
}

// Eval evaluates p against r in memory.
func (p Predicate) Eval(r Record) bool {
	switch p.Kind {
	case KindEq:
		for _, v := range r.FieldValues(p.Field) {
			if v == p.Value {
				return true
			}
		}
		return false
	case KindIn:
		for _, v := range r.FieldValues(p.Field) {
			for _, want := range p.Values {
				if v == want {
					return true
				}
			}
		}
		return false
	case KindInFold:
		for _, v := range r.FieldValues(p.Field) {
			v = strings.TrimSpace(v)
			for _, want := range p.Values {
				if strings.EqualFold(v, strings.TrimSpace(want)) {
					return true
				}
			}
		}
		return false
	case KindContains:
		needle := strings.ToLower(p.Value)
		for _, v := range r.FieldValues(p.Field) {
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
		return false
	case KindAnd:
		for _, child := range p.Children {
			if !child.Eval(r) {
				return false
			}
		}
		return true
	case KindOr:
		for _, child := range p.Children {
			if child.Eval(r) {
				return true
			}
		}
		return false
	}
	return false
}

// Filter returns the records of items matching p, preserving order.
func Filter[T Record](items []T, p Predicate) []T {
	if p.IsTrue() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if p.Eval(item) {
			out = append(out, item)
		}
	}
	return out
}

// Split partitions the conjuncts of p into those accepted by native and the
// rest. And(pushed, residual) is equivalent to p.
func Split(p Predicate, native func(Predicate) bool) (pushed, residual Predicate) {
	if p.IsTrue() {
		return True(), True()
	}
	if p.Kind != KindAnd {
		if native(p) {
			return p, True()
		}
		return True(), p
	}
	var nativeParts, rest []Predicate
	for _, child := range p.Children {
		if child.IsTrue() {
			continue
		}
		if native(child) {
			nativeParts = append(nativeParts, child)
		} else {
			rest = append(rest, child)
		}
	}
	return And(nativeParts...), And(rest...)
}
