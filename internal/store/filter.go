package store

// Op is a filter comparison.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpIn
)

// Filter matches a top-level (or dotted) JSON field of a document.
type Filter struct {
	Field  string
	Op     Op
	Values []any
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Values: []any{v}}
}

// Ne matches documents whose field is present and differs from v.
func Ne(field string, v any) Filter {
	return Filter{Field: field, Op: OpNe, Values: []any{v}}
}

// In matches documents whose field equals any of vs.
func In[V any](field string, vs ...V) Filter {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return Filter{Field: field, Op: OpIn, Values: values}
}
