package service

// Args holds the decoded arguments of one invocation in declared order.
type Args struct {
	values []any
	index  map[string]int
}

// NewArgs builds Args for m from values given in declared order.
func NewArgs(m *MethodDescriptor, values []any) Args {
	return Args{values: values, index: m.index}
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.values) }

// At returns the argument at position i.
func (a Args) At(i int) any { return a.values[i] }

// Get returns the argument bound to the named parameter.
func (a Args) Get(name string) (any, bool) {
	i, ok := a.index[name]
	if !ok || i >= len(a.values) {
		return nil, false
	}
	return a.values[i], true
}

// Arg returns the named argument as a V. It returns the zero value of V when
// the parameter is unknown or declared with a different type.
func Arg[V any](a Args, name string) V {
	v, _ := a.Get(name)
	out, _ := v.(V)
	return out
}
