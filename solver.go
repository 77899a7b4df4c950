package lift

// Solver represents a satisfiability oracle with a stack of assertion scopes.
type Solver interface {
	// Push opens a new assertion scope.
	Push() error

	// Pop discards every assertion made since the matching Push.
	Pop() error

	// Assert adds a boolean formula to the current scope.
	Assert(f *Formula) error

	// Check returns true if the current assertions together with the given
	// assumptions are satisfiable. Assumptions do not outlive the call.
	Check(assumptions ...*Formula) (satisfiable bool, err error)
}

// Valid returns true if f holds under every assignment consistent with the
// solver's current assertions.
func Valid(s Solver, b *Builder, f *Formula) (bool, error) {
	satisfiable, err := s.Check(b.Not(f))
	if err != nil {
		return false, err
	}
	return !satisfiable, nil
}

// Equivalent returns true if x & y are equal under every assignment
// consistent with the solver's current assertions.
func Equivalent(s Solver, b *Builder, x, y *Formula) (bool, error) {
	if x == y {
		return true, nil
	}
	satisfiable, err := s.Check(b.Distinct(x, y))
	if err != nil {
		return false, err
	}
	return !satisfiable, nil
}
