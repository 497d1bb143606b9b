package engine

import "fmt"

// DataIntegrityError reports malformed input data: a run aborts on the
// first offending bar rather than producing results from garbage. Index is
// the bar's position in the input series.
type DataIntegrityError struct {
	Index  int
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("bar %d: %s", e.Index, e.Reason)
}

// InvariantViolationError reports an internal accounting violation, such
// as cash going negative after a fill that passed the feasibility check.
// It indicates a defect in the simulator, not bad input.
type InvariantViolationError struct {
	Index  int
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("accounting invariant violated at bar %d: %s", e.Index, e.Detail)
}
