package depgraph

import "errors"

// ErrCycle is returned by an install operation when wiring the candidate
// controller's outgoing edges would make it reachable from itself,
// per spec.md §4.5 / I5.
var ErrCycle = errors.New("depgraph: installing this controller would introduce a dependency cycle")
