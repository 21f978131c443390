package resolver

import (
	"fmt"
	"strings"
)

// MissingReference reports an evaluation naming a dependency that does
// not exist in the model.
type MissingReference struct {
	From string
	To   string
}

func (e *MissingReference) Error() string {
	return fmt.Sprintf("evaluation %q references unknown evaluation %q", e.From, e.To)
}

// CyclicReference reports a dependency cycle. Cycle lists the member
// evaluations in traversal order, with the entry node repeated at the
// end to close the loop.
type CyclicReference struct {
	Cycle []string
}

func (e *CyclicReference) Error() string {
	return fmt.Sprintf("cyclic reference: %s", strings.Join(e.Cycle, " -> "))
}
