package core

import "github.com/loom-ui/loom/pkg/errors"

// paintGuard detects re-entrant paint of the same element within one
// traversal. A render object that (directly or through a cycle of child
// captures) paints itself again would otherwise recurse until the stack
// overflows; the guard converts that into a CycleError naming the element.
//
// The guard is scoped to a single traversal on the pipeline goroutine, so
// a plain map suffices.
type paintGuard struct {
	active map[ElementId]struct{}
}

func newPaintGuard() *paintGuard {
	return &paintGuard{active: make(map[ElementId]struct{})}
}

// enter registers id as painting. Returns CycleError if id is already on
// the paint stack.
func (g *paintGuard) enter(id ElementId) error {
	if _, painting := g.active[id]; painting {
		return &errors.CycleError{Element: int(id)}
	}
	g.active[id] = struct{}{}
	return nil
}

// exit removes id from the paint stack. Called via defer so the guard is
// released on every path out of a paint, including panics; a failed paint
// must not poison later repaints of the same element.
func (g *paintGuard) exit(id ElementId) {
	delete(g.active, id)
}
