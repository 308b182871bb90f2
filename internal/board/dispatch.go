package board

import (
	"fmt"

	"github.com/bigbag/dupico/internal/link"
)

// Constructor builds a command set bound to a link.
type Constructor func(l *link.Link) Commands

// UnsupportedModelError reports a model number with no registered command set.
type UnsupportedModelError struct {
	Model int
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported board model %d", e.Model)
}

// generations lists the command sets of one model by firmware major version.
// A firmware major missing from byMajor resolves to fallback, so boards running
// newer firmware stay usable.
type generations struct {
	byMajor  map[string]Constructor
	fallback Constructor
}

func (g generations) resolve(major string) Constructor {
	if c, ok := g.byMajor[major]; ok {
		return c
	}
	return g.fallback
}

var registry = map[int]generations{
	// a single command set for every M3 firmware so far
	ModelM3: {fallback: NewM3},
}

// Resolve returns the command set constructor for a board model and firmware
// major version.
func Resolve(model int, major string) (Constructor, error) {
	g, ok := registry[model]
	if !ok {
		return nil, &UnsupportedModelError{Model: model}
	}
	return g.resolve(major), nil
}

// Supported reports whether model has registered command sets.
func Supported(model int) bool {
	_, ok := registry[model]
	return ok
}
