// Package guard serializes substitution scopes that share a root namespace.
// Supporting nested patches under the same root would require not resetting
// the whole root namespace on entry, so that entries holding shared types
// could survive; instead a second scope for an active root fails fast.
package guard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zjrosen/regswap/internal/log"
)

// Guard errors
var (
	ErrNestingConflict = errors.New("root namespace already under substitution")
)

// Guard tracks which name is currently being patched under each root. At
// most one scope may hold a given root at a time; there is no queueing.
type Guard struct {
	mu     sync.Mutex
	active map[string]string
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{
		active: make(map[string]string),
	}
}

// Acquire marks root as owned by a scope substituting name. If another
// name is already being substituted under root it fails immediately with
// ErrNestingConflict, reporting both the held and the requested name.
func (g *Guard) Acquire(root, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if held, ok := g.active[root]; ok {
		return fmt.Errorf("cannot substitute %q under root %q while %q is active: %w",
			name, root, held, ErrNestingConflict)
	}

	g.active[root] = name
	log.Debug(log.CatGuard, "root acquired", "root", root, "name", name)
	return nil
}

// Release clears the entry for root. It must be called exactly once per
// successful Acquire, on error paths included. Releasing a root that is
// not held is a no-op.
func (g *Guard) Release(root string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[root]; !ok {
		log.Warn(log.CatGuard, "release of unheld root", "root", root)
		return
	}

	delete(g.active, root)
	log.Debug(log.CatGuard, "root released", "root", root)
}

// Active returns the name currently held for root, if any.
func (g *Guard) Active(root string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name, ok := g.active[root]
	return name, ok
}
