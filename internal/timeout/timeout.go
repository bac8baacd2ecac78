// Package timeout normalizes timeout and panic signaling from substitution
// providers.
//
// Providers typically wrap code-loading machinery that is not under the
// caller's control. Some of that machinery enforces deadlines by panicking
// rather than returning an error, which breaks the convention that failures
// surface as error values and unwinds through every frame between the
// provider and the caller. The wrappers here are a tool of last resort:
// they convert those signals into ordinary errors so callers can handle a
// failed substitution like any other.
package timeout

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/regswap/internal/engine"
	"github.com/zjrosen/regswap/internal/log"
)

// Error reports that a provider ran past its deadline. It matches
// context.DeadlineExceeded via errors.Is so existing deadline handling
// applies unchanged.
type Error struct {
	// Name is the resource the provider was producing.
	Name string
	// Elapsed is how long the provider ran before the deadline fired.
	Elapsed time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider for %q timed out after %s", e.Name, e.Elapsed)
}

// Is reports whether target is context.DeadlineExceeded.
func (e *Error) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// SafeProvider wraps p so a panic inside the provider surfaces as an
// ordinary error instead of unwinding through the engine. The panic value
// is logged before conversion.
func SafeProvider(p engine.Provider) engine.Provider {
	return func(ctx context.Context, name string) (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(log.CatEngine, "provider panicked",
					"name", name, "panic", fmt.Sprint(r))
				if perr, ok := r.(error); ok {
					err = fmt.Errorf("provider for %q panicked: %w", name, perr)
				} else {
					err = fmt.Errorf("provider for %q panicked: %v", name, r)
				}
				value = nil
			}
		}()
		return p(ctx, name)
	}
}

// Enforce runs p under a per-call deadline. The provider must honor its
// context; when the deadline fires, the resulting context error is
// converted into an *Error carrying the resource name and elapsed time.
func Enforce(p engine.Provider, d time.Duration) engine.Provider {
	return func(ctx context.Context, name string) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		start := time.Now()
		value, err := p(ctx, name)
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Name: name, Elapsed: time.Since(start)}
		}
		return value, err
	}
}
