// Package engine implements scoped substitution of named resources in a
// shared registry.
//
// A scope temporarily replaces one dotted name, and every ancestor on its
// lineage, with patched variants produced by a caller-supplied provider.
// Nested namespaces frustrate naive patching in several ways:
//
//   - Entry collisions: when the root of a namespace is patched, all of its
//     descendants must be expunged from the registry, otherwise consumers
//     resolve stale entries that do not match the patched root.
//   - Orphan entries: providers memoize auxiliary entries, but not their
//     ancestors. Reinstalling a memoized entry without its ancestry tree
//     would leave it rootless.
//   - Side-effect leakage: producing a patched variant registers auxiliary
//     entries as a side effect. Those side effects must be undone on exit or
//     patched state leaks into unpatched consumers.
//
// The engine therefore unloads the whole root namespace before production,
// produces the full lineage root-first, and restores the registry to its
// exact pre-scope state when the scope closes, whether the scope ended
// normally or by error.
//
// The engine does not attempt to produce a fully internally consistent
// patched namespace: downstream consumers of a patched entry beyond the
// minimal dependency closure are not recursively repatched.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/regswap/internal/closure"
	"github.com/zjrosen/regswap/internal/guard"
	"github.com/zjrosen/regswap/internal/log"
	"github.com/zjrosen/regswap/internal/registry"
	"github.com/zjrosen/regswap/internal/tracing"
)

// Provider produces a patched variant of the named resource. It may
// register additional entries into the registry as a side effect of
// production; the engine records those side effects as the name's
// dependency closure and undoes them when the scope closes.
type Provider func(ctx context.Context, name string) (any, error)

// Engine orchestrates substitution scopes over a shared registry.
type Engine struct {
	// mu makes guard acquisition, snapshotting, and eviction atomic with
	// respect to other goroutines entering or leaving scopes. It is never
	// held while caller code runs inside an open scope.
	mu       sync.Mutex
	reg      registry.Registry
	closures *closure.Cache
	guard    *guard.Guard
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer sets the tracer used for substitution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// New creates an Engine over the given registry, closure cache, and nesting
// guard. The collaborators are injected so tests can isolate state per
// engine instead of sharing process-wide singletons.
func New(reg registry.Registry, closures *closure.Cache, g *guard.Guard, opts ...Option) *Engine {
	e := &Engine{
		reg:      reg,
		closures: closures,
		guard:    g,
		tracer:   noop.NewTracerProvider().Tracer("regswap"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry this engine operates on.
func (e *Engine) Registry() registry.Registry {
	return e.reg
}

// Scope is one open substitution. The value yielded for the target name is
// available through Value until Close restores the registry.
type Scope struct {
	engine *Engine
	span   trace.Span

	id     string
	name   string
	root   string
	value  any
	cached bool
	snap   *registry.Snapshot

	mu     sync.Mutex
	closed bool
}

// ID returns the scope's unique identifier, used in logs and spans.
func (s *Scope) ID() string { return s.id }

// Name returns the substituted target name.
func (s *Scope) Name() string { return s.name }

// Root returns the root namespace the scope holds.
func (s *Scope) Root() string { return s.root }

// Value returns the patched variant installed for the target name.
func (s *Scope) Value() any { return s.value }

// Cached reports whether the scope was served from the dependency-closure
// cache rather than a fresh discovery pass.
func (s *Scope) Cached() bool { return s.cached }

// Close restores every binding the scope touched to its pre-scope state,
// including absences, then releases the nesting guard for the scope's root.
// Restore always happens before guard release. Close is idempotent; only
// the first call has effect.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	e := s.engine
	e.mu.Lock()
	s.snap.Restore()
	e.guard.Release(s.root)
	e.mu.Unlock()

	log.Debug(log.CatEngine, "scope closed", "scope", s.id, "name", s.name, "root", s.root)
	s.span.AddEvent(tracing.EventGuardReleased)
	s.span.End()
}

// Substitute opens a substitution scope for name. The provider is invoked
// once per lineage element, root to target, and the result of each call is
// installed into the registry under the element's name before the next call
// runs, so later elements can resolve their ancestors. The returned scope
// yields the registry's value for name; the caller must Close it.
//
// Substitute fails fast with registry.ErrInvalidName on malformed names and
// with guard.ErrNestingConflict when the name's root is already under
// substitution; neither leaves side effects. A provider error is returned
// only after the registry has been restored and the guard released.
func (e *Engine) Substitute(ctx context.Context, name string, provider Provider) (*Scope, error) {
	lineage, err := registry.Lineage(name)
	if err != nil {
		return nil, err
	}
	root := lineage[0]
	scopeID := uuid.NewString()

	ctx, span := e.tracer.Start(ctx, tracing.SpanSubstitute, trace.WithAttributes(
		attribute.String(tracing.AttrScopeID, scopeID),
		attribute.String(tracing.AttrName, name),
		attribute.String(tracing.AttrRoot, root),
	))

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard.Acquire(root, name); err != nil {
		endSpanError(span, err)
		return nil, err
	}
	span.AddEvent(tracing.EventGuardAcquired)

	// Freeze the pre-scope state of everything this scope can touch before
	// any mutation: the lineage itself plus every key currently under root.
	// First-write-wins in the snapshot keeps these bindings authoritative
	// even when later steps save overlapping keys.
	snap := registry.NewSnapshot(e.reg)
	snap.Save(lineage...)
	snap.Save(registry.Descendants(e.reg, root)...)
	span.AddEvent(tracing.EventSnapshotTaken)

	fail := func(err error) (*Scope, error) {
		snap.Restore()
		e.guard.Release(root)
		endSpanError(span, err)
		return nil, err
	}

	cl, cached := e.closures.Get(name)
	span.SetAttributes(attribute.Bool(tracing.AttrCached, cached))
	if !cached {
		cl, err = e.discover(ctx, name, lineage, snap, provider)
		if err != nil {
			return fail(fmt.Errorf("provider %q: %w", name, err))
		}
	} else {
		// Operate purely from the memoized closure; its keys join the
		// protected set so their pre-scope bindings restore too.
		snap.Save(cl.Keys()...)
	}

	// Clear the root namespace so no stale state survives into production.
	registry.Evict(e.reg, registry.Descendants(e.reg, root))
	span.AddEvent(tracing.EventRegistryEvicted)

	// Reinstall the closure's captured dependency state; it is unpatched
	// state the provider can resolve while producing the lineage.
	for _, key := range cl.Keys() {
		e.reg.Set(key, cl[key])
	}

	// Produce and install the lineage root-first: later elements depend on
	// their ancestors already being present and correctly linked.
	for _, ancestor := range lineage {
		value, perr := provider(ctx, ancestor)
		if perr != nil {
			return fail(fmt.Errorf("provider %q: %w", ancestor, perr))
		}
		e.reg.Set(ancestor, value)
	}

	if !cached {
		e.closures.Put(name, cl)
		span.AddEvent(tracing.EventClosureRecorded)
	}

	value, _ := e.reg.Get(name)
	log.Debug(log.CatEngine, "scope opened",
		"scope", scopeID, "name", name, "root", root, "cached", cached)

	return &Scope{
		engine: e,
		span:   span,
		id:     scopeID,
		name:   name,
		root:   root,
		value:  value,
		cached: cached,
		snap:   snap,
	}, nil
}

// With opens a scope for name, runs fn with the substituted value, and
// closes the scope on every exit path, panics included.
func (e *Engine) With(ctx context.Context, name string, provider Provider, fn func(value any) error) error {
	scope, err := e.Substitute(ctx, name, provider)
	if err != nil {
		return err
	}
	defer scope.Close()
	return fn(scope.Value())
}

// discover runs the first-time discovery pass for name: it clears the root
// namespace, lets the provider materialize the target once, and records
// which auxiliary keys under root the provider registered as a side effect.
// The discovered keys are evicted and then saved into snap, so keys that
// did not exist before the scope are recorded absent and restore to absent.
func (e *Engine) discover(ctx context.Context, name string, lineage []string, snap *registry.Snapshot, provider Provider) (closure.Closure, error) {
	root := lineage[0]
	ctx, span := e.tracer.Start(ctx, tracing.SpanDiscovery, trace.WithAttributes(
		attribute.String(tracing.AttrName, name),
	))
	defer span.End()

	registry.Evict(e.reg, registry.Descendants(e.reg, root))

	if _, err := provider(ctx, name); err != nil {
		endSpanError(span, err)
		return nil, err
	}

	inLineage := make(map[string]bool, len(lineage))
	for _, ancestor := range lineage {
		inLineage[ancestor] = true
	}

	cl := closure.Closure{}
	var discovered []string
	for _, key := range registry.Descendants(e.reg, root) {
		if inLineage[key] {
			continue
		}
		value, ok := e.reg.Get(key)
		if !ok {
			continue
		}
		cl[key] = value
		discovered = append(discovered, key)
	}

	registry.Evict(e.reg, discovered)
	snap.Save(discovered...)

	log.Debug(log.CatEngine, "discovery complete",
		"name", name, "closure_keys", len(discovered))
	return cl, nil
}

func endSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
