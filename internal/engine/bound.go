package engine

import "context"

// Bound pre-binds a commonly substituted name to its provider so call
// sites can open scopes without restating either. It carries no logic of
// its own.
type Bound struct {
	engine   *Engine
	name     string
	provider Provider
}

// Bind returns a pre-bound substitution handle for name.
func (e *Engine) Bind(name string, provider Provider) *Bound {
	return &Bound{
		engine:   e,
		name:     name,
		provider: provider,
	}
}

// Name returns the bound target name.
func (b *Bound) Name() string { return b.name }

// Open opens a substitution scope for the bound name.
func (b *Bound) Open(ctx context.Context) (*Scope, error) {
	return b.engine.Substitute(ctx, b.name, b.provider)
}

// With runs fn inside a scope for the bound name.
func (b *Bound) With(ctx context.Context, fn func(value any) error) error {
	return b.engine.With(ctx, b.name, b.provider, fn)
}
