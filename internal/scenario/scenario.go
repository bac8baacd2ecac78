// Package scenario loads and runs declarative substitution scenarios.
//
// A scenario seeds a registry with initial entries, then performs a
// sequence of substitutions through the engine. Handles are plain strings,
// which is enough to demonstrate and verify scope semantics from the CLI.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/regswap/internal/engine"
	"github.com/zjrosen/regswap/internal/log"
	"github.com/zjrosen/regswap/internal/registry"
)

// Scenario errors
var (
	ErrNoSteps = errors.New("scenario has no steps")
)

// Entry is one initial registry binding.
type Entry struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Step is one substitution to perform.
type Step struct {
	// Substitute is the dotted name to patch.
	Substitute string `yaml:"substitute"`

	// Variants maps lineage names to their patched values. Lineage names
	// without an explicit variant get a synthesized "patched:<name>" value.
	Variants map[string]string `yaml:"variants"`

	// Aux lists extra entries the provider registers under the root as a
	// side effect of producing the target; they become the step's
	// dependency closure.
	Aux map[string]string `yaml:"aux"`
}

// Scenario is a named sequence of substitutions over an initial registry.
type Scenario struct {
	Name    string  `yaml:"name"`
	Initial []Entry `yaml:"initial"`
	Steps   []Step  `yaml:"steps"`
}

// Parse decodes and validates a YAML scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	if len(sc.Steps) == 0 {
		return nil, ErrNoSteps
	}
	for i, step := range sc.Steps {
		if _, err := registry.Lineage(step.Substitute); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	for i, entry := range sc.Initial {
		if _, err := registry.Lineage(entry.Name); err != nil {
			return nil, fmt.Errorf("initial entry %d: %w", i+1, err)
		}
	}
	return &sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied scenario file
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// provider builds the engine provider for one step. The target name's call
// also registers the step's aux entries, mimicking a real provider pulling
// in dependencies as a side effect.
func (s *Step) provider(reg registry.Registry) engine.Provider {
	return func(ctx context.Context, name string) (any, error) {
		if name == s.Substitute {
			for auxName, auxValue := range s.Aux {
				reg.Set(auxName, auxValue)
			}
		}
		if value, ok := s.Variants[name]; ok {
			return value, nil
		}
		return "patched:" + name, nil
	}
}

// StepResult records the outcome of one substitution step.
type StepResult struct {
	Name    string         `json:"name"`
	Root    string         `json:"root"`
	ScopeID string         `json:"scope_id,omitempty"`
	Cached  bool           `json:"cached"`
	Value   any            `json:"value"`
	Err     string         `json:"error,omitempty"`
	During  map[string]any `json:"during,omitempty"`
}

// Result records the outcome of a scenario run.
type Result struct {
	Scenario string       `json:"scenario"`
	Steps    []StepResult `json:"steps"`

	// Restored reports whether the registry's final state equals its
	// initial state exactly, which every substitute-only scenario must
	// satisfy.
	Restored bool `json:"restored"`

	// Final is the registry's state after all steps.
	Final map[string]any `json:"final"`
}

// Runner executes scenarios against an engine and its registry.
type Runner struct {
	reg    registry.Registry
	engine *engine.Engine
}

// NewRunner creates a Runner over reg and eng.
func NewRunner(reg registry.Registry, eng *engine.Engine) *Runner {
	return &Runner{reg: reg, engine: eng}
}

// Run seeds the registry, executes every step, and verifies the registry
// was restored to its seeded state. A failing step is recorded in the
// result and does not abort the run; restoration must hold regardless.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	for _, entry := range sc.Initial {
		r.reg.Set(entry.Name, entry.Value)
	}
	before := dump(r.reg)

	result := &Result{Scenario: sc.Name}
	for _, step := range sc.Steps {
		result.Steps = append(result.Steps, r.runStep(ctx, step))
	}

	result.Final = dump(r.reg)
	result.Restored = equalStates(before, result.Final)
	if !result.Restored {
		log.Error(log.CatScenario, "registry not restored", "scenario", sc.Name)
	}

	log.Info(log.CatScenario, "scenario complete",
		"scenario", sc.Name, "steps", len(result.Steps), "restored", result.Restored)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) StepResult {
	root, _ := registry.Root(step.Substitute)
	res := StepResult{Name: step.Substitute, Root: root}

	scope, err := r.engine.Substitute(ctx, step.Substitute, step.provider(r.reg))
	if err != nil {
		res.Err = err.Error()
		log.ErrorErr(log.CatScenario, "step failed", err, "name", step.Substitute)
		return res
	}
	defer scope.Close()

	res.ScopeID = scope.ID()
	res.Cached = scope.Cached()
	res.Value = scope.Value()
	res.During = dump(r.reg)
	return res
}

// dump captures a registry's full state.
func dump(reg registry.Registry) map[string]any {
	state := make(map[string]any)
	for _, key := range reg.Keys() {
		if value, ok := reg.Get(key); ok {
			state[key] = value
		}
	}
	return state
}

// equalStates compares two registry dumps by key and value.
func equalStates(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		other, ok := b[key]
		if !ok || other != value {
			return false
		}
	}
	return true
}
