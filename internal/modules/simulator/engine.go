package simulator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/coherence/pkg/cmat"
	"github.com/rs/zerolog"
)

// ErrUnknownDomain is returned when an operation names a domain the engine
// was not constructed with.
var ErrUnknownDomain = errors.New("unknown domain")

// StepOptions carries the optional per-step feedback inputs.
type StepOptions struct {
	// Projectors maps domain names to intention projectors. A domain
	// absent from the map evolves with no feedback operator.
	Projectors map[string]cmat.Matrix

	// Strength is the uniform intention strength applied to every domain.
	// Ignored when Strengths is non-nil.
	Strength float64

	// Strengths overrides the strength per domain; a domain absent from a
	// non-nil map gets strength 0.
	Strengths map[string]float64

	// Substeps splits each domain's dt into this many equal Euler updates,
	// each followed by physical projection. Values below 2 keep the default
	// single update per step.
	Substeps int
}

// Engine orchestrates a fixed, named collection of domains sharing one time
// unit (ħ). It is synchronous: each call runs to completion on the calling
// goroutine and mutates only the engine's own domains.
type Engine struct {
	domains  map[string]*DomainState
	names    []string
	timeUnit float64
	log      zerolog.Logger
}

// NewEngine builds one DomainState per name. The initial-state and
// configuration maps must cover exactly the same set of names, and the time
// unit must be positive.
func NewEngine(
	initialStates map[string]cmat.Vector,
	configs map[string]*DomainConfig,
	timeUnit float64,
	log zerolog.Logger,
) (*Engine, error) {
	if timeUnit <= 0 || math.IsNaN(timeUnit) {
		return nil, fmt.Errorf("time unit must be positive, got %v", timeUnit)
	}
	for name := range initialStates {
		if _, ok := configs[name]; !ok {
			return nil, fmt.Errorf("domain %q has an initial state but no configuration", name)
		}
	}
	for name := range configs {
		if _, ok := initialStates[name]; !ok {
			return nil, fmt.Errorf("domain %q has a configuration but no initial state", name)
		}
	}

	domains := make(map[string]*DomainState, len(configs))
	names := make([]string, 0, len(configs))
	for name, cfg := range configs {
		state, err := newDomainState(cfg, initialStates[name])
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", name, err)
		}
		domains[name] = state
		names = append(names, name)
	}
	sort.Strings(names)

	return &Engine{
		domains:  domains,
		names:    names,
		timeUnit: timeUnit,
		log:      log.With().Str("module", "simulator").Logger(),
	}, nil
}

// Step advances every domain by the same dt and returns a fresh snapshot
// per domain. Domains are independent: each evolves from its own state and
// its own feedback inputs only.
func (e *Engine) Step(dt float64, opts StepOptions) (map[string]Snapshot, error) {
	snapshots := make(map[string]Snapshot, len(e.domains))
	for _, name := range e.names {
		state := e.domains[name]

		var projector *cmat.Matrix
		if p, ok := opts.Projectors[name]; ok {
			projector = &p
		}
		strength := opts.Strength
		if opts.Strengths != nil {
			strength = opts.Strengths[name]
		}

		if err := state.Evolve(dt, e.timeUnit, projector, strength, opts.Substeps); err != nil {
			return nil, fmt.Errorf("domain %q: %w", name, err)
		}
		snapshots[name] = state.Snapshot()
	}

	e.log.Debug().
		Float64("dt", dt).
		Int("domains", len(snapshots)).
		Msg("Advanced all domains")

	return snapshots, nil
}

// Collapse projects the named domain onto the named measurement outcome and
// returns the post-collapse snapshot.
func (e *Engine) Collapse(domainName, label string) (Snapshot, error) {
	state, ok := e.domains[domainName]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w %q", ErrUnknownDomain, domainName)
	}
	if err := state.Collapse(label); err != nil {
		return Snapshot{}, fmt.Errorf("domain %q: %w", domainName, err)
	}

	e.log.Debug().
		Str("domain", domainName).
		Str("label", label).
		Msg("Collapsed domain onto measurement outcome")

	return state.Snapshot(), nil
}

// DensityMatrix returns a defensive copy of the named domain's live density
// matrix; the internal matrix is never exposed.
func (e *Engine) DensityMatrix(domainName string) (cmat.Matrix, error) {
	state, ok := e.domains[domainName]
	if !ok {
		return cmat.Matrix{}, fmt.Errorf("%w %q", ErrUnknownDomain, domainName)
	}
	return state.DensityMatrix(), nil
}

// Domains returns the domain names in sorted order.
func (e *Engine) Domains() []string {
	return append([]string(nil), e.names...)
}

// Dimension returns the Hilbert-space dimension of the named domain.
func (e *Engine) Dimension(domainName string) (int, error) {
	state, ok := e.domains[domainName]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownDomain, domainName)
	}
	return state.config.Dimension(), nil
}
