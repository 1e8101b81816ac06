// Package simulator evolves small open quantum systems ("domains") under
// combined coherent, dissipative, and feedback dynamics, with projective
// measurement collapse and diagnostic snapshots.
package simulator

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/aristath/coherence/pkg/cmat"
)

// DomainState owns the mutable density matrix ρ for one domain. After every
// mutation ρ is Hermitian, positive semi-definite, and unit-trace up to
// floating tolerance; the physical projection at the end of each update
// step enforces this exactly.
type DomainState struct {
	config *DomainConfig
	rho    cmat.Matrix
}

// newDomainState builds a domain from its configuration and an initial
// pure-state vector. The vector is normalized to unit norm and converted to
// a density matrix via the outer product ρ₀ = ψψ†; a zero-norm vector is a
// construction error.
func newDomainState(cfg *DomainConfig, initial cmat.Vector) (*DomainState, error) {
	if initial.Len() != cfg.Dimension() {
		return nil, fmt.Errorf("initial state length %d does not match domain dimension %d", initial.Len(), cfg.Dimension())
	}
	psi, err := initial.Normalized()
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	return &DomainState{config: cfg, rho: psi.Outer()}, nil
}

// Evolve advances ρ by dt using explicit Euler integration of the Lindblad
// master equation, with an optional feedback term that biases the state
// toward the subspace of the given projector:
//
//	dρ/dt = (−i/ħ)[H,ρ]
//	      + Σ rate·(L·ρ·L† − ½(L†Lρ + ρL†L))
//	      + strength·(Pρ + ρP − 2⟨P⟩ρ)      with ⟨P⟩ = Re(trace(ρP))
//
// A negative strength acts as an anti-bias. substeps ≤ 1 performs exactly
// one Euler update followed by one physical projection (the default
// behavior); substeps n > 1 splits dt into n equal updates, each followed
// by projection, for callers that want tighter drift control at large dt.
func (d *DomainState) Evolve(dt, timeUnit float64, projector *cmat.Matrix, strength float64, substeps int) error {
	if dt <= 0 || math.IsNaN(dt) {
		return fmt.Errorf("dt must be positive, got %v", dt)
	}
	if projector != nil && projector.Dim() != d.config.Dimension() {
		return fmt.Errorf("intention projector dimension %d does not match domain dimension %d", projector.Dim(), d.config.Dimension())
	}
	if substeps < 1 {
		substeps = 1
	}

	h := dt / float64(substeps)
	for s := 0; s < substeps; s++ {
		if err := d.eulerStep(h, timeUnit, projector, strength); err != nil {
			return err
		}
	}
	return nil
}

func (d *DomainState) eulerStep(dt, timeUnit float64, projector *cmat.Matrix, strength float64) error {
	rho := d.rho
	ham := d.config.hamiltonian

	// Coherent term: (−i/ħ)·(Hρ − ρH)
	commutator := ham.Mul(rho).Sub(rho.Mul(ham))
	delta := commutator.Scale(complex(0, -1/timeUnit))

	// Dissipative term, one Lindblad dissipator per channel.
	for _, ch := range d.config.channels {
		if ch.rate == 0 {
			continue
		}
		l := ch.operator
		ld := l.Dagger()
		ldl := ld.Mul(l)
		jump := l.Mul(rho).Mul(ld)
		anti := ldl.Mul(rho).Add(rho.Mul(ldl)).Scale(0.5)
		delta = delta.Add(jump.Sub(anti).Scale(complex(ch.rate, 0)))
	}

	// Feedback term: drives ⟨P⟩ toward 1 for positive strength.
	if projector != nil && strength != 0 {
		p := *projector
		expP := real(rho.Mul(p).Trace())
		feedback := p.Mul(rho).Add(rho.Mul(p)).Sub(rho.Scale(complex(2*expP, 0)))
		delta = delta.Add(feedback.Scale(complex(strength, 0)))
	}

	next, err := physicalProjection(rho.Add(delta.Scale(complex(dt, 0))))
	if err != nil {
		return err
	}
	d.rho = next
	return nil
}

// physicalProjection restores a matrix drifted by finite-step integration
// to a valid density matrix: Hermitize, clip negative eigenvalues to zero,
// renormalize to unit trace. A non-positive trace after clipping means the
// state has fully decayed, which signals a pathological configuration or
// too large a step and is treated as fatal.
func physicalProjection(x cmat.Matrix) (cmat.Matrix, error) {
	clipped, err := x.Hermitize().ClipPositive()
	if err != nil {
		return cmat.Matrix{}, err
	}
	tr := real(clipped.Trace())
	if tr <= 0 {
		return cmat.Matrix{}, fmt.Errorf("density matrix trace vanished after projection (trace %v)", tr)
	}
	return clipped.Scale(complex(1/tr, 0)), nil
}

// Collapse projects ρ onto the named measurement outcome:
// ρ → Op·ρ·Op† / probability, followed by physical projection. Collapsing
// onto an outcome the current state cannot produce (probability ≤ 0) is a
// caller programming error and fails.
func (d *DomainState) Collapse(label string) error {
	if len(d.config.measurements) == 0 {
		return fmt.Errorf("domain has no measurement operators configured")
	}
	op, ok := d.config.measurements[label]
	if !ok {
		return fmt.Errorf("unknown measurement label %q", label)
	}

	post := op.Mul(d.rho).Mul(op.Dagger())
	probability := real(post.Trace())
	if probability <= 0 {
		return fmt.Errorf("measurement %q has zero probability in the current state", label)
	}

	next, err := physicalProjection(post.Scale(complex(1/probability, 0)))
	if err != nil {
		return err
	}
	d.rho = next
	return nil
}

// Snapshot captures the domain's diagnostics without mutating it.
func (d *DomainState) Snapshot() Snapshot {
	rho := d.rho
	n := rho.Dim()

	var coherence float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				coherence += cmplx.Abs(rho.At(i, j))
			}
		}
	}

	snap := Snapshot{
		DensityMatrix: rho.Clone(),
		Coherence:     coherence,
		Purity:        clamp01(real(rho.Mul(rho).Trace())),
	}

	if len(d.config.measurements) > 0 {
		probs := make(map[string]float64, len(d.config.measurements))
		for label, op := range d.config.measurements {
			probs[label] = clamp01(real(op.Dagger().Mul(op).Mul(rho).Trace()))
		}
		snap.MeasurementProbabilities = probs
	}

	if d.config.quality != nil {
		quality := real(d.config.quality.Mul(rho).Trace())
		snap.Quality = &quality
	}
	return snap
}

// DensityMatrix returns an independent copy of the live density matrix.
func (d *DomainState) DensityMatrix() cmat.Matrix {
	return d.rho.Clone()
}

// clamp01 absorbs the small negative / over-unity noise finite precision
// can push a mathematically bounded quantity into.
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
