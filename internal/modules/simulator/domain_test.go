package simulator

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/coherence/pkg/cmat"
)

// Common two-level operators.
func lowering(t *testing.T) cmat.Matrix {
	t.Helper()
	return mustMatrix(t, 2, []complex128{0, 1, 0, 0})
}

func projectorGround(t *testing.T) cmat.Matrix {
	t.Helper()
	return mustMatrix(t, 2, []complex128{1, 0, 0, 0})
}

func projectorExcited(t *testing.T) cmat.Matrix {
	t.Helper()
	return mustMatrix(t, 2, []complex128{0, 0, 0, 1})
}

func mustVector(t *testing.T, data []complex128) cmat.Vector {
	t.Helper()
	v, err := cmat.NewVector(data)
	require.NoError(t, err)
	return v
}

func newTestDomain(t *testing.T, cfg *DomainConfig, initial []complex128) *DomainState {
	t.Helper()
	state, err := newDomainState(cfg, mustVector(t, initial))
	require.NoError(t, err)
	return state
}

// assertPhysical checks the density-matrix invariants that must hold after
// every mutation: unit trace, Hermiticity, and positive semi-definiteness.
func assertPhysical(t *testing.T, rho cmat.Matrix) {
	t.Helper()
	assert.InDelta(t, 1.0, real(rho.Trace()), 1e-9, "trace should be 1")
	assert.InDelta(t, 0.0, imag(rho.Trace()), 1e-9, "trace should be real")

	for i := 0; i < rho.Dim(); i++ {
		for j := 0; j < rho.Dim(); j++ {
			diff := cmplx.Abs(rho.At(i, j) - cmplx.Conj(rho.At(j, i)))
			assert.LessOrEqual(t, diff, 1e-9, "density matrix should be Hermitian")
		}
	}

	vals, err := rho.EigvalsH()
	require.NoError(t, err)
	for _, v := range vals {
		assert.GreaterOrEqual(t, v, -1e-9, "eigenvalues should be non-negative")
	}
}

func TestNewDomainState_ZeroNormVector(t *testing.T) {
	cfg, err := NewDomainConfig(mustMatrix(t, 2, nil), nil, nil, nil)
	require.NoError(t, err)

	_, err = newDomainState(cfg, mustVector(t, []complex128{0, 0}))
	assert.Error(t, err)
}

func TestNewDomainState_LengthMismatch(t *testing.T) {
	cfg, err := NewDomainConfig(mustMatrix(t, 2, nil), nil, nil, nil)
	require.NoError(t, err)

	_, err = newDomainState(cfg, mustVector(t, []complex128{1, 0, 0}))
	assert.Error(t, err)
}

func TestNewDomainState_NormalizesInitialVector(t *testing.T) {
	cfg, err := NewDomainConfig(mustMatrix(t, 2, []complex128{1, 0, 0, -1}), nil, nil, nil)
	require.NoError(t, err)

	// Un-normalized [1,1] becomes the equal superposition with ρ_ij = 1/2.
	state := newTestDomain(t, cfg, []complex128{1, 1})
	rho := state.DensityMatrix()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 0.5, real(rho.At(i, j)), 1e-12)
		}
	}
}

func TestEvolve_Validation(t *testing.T) {
	cfg, err := NewDomainConfig(mustMatrix(t, 2, []complex128{1, 0, 0, -1}), nil, nil, nil)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 0})

	assert.Error(t, state.Evolve(0, 1.0, nil, 0, 0), "dt = 0 should be rejected")
	assert.Error(t, state.Evolve(-0.1, 1.0, nil, 0, 0), "negative dt should be rejected")

	wrongProjector := mustMatrix(t, 3, nil)
	assert.Error(t, state.Evolve(0.01, 1.0, &wrongProjector, 1.0, 0), "projector dimension mismatch should be rejected")
}

func TestEvolve_FreeEvolutionKeepsPurity(t *testing.T) {
	// Two-level system, H = diag(1, −1), no channels: evolution is purely
	// unitary, so purity must hold at 1 across many small steps.
	cfg, err := NewDomainConfig(mustMatrix(t, 2, []complex128{1, 0, 0, -1}), nil, nil, nil)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 1})

	for i := 0; i < 100; i++ {
		require.NoError(t, state.Evolve(0.01, 1.0, nil, 0, 0))
		assert.InDelta(t, 1.0, real(state.DensityMatrix().Trace()), 1e-9)
	}

	snap := state.Snapshot()
	assert.InDelta(t, 1.0, snap.Purity, 1e-6, "unitary evolution should preserve purity")
	assertPhysical(t, state.DensityMatrix())
}

func TestEvolve_DarkStateStaysFixed(t *testing.T) {
	// The lowering operator annihilates |0⟩, so ρ = diag(1, 0) is a fixed
	// point of the pure-decay channel.
	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, []complex128{1, 0, 0, -1}),
		[]Channel{mustChannel(t, lowering(t), 1.0)},
		nil, nil,
	)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 0})

	for i := 0; i < 50; i++ {
		require.NoError(t, state.Evolve(0.01, 1.0, nil, 0, 0))
	}

	rho := state.DensityMatrix()
	assert.InDelta(t, 1.0, real(rho.At(0, 0)), 1e-9)
	assert.InDelta(t, 0.0, real(rho.At(1, 1)), 1e-9)
	assert.InDelta(t, 0.0, cmplx.Abs(rho.At(0, 1)), 1e-9)
}

func TestEvolve_DecayDrainsExcitedState(t *testing.T) {
	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, []complex128{1, 0, 0, -1}),
		[]Channel{mustChannel(t, lowering(t), 1.0)},
		nil, nil,
	)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{0, 1})

	previous := 1.0
	for i := 0; i < 50; i++ {
		require.NoError(t, state.Evolve(0.01, 1.0, nil, 0, 0))
		excited := real(state.DensityMatrix().At(1, 1))
		assert.Less(t, excited, previous, "excited population should decay monotonically")
		previous = excited
		assertPhysical(t, state.DensityMatrix())
	}
	assert.Less(t, previous, 0.7, "population should have decayed appreciably")
}

func TestEvolve_FeedbackBiasesTowardProjector(t *testing.T) {
	excited := projectorExcited(t)
	cfg, err := NewDomainConfig(cmat.Zero(2), nil, nil, &excited)
	require.NoError(t, err)

	state := newTestDomain(t, cfg, []complex128{1, 1})
	snap := state.Snapshot()
	require.NotNil(t, snap.Quality)
	require.InDelta(t, 0.5, *snap.Quality, 1e-12)

	for i := 0; i < 20; i++ {
		require.NoError(t, state.Evolve(0.05, 1.0, &excited, 0.5, 0))
	}

	snap = state.Snapshot()
	require.NotNil(t, snap.Quality)
	assert.Greater(t, *snap.Quality, 0.6, "positive strength should bias toward the projector subspace")
	assertPhysical(t, state.DensityMatrix())
}

func TestEvolve_NegativeStrengthActsAsAntiBias(t *testing.T) {
	excited := projectorExcited(t)
	cfg, err := NewDomainConfig(cmat.Zero(2), nil, nil, &excited)
	require.NoError(t, err)

	state := newTestDomain(t, cfg, []complex128{1, 1})
	for i := 0; i < 20; i++ {
		require.NoError(t, state.Evolve(0.05, 1.0, &excited, -0.5, 0))
	}

	snap := state.Snapshot()
	require.NotNil(t, snap.Quality)
	assert.Less(t, *snap.Quality, 0.4, "negative strength should bias away from the projector subspace")
	assertPhysical(t, state.DensityMatrix())
}

func TestEvolve_ZeroStrengthIgnoresProjector(t *testing.T) {
	cfg, err := NewDomainConfig(cmat.Zero(2), nil, nil, nil)
	require.NoError(t, err)

	excited := projectorExcited(t)
	state := newTestDomain(t, cfg, []complex128{1, 1})
	require.NoError(t, state.Evolve(0.05, 1.0, &excited, 0, 0))

	// H = 0, no channels, strength 0: the state must not move.
	rho := state.DensityMatrix()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 0.5, real(rho.At(i, j)), 1e-12)
			assert.InDelta(t, 0.0, imag(rho.At(i, j)), 1e-12)
		}
	}
}

func TestEvolve_SubstepsKeepInvariants(t *testing.T) {
	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, []complex128{1, 0, 0, -1}),
		[]Channel{mustChannel(t, lowering(t), 0.5)},
		nil, nil,
	)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 1})

	require.NoError(t, state.Evolve(0.2, 1.0, nil, 0, 8))
	assertPhysical(t, state.DensityMatrix())
}

func TestCollapse_ProjectsAndRenormalizes(t *testing.T) {
	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, []complex128{1, 0, 0, -1}),
		nil,
		map[string]cmat.Matrix{
			"ground":  projectorGround(t),
			"excited": projectorExcited(t),
		},
		nil,
	)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 1})

	require.NoError(t, state.Collapse("ground"))

	rho := state.DensityMatrix()
	assert.InDelta(t, 1.0, real(rho.At(0, 0)), 1e-9)
	assert.InDelta(t, 0.0, real(rho.At(1, 1)), 1e-9)
	assertPhysical(t, rho)
}

func TestCollapse_Idempotent(t *testing.T) {
	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, []complex128{1, 0, 0, -1}),
		nil,
		map[string]cmat.Matrix{"ground": projectorGround(t)},
		nil,
	)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 1})

	require.NoError(t, state.Collapse("ground"))
	first := state.DensityMatrix()

	require.NoError(t, state.Collapse("ground"))
	second := state.DensityMatrix()

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 0.0, cmplx.Abs(first.At(i, j)-second.At(i, j)), 1e-9,
				"collapsing twice onto the same outcome should leave the state unchanged")
		}
	}
}

func TestCollapse_Errors(t *testing.T) {
	noMeasurements, err := NewDomainConfig(mustMatrix(t, 2, nil), nil, nil, nil)
	require.NoError(t, err)
	state := newTestDomain(t, noMeasurements, []complex128{1, 0})
	assert.Error(t, state.Collapse("ground"), "collapse without configured measurements should fail")

	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, nil),
		nil,
		map[string]cmat.Matrix{
			"ground": projectorGround(t),
			// |0⟩⟨1| annihilates the |0⟩ state the domain starts in.
			"drain": mustMatrix(t, 2, []complex128{0, 1, 0, 0}),
		},
		nil,
	)
	require.NoError(t, err)

	state = newTestDomain(t, cfg, []complex128{1, 0})
	assert.Error(t, state.Collapse("missing"), "unknown label should fail")

	err = state.Collapse("drain")
	require.Error(t, err, "zero-probability outcome should fail")
	assert.Contains(t, err.Error(), "zero probability")
}

func TestSnapshot_Diagnostics(t *testing.T) {
	quality := mustMatrix(t, 2, []complex128{1, 0, 0, -1})
	cfg, err := NewDomainConfig(
		mustMatrix(t, 2, []complex128{1, 0, 0, -1}),
		nil,
		map[string]cmat.Matrix{
			"ground":  projectorGround(t),
			"excited": projectorExcited(t),
		},
		&quality,
	)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 1})

	snap := state.Snapshot()

	// Equal superposition: two off-diagonal entries of 1/2 each.
	assert.InDelta(t, 1.0, snap.Coherence, 1e-12)
	assert.InDelta(t, 1.0, snap.Purity, 1e-12)
	assert.InDelta(t, 0.5, snap.MeasurementProbabilities["ground"], 1e-12)
	assert.InDelta(t, 0.5, snap.MeasurementProbabilities["excited"], 1e-12)
	require.NotNil(t, snap.Quality)
	assert.InDelta(t, 0.0, *snap.Quality, 1e-12)

	for _, p := range snap.MeasurementProbabilities {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestSnapshot_ClassicalStateHasZeroCoherence(t *testing.T) {
	cfg, err := NewDomainConfig(mustMatrix(t, 2, []complex128{1, 0, 0, -1}), nil, nil, nil)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 0})

	snap := state.Snapshot()
	assert.Equal(t, 0.0, snap.Coherence)
	assert.Nil(t, snap.Quality, "quality should be absent when no operator is configured")
	assert.Nil(t, snap.MeasurementProbabilities)
}

func TestSnapshot_DoesNotAliasLiveState(t *testing.T) {
	cfg, err := NewDomainConfig(mustMatrix(t, 2, []complex128{1, 0, 0, -1}), nil, nil, nil)
	require.NoError(t, err)
	state := newTestDomain(t, cfg, []complex128{1, 1})

	before := state.Snapshot()
	require.NoError(t, state.Evolve(0.1, 1.0, nil, 0, 0))

	// The earlier snapshot must still show the pre-step state.
	assert.InDelta(t, 0.5, real(before.DensityMatrix.At(0, 1)), 1e-12)
	after := state.Snapshot()
	assert.Less(t, math.Abs(real(after.DensityMatrix.At(0, 1))-0.5), 0.5,
		"state should actually have moved")
	assert.NotEqual(t, before.DensityMatrix.At(0, 1), after.DensityMatrix.At(0, 1))
}
