package simulator

import "github.com/aristath/coherence/pkg/cmat"

// Snapshot is an immutable diagnostic view of one domain at one instant.
// The density matrix it carries is an independent copy, so later evolution
// of the domain never changes a snapshot already handed to a caller.
type Snapshot struct {
	// DensityMatrix is a copy of ρ at capture time.
	DensityMatrix cmat.Matrix

	// Coherence is the sum of absolute values of the off-diagonal entries
	// of ρ. Zero for any diagonal (classical) state.
	Coherence float64

	// Purity is Re(trace(ρ²)), clamped to [0,1].
	Purity float64

	// MeasurementProbabilities maps each configured measurement label to
	// Re(trace(Op†·Op·ρ)), clamped to [0,1]. Nil when the domain has no
	// measurements configured.
	MeasurementProbabilities map[string]float64

	// Quality is Re(trace(Q·ρ)) when a quality operator is configured,
	// nil otherwise.
	Quality *float64
}
