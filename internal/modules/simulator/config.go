package simulator

import (
	"fmt"

	"github.com/aristath/coherence/pkg/cmat"
)

// DomainConfig is the immutable description of one simulated domain: its
// Hamiltonian, its decoherence channels, an optional named set of
// measurement operators, and an optional scalar quality observable.
// All dimensional consistency is validated eagerly at construction, so a
// DomainConfig held by a DomainState is known-good for the engine's
// lifetime.
type DomainConfig struct {
	hamiltonian  cmat.Matrix
	channels     []Channel
	measurements map[string]cmat.Matrix
	quality      *cmat.Matrix
}

// NewDomainConfig validates and bundles a domain description. Every channel
// operator, measurement operator, and the quality operator (if present)
// must share the Hamiltonian's dimension; measurement labels must be
// non-empty. The channels slice and measurements map are copied, so later
// mutation of the caller's collections does not affect the configuration.
func NewDomainConfig(
	hamiltonian cmat.Matrix,
	channels []Channel,
	measurements map[string]cmat.Matrix,
	quality *cmat.Matrix,
) (*DomainConfig, error) {
	n := hamiltonian.Dim()
	if n < 1 {
		return nil, fmt.Errorf("hamiltonian must be a constructed matrix")
	}

	for i, ch := range channels {
		if ch.operator.Dim() != n {
			return nil, fmt.Errorf("channel %d operator dimension %d does not match hamiltonian dimension %d", i, ch.operator.Dim(), n)
		}
	}

	var meas map[string]cmat.Matrix
	if len(measurements) > 0 {
		meas = make(map[string]cmat.Matrix, len(measurements))
		for label, op := range measurements {
			if label == "" {
				return nil, fmt.Errorf("measurement labels must be non-empty")
			}
			if op.Dim() != n {
				return nil, fmt.Errorf("measurement %q operator dimension %d does not match hamiltonian dimension %d", label, op.Dim(), n)
			}
			meas[label] = op
		}
	}

	if quality != nil && quality.Dim() != n {
		return nil, fmt.Errorf("quality operator dimension %d does not match hamiltonian dimension %d", quality.Dim(), n)
	}

	cfg := &DomainConfig{
		hamiltonian:  hamiltonian,
		channels:     append([]Channel(nil), channels...),
		measurements: meas,
	}
	if quality != nil {
		q := *quality
		cfg.quality = &q
	}
	return cfg, nil
}

// Dimension returns the Hilbert-space dimension shared by all of the
// configuration's operators.
func (c *DomainConfig) Dimension() int {
	return c.hamiltonian.Dim()
}

// MeasurementLabels returns the configured measurement labels, in no
// particular order. Nil when no measurements are configured.
func (c *DomainConfig) MeasurementLabels() []string {
	if len(c.measurements) == 0 {
		return nil
	}
	labels := make([]string, 0, len(c.measurements))
	for label := range c.measurements {
		labels = append(labels, label)
	}
	return labels
}
