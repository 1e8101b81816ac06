package simulator

import (
	"fmt"
	"math"

	"github.com/aristath/coherence/pkg/cmat"
)

// Channel describes one Lindblad decoherence process: a jump operator and
// its non-negative decay rate. A Channel is immutable once constructed.
//
// The operator's dimension is checked against the owning domain's
// Hamiltonian when the DomainConfig is built; a channel on its own does not
// know the domain dimension.
type Channel struct {
	operator cmat.Matrix
	rate     float64
}

// NewChannel creates a decoherence channel. The rate must be finite and
// non-negative.
func NewChannel(operator cmat.Matrix, rate float64) (Channel, error) {
	if operator.Dim() < 1 {
		return Channel{}, fmt.Errorf("channel operator must be a constructed matrix")
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Channel{}, fmt.Errorf("channel rate must be finite, got %v", rate)
	}
	if rate < 0 {
		return Channel{}, fmt.Errorf("channel rate must be non-negative, got %v", rate)
	}
	return Channel{operator: operator, rate: rate}, nil
}

// Operator returns the channel's jump operator.
func (c Channel) Operator() cmat.Matrix {
	return c.operator
}

// Rate returns the channel's decay rate.
func (c Channel) Rate() float64 {
	return c.rate
}
