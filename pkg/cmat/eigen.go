package cmat

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// realEmbedding builds the 2n×2n real symmetric matrix [[Re,−Im],[Im,Re]]
// of a Hermitian matrix H = Re + i·Im. Each eigenpair (x;y) of the embedding
// corresponds to the complex eigenvector x+iy of H with the same eigenvalue,
// and every eigenvalue of H appears twice in the embedding.
func (m Matrix) realEmbedding() *mat.SymDense {
	n := m.n
	sym := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			re := real(m.data[i*n+j])
			sym.SetSym(i, j, re)
			sym.SetSym(n+i, n+j, re)
		}
		// The whole upper-right block sits in the upper triangle of the
		// embedding, so every (i, n+j) pair is set exactly once.
		for j := 0; j < n; j++ {
			sym.SetSym(i, n+j, -imag(m.data[i*n+j]))
		}
	}
	return sym
}

// ClipPositive projects a Hermitian matrix onto the positive semi-definite
// cone: eigendecompose, clip negative eigenvalues to zero, reconstruct.
// The input must be Hermitian (use Hermitize first if it may not be).
func (m Matrix) ClipPositive() (Matrix, error) {
	n := m.n
	var eig mat.EigenSym
	if ok := eig.Factorize(m.realEmbedding(), true); !ok {
		return Matrix{}, fmt.Errorf("eigendecomposition failed for %d×%d Hermitian matrix", n, n)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Each eigenvalue of m shows up twice in the embedding and both real
	// eigenvectors map onto the same complex projector, so summing over all
	// 2n pairs and halving reproduces the n-term complex reconstruction.
	out := Zero(n)
	z := make([]complex128, n)
	for k := 0; k < 2*n; k++ {
		if vals[k] <= 0 {
			continue
		}
		for i := 0; i < n; i++ {
			z[i] = complex(vecs.At(i, k), vecs.At(n+i, k))
		}
		w := complex(vals[k]/2, 0)
		for i := 0; i < n; i++ {
			wi := w * z[i]
			for j := 0; j < n; j++ {
				out.data[i*n+j] += wi * cmplx.Conj(z[j])
			}
		}
	}
	return out, nil
}

// EigvalsH returns the n real eigenvalues of a Hermitian matrix in
// ascending order.
func (m Matrix) EigvalsH() ([]float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m.realEmbedding(), false); !ok {
		return nil, fmt.Errorf("eigendecomposition failed for %d×%d Hermitian matrix", m.n, m.n)
	}
	// The embedding doubles every eigenvalue; gonum returns them sorted
	// ascending, so consecutive pairs collapse to one value each.
	vals := eig.Values(nil)
	out := make([]float64, m.n)
	for i := 0; i < m.n; i++ {
		out[i] = vals[2*i]
	}
	return out, nil
}
