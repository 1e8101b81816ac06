// Package cmat provides small dense complex matrices and vectors for
// quantum state calculations: products, adjoints, traces, outer products,
// and eigendecomposition of Hermitian matrices.
package cmat

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Matrix is a square complex matrix with row-major storage.
// A Matrix is immutable after construction: all operations return fresh
// values and nothing aliases the backing slice, so Matrix values can be
// shared and copied freely.
type Matrix struct {
	n    int
	data []complex128 // row-major, length n*n
}

// New creates an n×n matrix from row-major data. A nil data slice yields the
// zero matrix. The data is copied.
func New(n int, data []complex128) (Matrix, error) {
	if n < 1 {
		return Matrix{}, fmt.Errorf("matrix dimension must be at least 1, got %d", n)
	}
	if data != nil && len(data) != n*n {
		return Matrix{}, fmt.Errorf("matrix data length %d does not match dimension %d (want %d)", len(data), n, n*n)
	}
	m := Matrix{n: n, data: make([]complex128, n*n)}
	copy(m.data, data)
	return m, nil
}

// FromRows creates a matrix from a slice of rows. Every row must have the
// same length as the number of rows.
func FromRows(rows [][]complex128) (Matrix, error) {
	n := len(rows)
	if n < 1 {
		return Matrix{}, fmt.Errorf("matrix must have at least one row")
	}
	m := Matrix{n: n, data: make([]complex128, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return Matrix{}, fmt.Errorf("row %d has length %d, expected %d (matrix must be square)", i, len(row), n)
		}
		copy(m.data[i*n:(i+1)*n], row)
	}
	return m, nil
}

// Zero returns the n×n zero matrix. n must be at least 1.
func Zero(n int) Matrix {
	return Matrix{n: n, data: make([]complex128, n*n)}
}

// Identity returns the n×n identity matrix. n must be at least 1.
func Identity(n int) Matrix {
	m := Zero(n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Dim returns the matrix dimension n. The zero value of Matrix has Dim 0
// and is not usable in arithmetic.
func (m Matrix) Dim() int {
	return m.n
}

// At returns the entry at row i, column j.
func (m Matrix) At(i, j int) complex128 {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(fmt.Sprintf("cmat: index (%d,%d) out of range for dimension %d", i, j, m.n))
	}
	return m.data[i*m.n+j]
}

// Clone returns an independent copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := Matrix{n: m.n, data: make([]complex128, len(m.data))}
	copy(out.data, m.data)
	return out
}

func (m Matrix) checkSameDim(o Matrix, op string) {
	if m.n != o.n {
		panic(fmt.Sprintf("cmat: %s dimension mismatch %d vs %d", op, m.n, o.n))
	}
}

// Add returns m + o.
func (m Matrix) Add(o Matrix) Matrix {
	m.checkSameDim(o, "add")
	out := Zero(m.n)
	for i := range m.data {
		out.data[i] = m.data[i] + o.data[i]
	}
	return out
}

// Sub returns m − o.
func (m Matrix) Sub(o Matrix) Matrix {
	m.checkSameDim(o, "sub")
	out := Zero(m.n)
	for i := range m.data {
		out.data[i] = m.data[i] - o.data[i]
	}
	return out
}

// Mul returns the matrix product m·o.
func (m Matrix) Mul(o Matrix) Matrix {
	m.checkSameDim(o, "mul")
	n := m.n
	out := Zero(n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			a := m.data[i*n+k]
			if a == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				out.data[i*n+j] += a * o.data[k*n+j]
			}
		}
	}
	return out
}

// Scale returns z·m.
func (m Matrix) Scale(z complex128) Matrix {
	out := Zero(m.n)
	for i := range m.data {
		out.data[i] = z * m.data[i]
	}
	return out
}

// Dagger returns the conjugate transpose m†.
func (m Matrix) Dagger() Matrix {
	n := m.n
	out := Zero(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.data[j*n+i] = cmplx.Conj(m.data[i*n+j])
		}
	}
	return out
}

// Trace returns the sum of the diagonal entries.
func (m Matrix) Trace() complex128 {
	var tr complex128
	for i := 0; i < m.n; i++ {
		tr += m.data[i*m.n+i]
	}
	return tr
}

// Hermitize returns (m + m†)/2, the Hermitian part of m.
func (m Matrix) Hermitize() Matrix {
	return m.Add(m.Dagger()).Scale(0.5)
}

// Vector is a complex column vector of length at least 1.
type Vector struct {
	data []complex128
}

// NewVector creates a vector from the given amplitudes. The data is copied.
func NewVector(data []complex128) (Vector, error) {
	if len(data) < 1 {
		return Vector{}, fmt.Errorf("vector must have at least one element")
	}
	v := Vector{data: make([]complex128, len(data))}
	copy(v.data, data)
	return v, nil
}

// Len returns the vector length.
func (v Vector) Len() int {
	return len(v.data)
}

// At returns the i-th amplitude.
func (v Vector) At(i int) complex128 {
	return v.data[i]
}

// Norm returns the Euclidean norm sqrt(Σ|v_i|²).
func (v Vector) Norm() float64 {
	var sum float64
	for _, z := range v.data {
		sum += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(sum)
}

// Normalized returns v scaled to unit norm. A zero-norm vector cannot be
// normalized and yields an error.
func (v Vector) Normalized() (Vector, error) {
	norm := v.Norm()
	if norm == 0 {
		return Vector{}, fmt.Errorf("cannot normalize a zero-norm vector")
	}
	out := Vector{data: make([]complex128, len(v.data))}
	inv := complex(1/norm, 0)
	for i, z := range v.data {
		out.data[i] = inv * z
	}
	return out, nil
}

// Outer returns the outer product v·v†.
func (v Vector) Outer() Matrix {
	n := len(v.data)
	out := Zero(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.data[i*n+j] = v.data[i] * cmplx.Conj(v.data[j])
		}
	}
	return out
}
