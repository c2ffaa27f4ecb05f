package numeric

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a matrix has no inverse.
var ErrSingular = errors.New("numeric: matrix is singular")

// Matrix is a dense row-major square matrix over a ring.
type Matrix[T any] [][]T

// NewMatrix returns an n x n matrix filled with zeros.
func NewMatrix[T any](r Ring[T], n int) Matrix[T] {
	a := make(Matrix[T], n)
	for i := range a {
		a[i] = make([]T, n)
		for j := range a[i] {
			a[i][j] = r.Zero()
		}
	}
	return a
}

func (a Matrix[T]) clone() Matrix[T] {
	b := make(Matrix[T], len(a))
	for i := range a {
		b[i] = append([]T(nil), a[i]...)
	}
	return b
}

// Submatrix keeps the rows and columns listed in idx.
func (a Matrix[T]) Submatrix(idx []int) Matrix[T] {
	b := make(Matrix[T], len(idx))
	for i, ri := range idx {
		b[i] = make([]T, len(idx))
		for j, cj := range idx {
			b[i][j] = a[ri][cj]
		}
	}
	return b
}

// pivot picks the row at or below col with the largest magnitude in col.
// Rationals too small for float64 still qualify when nothing larger exists.
func pivot[T any](r Ring[T], a Matrix[T], col int) int {
	best, bestAbs := -1, -1.0
	for i := col; i < len(a); i++ {
		if r.IsZero(a[i][col]) {
			continue
		}
		if v := math.Abs(r.Float64(a[i][col])); v > bestAbs {
			best, bestAbs = i, v
		}
	}
	return best
}

// Det computes the determinant by Gaussian elimination.
func Det[T any](r Ring[T], a Matrix[T]) T {
	n := len(a)
	if n == 0 {
		return r.One()
	}
	w := a.clone()
	det := r.One()
	for col := 0; col < n; col++ {
		p := pivot(r, w, col)
		if p < 0 {
			return r.Zero()
		}
		if p != col {
			w[p], w[col] = w[col], w[p]
			det = r.Neg(det)
		}
		det = r.Mul(det, w[col][col])
		for i := col + 1; i < n; i++ {
			if r.IsZero(w[i][col]) {
				continue
			}
			f := r.Quo(w[i][col], w[col][col])
			for j := col; j < n; j++ {
				w[i][j] = r.Sub(w[i][j], r.Mul(f, w[col][j]))
			}
		}
	}
	return det
}

// Inverse computes the inverse by Gauss-Jordan elimination.
func Inverse[T any](r Ring[T], a Matrix[T]) (Matrix[T], error) {
	n := len(a)
	w := a.clone()
	inv := NewMatrix(r, n)
	for i := 0; i < n; i++ {
		inv[i][i] = r.One()
	}
	for col := 0; col < n; col++ {
		p := pivot(r, w, col)
		if p < 0 {
			return nil, ErrSingular
		}
		w[p], w[col] = w[col], w[p]
		inv[p], inv[col] = inv[col], inv[p]

		pv := w[col][col]
		for j := 0; j < n; j++ {
			w[col][j] = r.Quo(w[col][j], pv)
			inv[col][j] = r.Quo(inv[col][j], pv)
		}
		for i := 0; i < n; i++ {
			if i == col || r.IsZero(w[i][col]) {
				continue
			}
			f := w[i][col]
			for j := 0; j < n; j++ {
				w[i][j] = r.Sub(w[i][j], r.Mul(f, w[col][j]))
				inv[i][j] = r.Sub(inv[i][j], r.Mul(f, inv[col][j]))
			}
		}
	}
	return inv, nil
}

// ToDense converts a matrix to float64.
func ToDense[T any](r Ring[T], a Matrix[T]) *mat.Dense {
	n := len(a)
	if n == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(n, n, nil)
	for i := range a {
		for j := range a[i] {
			d.Set(i, j, r.Float64(a[i][j]))
		}
	}
	return d
}

// FromDense converts a float64 matrix to the ring.
func FromDense[T any](r Ring[T], d mat.Matrix) Matrix[T] {
	n, _ := d.Dims()
	a := make(Matrix[T], n)
	for i := range a {
		a[i] = make([]T, n)
		for j := range a[i] {
			a[i][j] = r.FromFloat(d.At(i, j))
		}
	}
	return a
}
