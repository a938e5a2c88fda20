// Package sparsemat implements a minimal compressed-sparse-row matrix with
// triplet (COO) accumulation and matrix-vector product, used wherever the
// MNA/solver/transient/MOR stack needs a cheap sparse matvec that neither
// the teacher's github.com/edp1096/sparse (keyed per-(i,j) element storage,
// shaped for SPICE-style stamping and direct factorisation) nor
// gonum.org/v1/gonum/mat (dense-only on its stable surface) provide.
//
// The accumulate-then-compress shape mirrors the triplet pattern used
// throughout original_source's ThermalNetwork.hpp (makeMNA,
// makeInvCandNegG): push (row,col,val) triplets, then build the compressed
// form once.
package sparsemat

import "sort"

// Triplets accumulates (row, col, value) contributions before compression.
// Repeated entries at the same (row,col) are summed, matching MNA stamping
// semantics (Builder.Assemble relies on this for the diagonal accumulation).
type Triplets struct {
	Rows []int
	Cols []int
	Vals []float64
}

// Add appends one contribution.
func (t *Triplets) Add(row, col int, val float64) {
	t.Rows = append(t.Rows, row)
	t.Cols = append(t.Cols, col)
	t.Vals = append(t.Vals, val)
}

// CSR is a compressed-sparse-row matrix of shape (Rows x Cols).
type CSR struct {
	NRows, NCols int
	RowPtr       []int // length NRows+1
	ColIdx       []int // length RowPtr[NRows]
	Val          []float64
}

// FromTriplets compresses accumulated triplets into CSR form, summing
// duplicate (row,col) entries.
func FromTriplets(nrows, ncols int, t *Triplets) *CSR {
	type entry struct {
		row, col int
		val      float64
	}
	entries := make([]entry, len(t.Rows))
	for i := range t.Rows {
		entries[i] = entry{t.Rows[i], t.Cols[i], t.Vals[i]}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].row != entries[j].row {
			return entries[i].row < entries[j].row
		}
		return entries[i].col < entries[j].col
	})

	rowPtr := make([]int, nrows+1)
	colIdx := make([]int, 0, len(entries))
	val := make([]float64, 0, len(entries))

	i := 0
	for r := 0; r < nrows; r++ {
		rowPtr[r] = len(colIdx)
		for i < len(entries) && entries[i].row == r {
			col := entries[i].col
			sum := entries[i].val
			i++
			for i < len(entries) && entries[i].row == r && entries[i].col == col {
				sum += entries[i].val
				i++
			}
			colIdx = append(colIdx, col)
			val = append(val, sum)
		}
	}
	rowPtr[nrows] = len(colIdx)

	return &CSR{NRows: nrows, NCols: ncols, RowPtr: rowPtr, ColIdx: colIdx, Val: val}
}

// NewIdentity builds an n x n identity matrix.
func NewIdentity(n int) *CSR {
	t := &Triplets{}
	for i := 0; i < n; i++ {
		t.Add(i, i, 1)
	}
	return FromTriplets(n, n, t)
}

// NewDiagonal builds a diagonal matrix from the given values.
func NewDiagonal(diag []float64) *CSR {
	t := &Triplets{}
	for i, v := range diag {
		if v != 0 {
			t.Add(i, i, v)
		}
	}
	return FromTriplets(len(diag), len(diag), t)
}

// MulVec computes y = A*x.
func (a *CSR) MulVec(x []float64) []float64 {
	y := make([]float64, a.NRows)
	a.MulVecTo(y, x)
	return y
}

// MulVecTo computes dst = A*x without allocating, overwriting dst.
func (a *CSR) MulVecTo(dst, x []float64) {
	for r := 0; r < a.NRows; r++ {
		var sum float64
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			sum += a.Val[k] * x[a.ColIdx[k]]
		}
		dst[r] = sum
	}
}

// MulVecRange computes dst[start:end] = (A*x)[start:end], used by the
// transient solver's per-block parallel derivative evaluation (§5, §9's
// supplemented block-threaded UpdateDxDt).
func (a *CSR) MulVecRange(dst, x []float64, start, end int) {
	for r := start; r < end; r++ {
		var sum float64
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			sum += a.Val[k] * x[a.ColIdx[k]]
		}
		dst[r] = sum
	}
}

// Diag extracts the main diagonal (zero where absent).
func (a *CSR) Diag() []float64 {
	d := make([]float64, a.NRows)
	for r := 0; r < a.NRows; r++ {
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			if a.ColIdx[k] == r {
				d[r] = a.Val[k]
			}
		}
	}
	return d
}

// Dense materializes the matrix as a row-major dense slice of NRows x NCols
// entries. Its callers include MOR's reduced k x k system, tests, and the
// full-order G, C and B copies taken by mor.Reduce and
// transient.PreEliminate, so their memory grows with N squared.
func (a *CSR) Dense() [][]float64 {
	out := make([][]float64, a.NRows)
	for r := range out {
		out[r] = make([]float64, a.NCols)
	}
	for r := 0; r < a.NRows; r++ {
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			out[r][a.ColIdx[k]] = a.Val[k]
		}
	}
	return out
}

// Transpose returns Aᵀ.
func (a *CSR) Transpose() *CSR {
	t := &Triplets{}
	for r := 0; r < a.NRows; r++ {
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			t.Add(a.ColIdx[k], r, a.Val[k])
		}
	}
	return FromTriplets(a.NCols, a.NRows, t)
}

// MulVecT computes y = Aᵀ*x where x has length NRows, y has length NCols.
func (a *CSR) MulVecT(x []float64) []float64 {
	y := make([]float64, a.NCols)
	for r := 0; r < a.NRows; r++ {
		xr := x[r]
		if xr == 0 {
			continue
		}
		for k := a.RowPtr[r]; k < a.RowPtr[r+1]; k++ {
			y[a.ColIdx[k]] += a.Val[k] * xr
		}
	}
	return y
}

// NNZ returns the number of stored (nonzero) entries.
func (a *CSR) NNZ() int { return len(a.Val) }
