package sparsemat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromTripletsSumsDuplicates(t *testing.T) {
	tr := &Triplets{}
	tr.Add(0, 0, 1.0)
	tr.Add(0, 0, 2.0)
	tr.Add(0, 1, 3.0)
	m := FromTriplets(1, 2, tr)
	assert.Equal(t, []float64{3.0, 3.0}, m.Val)
}

func TestMulVec(t *testing.T) {
	// [[2,-1],[-1,2]] * [1,1] = [1,1]
	tr := &Triplets{}
	tr.Add(0, 0, 2)
	tr.Add(0, 1, -1)
	tr.Add(1, 0, -1)
	tr.Add(1, 1, 2)
	m := FromTriplets(2, 2, tr)
	y := m.MulVec([]float64{1, 1})
	assert.InDeltaSlice(t, []float64{1, 1}, y, 1e-12)
}

func TestTranspose(t *testing.T) {
	tr := &Triplets{}
	tr.Add(0, 1, 5)
	m := FromTriplets(2, 3, tr)
	mt := m.Transpose()
	assert.Equal(t, 3, mt.NRows)
	assert.Equal(t, 2, mt.NCols)
	dense := mt.Dense()
	assert.Equal(t, 5.0, dense[1][0])
}

func TestIdentityMulVec(t *testing.T) {
	id := NewIdentity(3)
	y := id.MulVec([]float64{4, 5, 6})
	assert.Equal(t, []float64{4, 5, 6}, y)
}

func TestDiag(t *testing.T) {
	d := NewDiagonal([]float64{1, 0, 3})
	assert.Equal(t, []float64{1, 0, 3}, d.Diag())
}
