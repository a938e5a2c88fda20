package material

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarPropertyIsotropic(t *testing.T) {
	p := NewScalar(150)
	kx, ky, kz := p.At(300)
	assert.Equal(t, 150.0, kx)
	assert.Equal(t, kx, ky)
	assert.Equal(t, kx, kz)
}

func TestAnisotropicPropertyKeepsAxes(t *testing.T) {
	p := NewAnisotropic(1, 2, 3)
	kx, ky, kz := p.At(0)
	assert.Equal(t, 1.0, kx)
	assert.Equal(t, 2.0, ky)
	assert.Equal(t, 3.0, kz)
}

func TestPolynomialPropertyEvaluatesAscendingPowers(t *testing.T) {
	// k(T) = 2 + 0.1*T
	p := NewPolynomial([]float64{2, 0.1})
	kx, _, _ := p.At(10)
	assert.InDelta(t, 3.0, kx, 1e-12)
}

func TestDBGetUnknownIDErrors(t *testing.T) {
	db := NewDB()
	db.Add(Material{ID: 1, Name: "copper", K: NewScalar(400)})

	m, err := db.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "copper", m.Name)

	_, err = db.Get(99)
	assert.Error(t, err)

	_, err = db.GetByName("silver")
	assert.Error(t, err)
}

func TestRhoCMultipliesDensityAndSpecificHeat(t *testing.T) {
	m := Material{Rho: NewScalar(8960), C: NewScalar(385)}
	assert.InDelta(t, 8960*385, m.RhoC(300), 1e-6)
}

func TestUniformDataTableAlwaysHits(t *testing.T) {
	u := Uniform(42)
	v, ok := u.Query(300, 5, 7)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)
}

func TestTemperatureSamplesClampsAndInterpolates(t *testing.T) {
	s := TemperatureSamples{Temps: []float64{25, 50, 75, 100, 125}, Values: []float64{1, 2, 3, 4, 5}}

	v, ok := s.Query(0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 1.0, v, "below range clamps to first sample")

	v, ok = s.Query(200, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 5.0, v, "above range clamps to last sample")

	v, ok = s.Query(62.5, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 2.5, v, 1e-9, "midpoint between 50 and 75 interpolates linearly")
}

func TestTemperatureSamplesEmptyMisses(t *testing.T) {
	var s TemperatureSamples
	_, ok := s.Query(300, 0, 0)
	assert.False(t, ok)
}
