// Package material implements the material database consumed by both
// extractors: per-material conductivity, density*specific-heat, and
// electrical resistivity, each either a constant, an anisotropic 3-vector,
// a full 9-component tensor, or a polynomial in temperature. Grounded on
// spec.md §6's material database contract and on
// EGridThermalNetworkBuilder.cpp's GetCompositeMatK/GetCompositeMatC
// (the k(T)/ρc(T) lookup shape), and on EGridDataTable's
// Query(T,x,y,&success) contract for the tagged power-table lookup reused
// by pkg/bc and the extractors.
package material

import "fmt"

// Kind distinguishes how a Property's value varies.
type Kind int

const (
	// Scalar is a single isotropic value, constant in T.
	Scalar Kind = iota
	// Anisotropic is a 3-vector (kx,ky,kz), constant in T.
	Anisotropic
	// Tensor is a full 9-component tensor, constant in T.
	Tensor
	// Polynomial evaluates sum(coeff[i]*T^i), isotropic.
	Polynomial
)

// Property is one temperature-dependent material property (k, rho*c, or
// electrical resistivity).
type Property struct {
	Kind   Kind
	Values [9]float64 // interpretation depends on Kind; Scalar uses Values[0]
	Coeffs []float64  // Polynomial only: ascending powers of T
}

// NewScalar builds a constant isotropic property.
func NewScalar(v float64) Property {
	var p Property
	p.Kind = Scalar
	p.Values[0] = v
	return p
}

// NewAnisotropic builds a constant 3-axis property.
func NewAnisotropic(kx, ky, kz float64) Property {
	var p Property
	p.Kind = Anisotropic
	p.Values[0], p.Values[1], p.Values[2] = kx, ky, kz
	return p
}

// NewPolynomial builds a temperature-polynomial isotropic property.
func NewPolynomial(coeffs []float64) Property {
	return Property{Kind: Polynomial, Coeffs: coeffs}
}

// At evaluates the property at temperature t, returning the (kx,ky,kz)
// triple (all equal for Scalar/Polynomial kinds).
func (p Property) At(t float64) (kx, ky, kz float64) {
	switch p.Kind {
	case Scalar:
		return p.Values[0], p.Values[0], p.Values[0]
	case Anisotropic:
		return p.Values[0], p.Values[1], p.Values[2]
	case Tensor:
		return p.Values[0], p.Values[4], p.Values[8]
	case Polynomial:
		v := evalPoly(p.Coeffs, t)
		return v, v, v
	default:
		return 0, 0, 0
	}
}

func evalPoly(coeffs []float64, t float64) float64 {
	var v, tp float64 = 0, 1
	for _, c := range coeffs {
		v += c * tp
		tp *= t
	}
	return v
}

// Type records whether a material is a solid or a fluid. Neither extractor
// reads it: elements of a Fluid material get nodes and links in the network
// exactly like Solid ones.
type Type int

const (
	Solid Type = iota
	Fluid
)

// Material bundles the four temperature-dependent properties named in
// spec.md §6.
type Material struct {
	ID   int
	Name string
	Type Type

	K    Property // thermal conductivity, W/(m*K)
	Rho  Property // density, kg/m^3 — paired with C for rho*c
	C    Property // specific heat, J/(kg*K)
	RhoEl Property // electrical resistivity, ohm*m
}

// RhoC returns the volumetric heat capacity rho*c at temperature t.
func (m Material) RhoC(t float64) float64 {
	rho, _, _ := m.Rho.At(t)
	c, _, _ := m.C.At(t)
	return rho * c
}

// DB is a material database keyed by ID, matching spec.md §6's
// (id,name,type,k,rho,c,rho_el) record shape.
type DB struct {
	byID   map[int]Material
	byName map[string]int
}

// NewDB constructs an empty database.
func NewDB() *DB {
	return &DB{byID: map[int]Material{}, byName: map[string]int{}}
}

// Add registers a material, keyed by both its ID and name.
func (d *DB) Add(m Material) {
	d.byID[m.ID] = m
	d.byName[m.Name] = m.ID
}

// Get looks up a material by ID. Per §7 (IO/Material-lookup failures), an
// unknown ID surfaces the offending value rather than defaulting silently.
func (d *DB) Get(id int) (Material, error) {
	m, ok := d.byID[id]
	if !ok {
		return Material{}, fmt.Errorf("material: unknown material id %d", id)
	}
	return m, nil
}

// GetByName looks up a material by name.
func (d *DB) GetByName(name string) (Material, error) {
	id, ok := d.byName[name]
	if !ok {
		return Material{}, fmt.Errorf("material: unknown material %q", name)
	}
	return d.byID[id], nil
}

// DataTable is a per-tile or per-layer (T,x,y) -> value lookup, used by
// boundary conditions and power tables. Grounded on EGridDataTable's
// Query(T,x,y,&success) contract: a lookup may legitimately miss (no BC
// defined at this tile), signaled by the bool rather than an error, since
// a miss is an expected, common outcome rather than a failure.
type DataTable interface {
	Query(t float64, x, y int) (value float64, ok bool)
}

// Uniform is a DataTable that returns the same value everywhere.
type Uniform float64

// Query always succeeds with the constant value.
func (u Uniform) Query(t float64, x, y int) (float64, bool) { return float64(u), true }

// TemperatureSamples interpolates a table keyed at discrete temperatures
// (e.g. the {25,50,75,100,125}C power-table samples of spec.md §4.6),
// uniformly across x,y.
type TemperatureSamples struct {
	Temps  []float64 // ascending
	Values []float64
}

// Query linearly interpolates Values at t, clamping outside the sampled
// range; x,y are ignored (uniform over the tile set).
func (s TemperatureSamples) Query(t float64, x, y int) (float64, bool) {
	if len(s.Temps) == 0 {
		return 0, false
	}
	if t <= s.Temps[0] {
		return s.Values[0], true
	}
	last := len(s.Temps) - 1
	if t >= s.Temps[last] {
		return s.Values[last], true
	}
	for i := 1; i <= last; i++ {
		if t <= s.Temps[i] {
			t0, t1 := s.Temps[i-1], s.Temps[i]
			v0, v1 := s.Values[i-1], s.Values[i]
			frac := (t - t0) / (t1 - t0)
			return v0 + frac*(v1-v0), true
		}
	}
	return s.Values[last], true
}
