// Package config holds the knobs recognised across the thermal pipeline:
// thread count, outer-loop iteration control, solver tolerances and
// diagnostic dump switches. It plays the role the teacher's
// device.CircuitStatus / analysis.BaseAnalysis.convergence struct plays for
// toy-spice: a plain struct of solver knobs threaded through by value or
// pointer, not a flag/env framework.
package config

import (
	"runtime"

	"github.com/ecad-oss/thermalnet/internal/consts"
)

// Config collects the options recognised by §6 of the specification.
type Config struct {
	Threads int // ≥1, default hardware concurrency

	Iteration int     // temperature-dependent outer loop count, ≥0
	Residual  float64 // outer-loop convergence bound

	RefT float64 // reference ambient, default 298.15 K

	AbsTol float64 // integrator absolute tolerance
	RelTol float64 // integrator relative tolerance

	MorOrder int // Krylov order multiplier, ≥1

	DumpMesh   bool
	DumpHotmap bool
	WorkDir    string
}

// Default returns the configuration used when the caller supplies none.
func Default() *Config {
	return &Config{
		Threads:   runtime.GOMAXPROCS(0),
		Iteration: 0,
		Residual:  1e-6,
		RefT:      consts.DefaultRefT,
		AbsTol:    1e-12,
		RelTol:    1e-10,
		MorOrder:  1,
		WorkDir:   ".",
	}
}

// Normalize clamps fields to their documented minimums in place.
func (c *Config) Normalize() {
	if c.Threads < 1 {
		c.Threads = 1
	}
	if c.Iteration < 0 {
		c.Iteration = 0
	}
	if c.MorOrder < 1 {
		c.MorOrder = 1
	}
	if c.RefT == 0 {
		c.RefT = consts.DefaultRefT
	}
	if c.AbsTol <= 0 {
		c.AbsTol = 1e-12
	}
	if c.RelTol <= 0 {
		c.RelTol = 1e-10
	}
}
