package consts

const (
	KELVIN = 273.15 // Kelvin temperature offset (K)

	DefaultRefT = 298.15 // default reference ambient temperature (K), 25C

	// UnknownT marks a node temperature that has not yet been solved.
	UnknownT = 1.0e308
)
