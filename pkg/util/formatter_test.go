package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueFactorPicksSIPrefix(t *testing.T) {
	assert.Equal(t, "12.500 W", FormatValueFactor(12.5, "W"))
	assert.Equal(t, "3.000 mW", FormatValueFactor(3e-3, "W"))
	assert.Equal(t, "250.000 uW", FormatValueFactor(2.5e-4, "W"))
	assert.Equal(t, "7.000 nW", FormatValueFactor(7e-9, "W"))
	assert.Equal(t, "1.000 pW", FormatValueFactor(1e-12, "W"))
}

func TestFormatValueFactorFallsBackToScientificBelowPico(t *testing.T) {
	assert.Equal(t, "1.000e-15 W", FormatValueFactor(1e-15, "W"))
}

func TestFormatValueFactorHandlesNegativeValues(t *testing.T) {
	assert.Equal(t, "-4.000 K", FormatValueFactor(-4.0, "K"))
}
