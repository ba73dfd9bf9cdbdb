package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("buyer@acme.com"))
	assert.False(t, IsValidEmail("buyer@acme"))
	assert.False(t, IsValidEmail("buyer acme.com"))
	assert.False(t, IsValidEmail(""))
}

func TestIsValidPrice_Boundaries(t *testing.T) {
	assert.True(t, IsValidPrice(0.1))
	assert.True(t, IsValidPrice(10))
	assert.False(t, IsValidPrice(0.09))
	assert.False(t, IsValidPrice(0))
	assert.False(t, IsValidPrice(math.NaN()))
	assert.False(t, IsValidPrice(math.Inf(1)))
}

func TestHasCentPrecision(t *testing.T) {
	assert.True(t, HasCentPrecision(10))
	assert.True(t, HasCentPrecision(0.1))
	assert.True(t, HasCentPrecision(12.34))
	assert.True(t, HasCentPrecision(0.29))
	assert.False(t, HasCentPrecision(0.125))
	assert.False(t, HasCentPrecision(10.001))
}

func TestIsValidAmount_Boundaries(t *testing.T) {
	assert.True(t, IsValidAmount(1))
	assert.False(t, IsValidAmount(0))
	assert.False(t, IsValidAmount(-5))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("secret"))
	assert.False(t, IsValidPassword("short"))
}
