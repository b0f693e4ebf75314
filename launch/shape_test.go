package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewConvShape_PanicsOnDegenerate: arguments that can never describe a
// convolution are programming errors, not runtime conditions.
func TestNewConvShape_PanicsOnDegenerate(t *testing.T) {
	assert.Panics(t, func() {
		NewConvShape(1, 3, 64, 224, 224, 0, 7, 3, 3, 2, 2, 1, 1, 1, Forward)
	}, "zero kernel height")
	assert.Panics(t, func() {
		NewConvShape(1, 3, 64, 224, 224, 7, 7, 3, 3, 0, 2, 1, 1, 1, Forward)
	}, "zero stride")
	assert.Panics(t, func() {
		NewConvShape(1, 3, 64, 224, 224, 7, 7, 3, 3, 2, 2, 0, 1, 1, Forward)
	}, "zero dilation")
	assert.Panics(t, func() {
		NewConvShape(1, 3, 64, 224, 224, 7, 7, 3, 3, 2, 2, 1, 1, 0, Forward)
	}, "zero groups")
}
