package launch

import "math/bits"

// BitWidth returns the number of bits needed to represent n, i.e. the
// position of its highest set bit plus one. BitWidth(0) is 0.
func BitWidth(n uint32) uint32 {
	// Smear the highest set bit into every lower position, then count.
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return uint32(bits.OnesCount32(n))
}

// alignUp rounds x up to the next multiple of mask+1. mask must be a
// power of two minus one. Already-aligned values pass through unchanged.
func alignUp(x, mask uint32) uint32 {
	return (x + mask) &^ mask
}
