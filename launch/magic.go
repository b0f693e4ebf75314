package launch

import "fmt"

// MagicDivisor is a (multiplier, shift) pair implementing exact unsigned
// floor division by a fixed divisor d: for every numerator n in [0, nmax],
//
//	(n * M) >> S == n / d
//
// where nmax is the numerator bound the pair was generated for. The kernels
// consume it to replace per-lane integer division, which has no cheap
// hardware form on the compute units, with one multiply and one shift.
type MagicDivisor struct {
	M uint32
	S uint32
}

// GenerateMagic computes the magic divisor for divisor d valid over
// numerators in [0, nmax]. Preconditions: 1 <= d <= nmax+1 (a divisor
// beyond the numerator bound has no numerator congruent to d-1, so the
// worst-case bound below would underflow).
//
// This is the Granlund/Montgomery bound for exact truncating division,
// restricted to a known numerator ceiling so the multiplier fits 32 bits:
//
//   - nc = (nmax+1)/d*d - 1 is the largest numerator <= nmax congruent to
//     d-1 (mod d); it maximizes the rounding error the multiply-shift has
//     to absorb, so checking nc checks every numerator in range.
//   - For a candidate shift s, mod = (d-1) - (2^s - 1) mod d makes
//     2^s + mod the smallest multiple of d that is >= 2^s. The candidate
//     is exact for all n <= nc iff 2^s > nc * mod.
//   - The accepted multiplier (2^s + mod) / d divides evenly by
//     construction.
//
// Shifts are searched from 0 through 2*BitWidth(nmax); a bound that large
// always admits a solution for a correctly supplied nmax, so exhausting the
// search is a programming-contract breach and panics.
func GenerateMagic(nmax, d uint32) MagicDivisor {
	if d == 1 {
		// Dividing by one needs no transformation.
		return MagicDivisor{M: 1, S: 0}
	}
	nc := (uint64(nmax)+1)/uint64(d)*uint64(d) - 1
	r := (BitWidth(nmax) << 1) + 1
	for s := uint32(0); s < r; s++ {
		exp := uint64(1) << s
		mod := uint64(d) - 1 - (exp-1)%uint64(d)
		if exp > nc*mod {
			return MagicDivisor{M: uint32((exp + mod) / uint64(d)), S: s}
		}
	}
	panic(fmt.Sprintf("launch: no magic divisor for nmax=%d d=%d", nmax, d))
}

// Div applies the multiply-shift, mirroring what the kernel does per lane.
// Only valid for n within the bound the pair was generated for.
func (m MagicDivisor) Div(n uint32) uint32 {
	return uint32(uint64(n) * uint64(m.M) >> m.S)
}
