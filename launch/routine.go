package launch

// Direction distinguishes the forward convolution from the backward-data
// (transposed) convolution.
type Direction uint8

const (
	Forward Direction = iota
	BackwardData
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward-data"
}

// ForwardRoutine identifies one of the five precompiled forward kernel
// variants. Higher ids assume more alignment of the problem shape and run
// wider tiles; the numeric values are kernel-selection ABI and must not
// change.
type ForwardRoutine uint8

const (
	// FwdGeneric makes no alignment assumption at all (k not a multiple
	// of 8).
	FwdGeneric ForwardRoutine = iota
	// FwdNarrow is the narrow-output specialization for small n with an
	// odd 16-wide tile count.
	FwdNarrow
	// FwdAlignK8 requires k to be a multiple of 8.
	FwdAlignK8
	// FwdAlignK8N64 additionally requires an even 32-wide tile count
	// over n.
	FwdAlignK8N64
	// FwdAlignK16N128 is the widest variant: k a multiple of 16 and the
	// 32-wide tile count over n a multiple of 4.
	FwdAlignK16N128
)

// BackwardRoutine identifies one of the four precompiled backward-data
// kernel variants.
type BackwardRoutine uint8

const (
	// BwdGeneric handles an odd 16-wide tile count over n.
	BwdGeneric BackwardRoutine = iota
	// BwdAlignN32 requires an even 16-wide tile count.
	BwdAlignN32
	// BwdAlignN64 requires the tile count to be a multiple of 4.
	BwdAlignN64
	// BwdAlignN128 is the widest variant: tile count a multiple of 8.
	BwdAlignN128
)

// UnifiedMode is the vector-width mode of the unified routine, derived from
// the divisibility of the spatial extent m.
type UnifiedMode uint8

const (
	ModeX1 UnifiedMode = iota // m odd
	ModeX2                    // m even, not a multiple of 4
	ModeX4                    // m a multiple of 4
)

// UnifiedRoutine is the variant choice for the unified (near-GEMM) regime:
// a tile id plus a vector-width mode.
type UnifiedRoutine struct {
	Mode UnifiedMode
	ID   uint8
}

// Pack encodes the choice the way the kernels receive it: mode in the high
// 16 bits, id in the low 16.
func (u UnifiedRoutine) Pack() uint32 {
	return uint32(u.Mode)<<16 | uint32(u.ID)
}

// SelectForward picks the forward kernel variant from the output-channel
// count n and reduction size k.
func SelectForward(n, k uint32) ForwardRoutine {
	r := (n + 31) >> 5
	s := (n + 15) >> 4
	id := 2 + pick32(r, k)
	if s&1 != 0 && n <= 112 {
		// Narrow-output override; the threshold names a specific
		// precompiled variant and is not derivable from the arithmetic.
		return FwdNarrow
	}
	if k&7 != 0 {
		return FwdGeneric
	}
	return ForwardRoutine(id)
}

// pick32 grades the 32-wide tile count r over n: a count divisible by 4
// unlocks the widest variant when k is 16-aligned, an even count the middle
// one.
func pick32(r, k uint32) uint32 {
	if r&3 == 0 {
		if k&15 == 0 {
			return 2
		}
		return 1
	}
	return (r & 1) ^ 1
}

// SelectBackward picks the backward-data kernel variant from the
// output-channel count n alone.
func SelectBackward(n uint32) BackwardRoutine {
	s := (n + 15) >> 4
	switch {
	case s&7 == 0:
		return BwdAlignN128
	case s&3 == 0:
		return BwdAlignN64
	default:
		return BackwardRoutine((s & 1) ^ 1)
	}
}

// SelectUnified picks the unified-regime variant from the spatial extent m,
// output-channel count n, reduction size k and direction.
func SelectUnified(m, n, k uint32, dir Direction) UnifiedRoutine {
	s := (n + 31) >> 5
	t := (n + 15) >> 4
	mode := ((m & 1) ^ 1) + b2u(m&3 == 0)
	id := 1 + pick32(s, k)
	if t&1 != 0 && n <= 112 {
		id = 0
	}
	if dir == BackwardData && id != 0 && n&3 != 0 {
		// Misaligned n narrows the tile; odd n narrows it further.
		if n&1 != 0 {
			id = 1
		} else {
			id = 2
		}
	}
	return UnifiedRoutine{Mode: UnifiedMode(mode), ID: uint8(id)}
}

func b2u(c bool) uint32 {
	if c {
		return 1
	}
	return 0
}

// AlignMask returns the buffer-alignment mask for the variant: extents are
// rounded up to a 128-element (mask 127) or 256-element (mask 255) boundary.
// The wider variants run coarser tiles and need the coarser padding to avoid
// partial-tile edge handling inside the kernel.
func (r ForwardRoutine) AlignMask() uint32 {
	if r == FwdNarrow || r == FwdAlignK16N128 {
		return 127
	}
	return 255
}

// KMask returns the mask used to round the reduction dimension: 15 for the
// widest variant, 7 otherwise.
func (r ForwardRoutine) KMask() uint32 {
	if r == FwdAlignK16N128 {
		return 15
	}
	return 7
}

// AlignMask returns the buffer-alignment mask for the variant.
func (r BackwardRoutine) AlignMask() uint32 {
	if r == BwdGeneric || r == BwdAlignN128 {
		return 127
	}
	return 255
}

// KMask returns the reduction-rounding mask: 15 for the widest variant,
// 7 otherwise.
func (r BackwardRoutine) KMask() uint32 {
	if r == BwdAlignN128 {
		return 15
	}
	return 7
}

// AlignMask returns the thread-index alignment mask for the variant.
func (u UnifiedRoutine) AlignMask() uint32 {
	if u.ID > 0 && u.ID < 3 {
		return 255
	}
	return 127
}

// Shift amounts the unified kernels apply to the spatial extent before
// dividing, indexed by [id][mode]. Two tables because the kernels consume
// two divisor streams; a second magic divisor is needed only where the
// tables disagree.
var (
	unifiedShiftA = [4][3]uint32{
		{0, 1, 2},
		{0, 1, 2},
		{0, 1, 2},
		{0, 1, 2},
	}
	unifiedShiftC = [4][3]uint32{
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 1, 1},
	}
)

// Shifts returns the two divisor shift amounts for the variant.
func (u UnifiedRoutine) Shifts() (sx, sy uint32) {
	return unifiedShiftA[u.ID][u.Mode], unifiedShiftC[u.ID][u.Mode]
}
