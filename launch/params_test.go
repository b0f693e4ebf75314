package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resnetStem is the 7x7/stride-2/pad-3 stem convolution over a 224x224
// image, the fixed regression shape.
func resnetStem(dir Direction) ConvShape {
	return NewConvShape(1, 3, 64, 224, 224, 7, 7, 3, 3, 2, 2, 1, 1, 1, dir)
}

// TestNewConvShape_OutputExtents checks the derived output extents.
func TestNewConvShape_OutputExtents(t *testing.T) {
	s := resnetStem(Forward)
	assert.Equal(t, uint32(112), s.OutH)
	assert.Equal(t, uint32(112), s.OutW)

	// Dilation stretches the effective kernel.
	d := NewConvShape(1, 16, 16, 32, 32, 3, 3, 2, 2, 1, 1, 2, 2, 1, Forward)
	assert.Equal(t, uint32(32), d.OutH) // (32 + 4 - 2*2 - 1)/1 + 1
}

// TestBuild_ForwardRegression is the fixed forward regression vector.
func TestBuild_ForwardRegression(t *testing.T) {
	p := Build(resnetStem(Forward))

	// k = 7*7*3 is not a multiple of 8, so selection lands on the fully
	// generic forward variant.
	require.Equal(t, Forward, p.Dir)
	assert.Equal(t, FwdGeneric, p.FwdRoutine)
	assert.Equal(t, uint32(147), p.K)
	assert.Equal(t, uint32(64), p.N)
	assert.Equal(t, uint32(12544), p.M)
	assert.Equal(t, uint32(12544), p.NTidx) // already 256-aligned
	assert.Equal(t, uint32(230), p.PadInW)
	assert.Equal(t, uint32(230), p.PadInH)
	assert.Equal(t, uint32(152), p.PaddedK)

	// 230*230 = 52900 exceeds the 1024 tiling threshold and rounds to an
	// odd count of 64-element lines: 52928.
	assert.Equal(t, uint32(52928), p.LDA)
	assert.Equal(t, uint32(158784), p.AGS)

	assert.Equal(t, uint64(635136), p.PadBufSize)
	assert.Equal(t, uint64(0), p.PermBufSize)
	assert.Equal(t, uint64(101088), p.IdxBufSize)
	assert.Equal(t, uint64(736224), p.AuxBufSize())
}

// TestBuild_BackwardRegression is the backward-data twin: symmetric 7/3
// padding mirrors onto itself, the permutation buffer becomes active.
func TestBuild_BackwardRegression(t *testing.T) {
	p := Build(resnetStem(BackwardData))

	require.Equal(t, BackwardData, p.Dir)
	assert.Equal(t, BwdAlignN64, p.BwdRoutine)
	// pad' = 7 - 3 - 1 = 3, unchanged for this symmetric shape.
	assert.Equal(t, uint32(230), p.PadInW)
	assert.Equal(t, uint32(230), p.PadInH)
	assert.Equal(t, uint32(12544), p.NTidx)
	assert.Equal(t, uint32(52928), p.LDA)

	assert.Equal(t, uint64(635136), p.PadBufSize)
	assert.Equal(t, uint64(38912), p.PermBufSize) // 4 * 152 * 64
	assert.Equal(t, uint64(101088), p.IdxBufSize)
	assert.Equal(t, uint64(775136), p.AuxBufSize())
}

// TestBuild_PaddingInactivity: no padding means no pad buffer; forward
// direction means no permutation buffer.
func TestBuild_PaddingInactivity(t *testing.T) {
	s := NewConvShape(4, 64, 64, 56, 56, 1, 1, 0, 0, 1, 1, 1, 1, 1, Forward)
	p := Build(s)
	assert.Equal(t, uint64(0), p.PadBufSize)
	assert.Equal(t, uint64(0), p.PermBufSize)
	assert.NotZero(t, p.IdxBufSize)

	// The backward 1x1 convolution mirrors zero padding to zero.
	pb := Build(NewConvShape(4, 64, 64, 56, 56, 1, 1, 0, 0, 1, 1, 1, 1, 1, BackwardData))
	assert.Equal(t, uint64(0), pb.PadBufSize)
	assert.NotZero(t, pb.PermBufSize)
}

// TestBuild_PackedKernelArguments pins the byte-field packings the kernels
// receive.
func TestBuild_PackedKernelArguments(t *testing.T) {
	p := Build(resnetStem(Forward))
	assert.Equal(t, uint32(3<<24|3<<16|3<<8|3), p.PackedPad)
	assert.Equal(t, uint32(1<<18|1<<12|2<<6|2), p.PackedStrideDil)
	assert.Equal(t, uint32(0), p.RoutineID())
}

// TestBuild_BufferSizeMonotonicity: growing batch, input channels, or
// groups never shrinks any scratch buffer. The kernel area is kept at 7x7
// with odd channel counts so the routine class stays fixed while the
// extents grow.
func TestBuild_BufferSizeMonotonicity(t *testing.T) {
	build := func(batch, inc, groups uint32) Params {
		return Build(NewConvShape(batch, inc, 64, 56, 56, 7, 7, 3, 3, 1, 1, 1, 1, groups, Forward))
	}
	check := func(lo, hi Params, what string) {
		t.Helper()
		assert.GreaterOrEqual(t, hi.PadBufSize, lo.PadBufSize, "pad, %s", what)
		assert.GreaterOrEqual(t, hi.PermBufSize, lo.PermBufSize, "perm, %s", what)
		assert.GreaterOrEqual(t, hi.IdxBufSize, lo.IdxBufSize, "idx, %s", what)
	}
	for batch := uint32(1); batch < 8; batch++ {
		check(build(batch, 3, 1), build(batch+1, 3, 1), "batch")
	}
	for _, inc := range []uint32{1, 3, 5, 7} {
		check(build(2, inc, 1), build(2, inc+2, 1), "channels")
	}
	for groups := uint32(1); groups < 8; groups++ {
		check(build(2, 3, groups), build(2, 3, groups+1), "groups")
	}
}

// TestBuild_SmallTileSkipsCacheRounding: a padded tile at or under 1024
// elements keeps its exact extent (times batch).
func TestBuild_SmallTileSkipsCacheRounding(t *testing.T) {
	// 14x14 input, pad 1 -> 16x16 = 256 elements; batch 4 -> 1024, at the
	// threshold, no rounding.
	p := Build(NewConvShape(4, 8, 8, 14, 14, 3, 3, 1, 1, 1, 1, 1, 1, 1, Forward))
	assert.Equal(t, uint32(1024), p.LDA)
}

// TestBuildUnified_SingleDivisor: odd spatial extent runs the scalar mode,
// whose two shift streams coincide.
func TestBuildUnified_SingleDivisor(t *testing.T) {
	// 7x7 spatial, 1x1-style unified regime: m = 49.
	s := NewConvShape(2, 256, 512, 7, 7, 1, 1, 0, 0, 1, 1, 1, 1, 1, Forward)
	p := BuildUnified(s)

	require.Equal(t, ModeX1, p.Routine.Mode)
	require.Equal(t, uint8(3), p.Routine.ID)
	assert.Equal(t, uint32(49), p.M)
	assert.Equal(t, uint32(98), p.DimX)
	assert.Equal(t, uint32(128), p.NTidx)
	assert.False(t, p.HasMagicC)

	for n := uint32(0); n <= p.NTidx; n++ {
		require.Equal(t, n/49, p.MagicA.Div(n))
	}
}

// TestBuildUnified_TwoDivisors: a 4-aligned spatial extent on the widest
// tile uses different shifts for the two divisor streams, so a second
// magic divisor is generated.
func TestBuildUnified_TwoDivisors(t *testing.T) {
	// 8x8 spatial: m = 64, ModeX4; n and k aligned for id 3.
	s := NewConvShape(2, 256, 512, 8, 8, 1, 1, 0, 0, 1, 1, 1, 1, 1, Forward)
	p := BuildUnified(s)

	require.Equal(t, ModeX4, p.Routine.Mode)
	require.Equal(t, uint8(3), p.Routine.ID)
	assert.Equal(t, uint32(128), p.DimX)
	assert.Equal(t, uint32(128), p.NTidx)
	require.True(t, p.HasMagicC)

	// Stream A divides by m>>2, stream C by m>>1.
	for n := uint32(0); n <= p.NTidx>>2; n++ {
		require.Equal(t, n/16, p.MagicA.Div(n))
	}
	for n := uint32(0); n <= p.NTidx>>1; n++ {
		require.Equal(t, n/32, p.MagicC.Div(n))
	}
}

// TestAuxBufSize_MatchesBuild checks the convenience sizing entry point.
func TestAuxBufSize_MatchesBuild(t *testing.T) {
	for _, dir := range []Direction{Forward, BackwardData} {
		s := resnetStem(dir)
		p := Build(s)
		assert.Equal(t, p.AuxBufSize(), AuxBufSize(s))
	}
}
