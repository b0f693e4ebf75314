package launch

// Params is the launch-parameter record for the forward/backward implicit-GEMM
// regime. It is produced fresh per shape, read-only once built, and handed to
// the dispatch collaborator as literal kernel arguments plus one allocation
// request (AuxBufSize).
type Params struct {
	Dir        Direction
	FwdRoutine ForwardRoutine  // valid when Dir == Forward
	BwdRoutine BackwardRoutine // valid when Dir == BackwardData

	Groups     uint32
	Batch      uint32
	InChannels uint32

	InW, InH         uint32 // source tensor extents
	KernelW, KernelH uint32
	OutW, OutH       uint32
	PadInW, PadInH   uint32 // input extents after padding

	K uint32 // reduction size: kernelW * kernelH * inChannels
	N uint32 // output channels
	M uint32 // outW * outH * batch

	PackedPad       uint32 // (pv<<24)|(pv<<16)|(pu<<8)|pu, kernel argument
	PackedStrideDil uint32 // (dv<<18)|(du<<12)|(sv<<6)|su, kernel argument

	LDC     uint32 // outW * outH
	LDA     uint32 // padded input tile leading extent
	AGS     uint32 // per-group pad-buffer stride: LDA * inChannels
	NTidx   uint32 // M rounded up to the routine's alignment
	PaddedK uint32 // K rounded up to the routine's reduction quantum

	PadBufSize  uint64 // zero-padding scratch; 0 when the shape has no padding
	PermBufSize uint64 // filter permutation scratch; 0 for forward
	IdxBufSize  uint64 // index/header scratch; always present
}

// RoutineID returns the variant id as the kernel receives it.
func (p *Params) RoutineID() uint32 {
	if p.Dir == Forward {
		return uint32(p.FwdRoutine)
	}
	return uint32(p.BwdRoutine)
}

// AuxBufSize is the total scratch allocation the kernel variant needs. The
// allocator reserves one buffer of this size and slices it in the fixed
// order [pad][permutation][index].
func (p *Params) AuxBufSize() uint64 {
	return p.PadBufSize + p.PermBufSize + p.IdxBufSize
}

// Build assembles the launch parameters for the forward/backward regime.
func Build(s ConvShape) Params {
	pu := s.PadW
	pv := s.PadH
	if s.Dir == BackwardData {
		// The transposed convolution's receptive window is reflected,
		// so padding mirrors around the kernel extent.
		pu = s.KernelW - pu - 1
		pv = s.KernelH - pv - 1
	}

	p := Params{
		Dir:        s.Dir,
		Groups:     s.Groups,
		Batch:      s.Batch,
		InChannels: s.InChannels,
		InW:        s.InW,
		InH:        s.InH,
		KernelW:    s.KernelW,
		KernelH:    s.KernelH,
		OutW:       s.OutW,
		OutH:       s.OutH,
	}
	p.PadInW = s.InW + pu<<1
	p.PadInH = s.InH + pv<<1
	p.K = s.KernelW * s.KernelH * s.InChannels
	p.N = s.OutChannels
	p.PackedPad = pv<<24 | pv<<16 | pu<<8 | pu
	p.PackedStrideDil = s.DilationH<<18 | s.DilationW<<12 | s.StrideH<<6 | s.StrideW
	p.LDC = s.OutW * s.OutH
	p.M = p.LDC * s.Batch

	var align, kmask uint32
	if s.Dir == Forward {
		p.FwdRoutine = SelectForward(p.N, p.K)
		align = p.FwdRoutine.AlignMask()
		kmask = p.FwdRoutine.KMask()
	} else {
		p.BwdRoutine = SelectBackward(p.N)
		align = p.BwdRoutine.AlignMask()
		kmask = p.BwdRoutine.KMask()
	}
	p.NTidx = alignUp(p.M, align)

	p.LDA = p.PadInW * p.PadInH
	if pu|pv != 0 {
		p.LDA *= s.Batch
		if p.LDA > 1024 {
			// Past the tiling threshold the pad buffer is rounded to
			// an odd number of 64-element lines to keep successive
			// images off the same cache set.
			t := (p.LDA + 63) >> 6
			p.LDA = (t + (1 ^ t&1)) << 6
		}
	}

	p.PaddedK = alignUp(p.K, kmask)
	p.AGS = p.LDA * s.InChannels
	p.PadBufSize = uint64(s.Groups<<2) * uint64(p.AGS)
	p.PermBufSize = uint64(s.Groups<<2) * uint64(p.PaddedK) * uint64(alignUp(p.N, 3))
	p.IdxBufSize = uint64(p.NTidx)<<3 + uint64(p.PaddedK)<<2 + 128
	if pu|pv == 0 {
		p.PadBufSize = 0
	}
	if s.Dir == Forward {
		p.PermBufSize = 0
	}
	return p
}

// AuxBufSize computes the total scratch size for a shape without keeping
// the full parameter record.
func AuxBufSize(s ConvShape) uint64 {
	p := Build(s)
	return p.AuxBufSize()
}

// UnifiedParams is the launch-parameter record for the unified regime, used
// when the spatial extent collapses the convolution to a near-GEMM shape.
// Unlike Params it carries the magic divisors the kernel consumes in place
// of runtime division.
type UnifiedParams struct {
	Dir     Direction
	Routine UnifiedRoutine

	Groups  uint32
	M, N, K uint32
	DimX    uint32 // M * batch
	NTidx   uint32 // DimX rounded up to the routine's alignment

	MagicA    MagicDivisor // divides thread indices by M >> sx
	MagicC    MagicDivisor // second stream, set only when the shifts differ
	HasMagicC bool
}

// BuildUnified assembles the launch parameters for the unified regime.
func BuildUnified(s ConvShape) UnifiedParams {
	p := UnifiedParams{
		Dir:    s.Dir,
		Groups: s.Groups,
		M:      s.InW * s.InH,
		N:      s.OutChannels,
		K:      s.InChannels,
	}
	p.Routine = SelectUnified(p.M, p.N, p.K, s.Dir)
	sx, sy := p.Routine.Shifts()
	p.DimX = p.M * s.Batch
	p.NTidx = alignUp(p.DimX, p.Routine.AlignMask())
	p.MagicA = GenerateMagic(p.NTidx>>sx, p.M>>sx)
	if sx != sy {
		p.MagicC = GenerateMagic(p.NTidx>>sy, p.M>>sy)
		p.HasMagicC = true
	}
	return p
}
