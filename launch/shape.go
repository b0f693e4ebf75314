package launch

import "fmt"

// ConvShape describes one convolution configuration. It is a plain value:
// comparable, immutable by convention, and usable as a memoization key.
//
// All extents are in elements. The builders trust the shape: negative or
// degenerate configurations must be rejected by the caller (NewConvShape
// does so), not here.
type ConvShape struct {
	Batch       uint32
	InChannels  uint32
	OutChannels uint32
	InH, InW    uint32

	KernelH, KernelW uint32
	OutH, OutW       uint32

	PadH, PadW           uint32
	StrideH, StrideW     uint32
	DilationH, DilationW uint32

	Groups uint32
	Dir    Direction
}

// NewConvShape populates a ConvShape from the user-facing convolution
// configuration, deriving the output extents:
//
//	out = (in + 2*pad - dilation*(kernel-1) - 1) / stride + 1
//
// It panics on arguments that can never describe a convolution.
func NewConvShape(
	batch, inChannels, outChannels uint32,
	inH, inW uint32,
	kernelH, kernelW uint32,
	padH, padW uint32,
	strideH, strideW uint32,
	dilationH, dilationW uint32,
	groups uint32,
	dir Direction,
) ConvShape {
	if kernelH == 0 || kernelW == 0 {
		panic(fmt.Sprintf("launch: invalid kernel size h=%d, w=%d", kernelH, kernelW))
	}
	if strideH == 0 || strideW == 0 {
		panic(fmt.Sprintf("launch: invalid stride h=%d, w=%d", strideH, strideW))
	}
	if dilationH == 0 || dilationW == 0 {
		panic(fmt.Sprintf("launch: invalid dilation h=%d, w=%d", dilationH, dilationW))
	}
	if groups == 0 {
		panic("launch: group count must be positive")
	}
	return ConvShape{
		Batch:       batch,
		InChannels:  inChannels,
		OutChannels: outChannels,
		InH:         inH,
		InW:         inW,
		KernelH:     kernelH,
		KernelW:     kernelW,
		OutH:        outExtent(inH, kernelH, padH, strideH, dilationH),
		OutW:        outExtent(inW, kernelW, padW, strideW, dilationW),
		PadH:        padH,
		PadW:        padW,
		StrideH:     strideH,
		StrideW:     strideW,
		DilationH:   dilationH,
		DilationW:   dilationW,
		Groups:      groups,
		Dir:         dir,
	}
}

func outExtent(in, kernel, pad, stride, dilation uint32) uint32 {
	return (in+2*pad-dilation*(kernel-1)-1)/stride + 1
}
