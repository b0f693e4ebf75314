// Package launch computes host-side launch parameters for the flexgemm
// family of implicit-GEMM convolution kernels.
//
// # Overview
//
// Before a convolution can be dispatched, the host has to decide which of a
// small set of precompiled kernel variants will run it, derive the
// multiply-shift constants the kernel uses in place of integer division, and
// size the scratch buffers the variant needs. This package does exactly that
// and nothing else:
//   - BitWidth / GenerateMagic: exact unsigned division by multiply-and-shift
//   - SelectForward / SelectBackward / SelectUnified: kernel variant choice
//   - Build / BuildUnified: the complete launch-parameter records
//   - Planner: a concurrency-safe memoizing front end
//
// # Basic Usage
//
//	shape := launch.NewConvShape(1, 3, 64, 224, 224, 7, 7, 3, 3, 2, 2, 1, 1, 1, launch.Forward)
//	p := launch.Build(shape)
//
//	// p.Routine selects the kernel, p.AuxBufSize() is the scratch allocation,
//	// sliced in the fixed order [pad][permutation][index].
//
// Everything here is pure integer arithmetic: no I/O, no shared state, same
// shape in, same parameters out. Shape validity (non-negative extents,
// positive kernel sizes) is the caller's responsibility; constructors panic on
// arguments that can never describe a convolution.
package launch
