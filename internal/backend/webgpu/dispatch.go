//go:build windows

package webgpu

import (
	"encoding/binary"
	"unsafe"

	"github.com/flexgemm-ml/flexgemm/launch"
	"github.com/go-webgpu/webgpu/wgpu"
)

// AuxBuffer is one scratch allocation for a launch, sliced in the fixed
// order the kernels expect. The regions are byte offsets into a single
// storage buffer; the uniform block hands them to the kernel.
type AuxBuffer struct {
	buf *wgpu.Buffer

	PadOff  uint64
	PermOff uint64
	IdxOff  uint64
	Size    uint64
}

// Release frees the underlying buffer.
func (a *AuxBuffer) Release() {
	a.buf.Release()
}

// AllocAux reserves the auxiliary scratch allocation for a launch. The
// total size is the only quantity the planner exposes to the allocator;
// the [pad][permutation][index] split is recovered from the record.
func (b *Backend) AllocAux(p *launch.Params) *AuxBuffer {
	size := p.AuxBufSize()
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	return &AuxBuffer{
		buf:     buf,
		PadOff:  0,
		PermOff: p.PadBufSize,
		IdxOff:  p.PadBufSize + p.PermBufSize,
		Size:    size,
	}
}

// uniformBlockSize holds the packed launch parameters below, rounded up to
// the 16-byte uniform alignment.
const uniformBlockSize = 112

// packUniform serializes the launch parameters as the kernel-argument
// uniform block. Field order is the kernels' ABI; keep in sync with the
// WGSL param struct.
func packUniform(p *launch.Params, aux *AuxBuffer) []byte {
	u := make([]byte, uniformBlockSize)
	le := binary.LittleEndian
	le.PutUint32(u[0:], p.RoutineID())
	le.PutUint32(u[4:], uint32(p.Dir))
	le.PutUint32(u[8:], p.Groups)
	le.PutUint32(u[12:], p.Batch)
	le.PutUint32(u[16:], p.InChannels)
	le.PutUint32(u[20:], p.InW)
	le.PutUint32(u[24:], p.InH)
	le.PutUint32(u[28:], p.KernelW)
	le.PutUint32(u[32:], p.KernelH)
	le.PutUint32(u[36:], p.OutW)
	le.PutUint32(u[40:], p.OutH)
	le.PutUint32(u[44:], p.PadInW)
	le.PutUint32(u[48:], p.PadInH)
	le.PutUint32(u[52:], p.K)
	le.PutUint32(u[56:], p.N)
	le.PutUint32(u[60:], p.M)
	le.PutUint32(u[64:], p.NTidx)
	le.PutUint32(u[68:], p.PaddedK)
	le.PutUint32(u[72:], p.LDA)
	le.PutUint32(u[76:], p.LDC)
	le.PutUint32(u[80:], p.AGS)
	le.PutUint32(u[84:], p.PackedPad)
	le.PutUint32(u[88:], p.PackedStrideDil)
	le.PutUint32(u[92:], uint32(aux.PadOff))
	le.PutUint32(u[96:], uint32(aux.PermOff))
	le.PutUint32(u[100:], uint32(aux.IdxOff))
	return u
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// Binding pairs a caller-owned tensor buffer with its byte size.
type Binding struct {
	Buf  *wgpu.Buffer
	Size uint64
}

// Dispatch launches the routine a parameter record selected. src, filter
// and dst are the caller's tensor buffers; the auxiliary scratch is
// allocated here and released after submission.
func (b *Backend) Dispatch(p *launch.Params, src, filter, dst Binding) error {
	pipeline, err := b.pipelineFor(p.Dir, p.RoutineID())
	if err != nil {
		return err
	}

	aux := b.AllocAux(p)
	defer aux.Release()

	bufferParams := b.createUniformBuffer(packUniform(p, aux))
	defer bufferParams.Release()

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, src.Buf, 0, src.Size),
		wgpu.BufferBindingEntry(1, filter.Buf, 0, filter.Size),
		wgpu.BufferBindingEntry(2, dst.Buf, 0, dst.Size),
		wgpu.BufferBindingEntry(3, aux.buf, 0, aux.Size),
		wgpu.BufferBindingEntry(4, bufferParams, 0, uniformBlockSize),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)

	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)

	// One thread per padded output index; the narrow variants round NTidx
	// to 128 so the count still ceil-divides cleanly.
	workgroups := (p.NTidx + workgroupSize - 1) / workgroupSize
	computePass.DispatchWorkgroups(workgroups, 1, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	return nil
}
