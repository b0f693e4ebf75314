//go:build windows

// Package webgpu dispatches flexgemm kernel variants over WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// The launch package decides everything; this package only carries it out:
// it reserves the auxiliary scratch allocation a routine asked for, slices
// it into the fixed [pad][permutation][index] regions, packs the launch
// parameters into a uniform block and runs the selected compute pipeline.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/flexgemm-ml/flexgemm/launch"
	"github.com/go-webgpu/webgpu/wgpu"
)

// workgroupSize matches the thread-block width the kernel variants are
// compiled for; NTidx is always a multiple of it.
const workgroupSize = 256

// kernelKey identifies one registered kernel variant.
type kernelKey struct {
	dir launch.Direction
	id  uint32
}

// Backend owns the WebGPU device state and the shader/pipeline caches.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	kernels   map[kernelKey]string
	mu        sync.RWMutex
}

// New creates a new WebGPU dispatch backend.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Backend{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
		kernels:   make(map[kernelKey]string),
	}, nil
}

// RegisterKernel associates a routine id for a direction with WGSL source.
// Kernel source selection and generation live with the caller; the launch
// core never sees shader text.
func (b *Backend) RegisterKernel(dir launch.Direction, id uint32, name, code string) {
	b.mu.Lock()
	b.kernels[kernelKey{dir: dir, id: id}] = name
	b.mu.Unlock()
	b.compileShader(name, code)
}

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Create compute pipeline with auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// pipelineFor resolves the compute pipeline for a routine choice.
func (b *Backend) pipelineFor(dir launch.Direction, id uint32) (*wgpu.ComputePipeline, error) {
	b.mu.RLock()
	name, ok := b.kernels[kernelKey{dir: dir, id: id}]
	var shader *wgpu.ShaderModule
	if ok {
		shader = b.shaders[name]
	}
	b.mu.RUnlock()
	if !ok || shader == nil {
		return nil, fmt.Errorf("webgpu: no kernel registered for %s routine %d", dir, id)
	}
	return b.getOrCreatePipeline(name, shader), nil
}

// Release frees the device state.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pipelines {
		p.Release()
	}
	for _, s := range b.shaders {
		s.Release()
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}
