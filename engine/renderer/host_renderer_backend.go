package renderer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-lights/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// hostWorkgroupsPerTask bounds how many workgroups a single pool task executes.
const hostWorkgroupsPerTask = 64

// hostDispatch is one write or dispatch recorded between BeginComputeFrame and
// EndComputeFrame. A nil pipeline marks a write.
type hostDispatch struct {
	pipeline       pipeline.Pipeline
	provider       bind_group_provider.BindGroupProvider
	workGroupCount [3]uint32

	binding int
	offset  uint64
	data    []byte
}

// hostRendererBackendImpl executes compute pipelines on the CPU. Buffers are
// bind_group_provider.HostBuffer values and each pipeline supplies a HostKernel.
// Dispatches are deferred to EndComputeFrame so queue writes issued during a frame
// land before the frame's work, as they do on a WebGPU queue.
type hostRendererBackendImpl struct {
	pool     worker.DynamicWorkerPool
	validate bool
	fault    func(op string) error

	inFrame bool
	pending []hostDispatch
}

var _ RendererBackend = &hostRendererBackendImpl{}

func newHostRendererBackend(workers int, idleTimeout time.Duration, validate bool, fault func(op string) error) *hostRendererBackendImpl {
	return &hostRendererBackendImpl{
		pool:     worker.NewDynamicWorkerPool(workers, 256, idleTimeout),
		validate: validate,
		fault:    fault,
	}
}

// checkFault runs the fault injection hook for op, if one is installed.
func (b *hostRendererBackendImpl) checkFault(op string) error {
	if b.fault == nil {
		return nil
	}
	return b.fault(op)
}

func (b *hostRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Shader() == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}
	if p.HostKernel() == nil {
		return fmt.Errorf("pipeline %q has no host kernel", p.PipelineKey())
	}
	if b.validate {
		if err := shader.Validate(p.Shader().Source()); err != nil {
			common.Logger().Warn("shader validation failed", "pipeline", p.PipelineKey(), "error", err)
		}
	}
	return nil
}

func (b *hostRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	if err := b.checkFault("init_bind_group"); err != nil {
		return err
	}
	for _, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		if provider.HostBuffer(binding) != nil {
			continue
		}
		size := entry.Buffer.MinBindingSize
		if overrideSize, ok := bufferSizeOverrides[binding]; ok {
			size = overrideSize
		}
		if size == 0 {
			return fmt.Errorf("%s binding %d: buffer size is zero", provider.Label(), binding)
		}
		provider.SetHostBuffer(binding, bind_group_provider.NewHostBuffer(fmt.Sprintf("%s Buffer %d", provider.Label(), binding), size))
	}
	return nil
}

func (b *hostRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	if err := b.checkFault("write_buffers"); err != nil {
		return err
	}
	for _, w := range writes {
		buf := w.Provider.HostBuffer(w.Binding)
		if buf == nil {
			continue
		}
		if err := buf.Write(w.Offset, w.Data); err != nil {
			return err
		}
	}
	return nil
}

func (b *hostRendererBackendImpl) MapWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error {
	if err := b.checkFault("map_write"); err != nil {
		return err
	}
	buf := provider.HostBuffer(binding)
	if buf == nil {
		return fmt.Errorf("%s binding %d: no buffer to map", provider.Label(), binding)
	}
	return buf.Write(offset, data)
}

func (b *hostRendererBackendImpl) BeginComputeFrame() error {
	if err := b.checkFault("begin_compute"); err != nil {
		return err
	}
	b.inFrame = true
	b.pending = b.pending[:0]
	return nil
}

func (b *hostRendererBackendImpl) EncodeWrite(provider bind_group_provider.BindGroupProvider, binding int, offset uint64, data []byte) error {
	if !b.inFrame {
		return ErrNoComputeFrame
	}
	if err := b.checkFault("encode_write"); err != nil {
		return err
	}
	if provider.HostBuffer(binding) == nil {
		return fmt.Errorf("%s binding %d: no buffer to write", provider.Label(), binding)
	}
	b.pending = append(b.pending, hostDispatch{
		provider: provider,
		binding:  binding,
		offset:   offset,
		data:     append([]byte(nil), data...),
	})
	return nil
}

func (b *hostRendererBackendImpl) CancelComputeFrame() {
	b.inFrame = false
	b.pending = b.pending[:0]
}

func (b *hostRendererBackendImpl) DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	if !b.inFrame {
		return ErrNoComputeFrame
	}
	if err := b.checkFault("dispatch"); err != nil {
		return err
	}
	b.pending = append(b.pending, hostDispatch{pipeline: p, provider: provider, workGroupCount: workGroupCount})
	return nil
}

func (b *hostRendererBackendImpl) EndComputeFrame() error {
	if !b.inFrame {
		return nil
	}
	b.inFrame = false
	defer func() { b.pending = b.pending[:0] }()

	if err := b.checkFault("end_compute"); err != nil {
		return err
	}
	for _, d := range b.pending {
		if d.pipeline == nil {
			if err := d.provider.HostBuffer(d.binding).Write(d.offset, d.data); err != nil {
				return err
			}
			continue
		}
		if err := b.run(d); err != nil {
			return err
		}
	}
	return nil
}

// run executes every workgroup of a dispatch on the worker pool and waits for completion.
// Dispatches run one after another, matching the implicit barrier between compute passes.
func (b *hostRendererBackendImpl) run(d hostDispatch) error {
	kernel := d.pipeline.HostKernel()
	size := d.pipeline.WorkgroupSize()
	count := d.workGroupCount
	total := int(count[0]) * int(count[1]) * int(count[2])
	if total == 0 {
		return nil
	}
	buffers := d.provider.HostBuffers()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for start, id := 0, 0; start < total; start, id = start+hostWorkgroupsPerTask, id+1 {
		end := min(start+hostWorkgroupsPerTask, total)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID:      id,
			Payload: d.pipeline.PipelineKey(),
			Do: func() (result any, err error) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						errMu.Lock()
						if firstErr == nil {
							firstErr = fmt.Errorf("pipeline %q: kernel panic: %v", d.pipeline.PipelineKey(), rec)
						}
						errMu.Unlock()
					}
				}()
				for flat := start; flat < end; flat++ {
					wgX := uint32(flat) % count[0]
					wgY := (uint32(flat) / count[0]) % count[1]
					wgZ := uint32(flat) / (count[0] * count[1])
					for lz := uint32(0); lz < size[2]; lz++ {
						for ly := uint32(0); ly < size[1]; ly++ {
							for lx := uint32(0); lx < size[0]; lx++ {
								kernel([3]uint32{wgX*size[0] + lx, wgY*size[1] + ly, wgZ*size[2] + lz}, buffers)
							}
						}
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return firstErr
}

func (b *hostRendererBackendImpl) ReadBuffer(provider bind_group_provider.BindGroupProvider, binding int, offset, size uint64) ([]byte, error) {
	if err := b.checkFault("read_buffer"); err != nil {
		return nil, err
	}
	buf := provider.HostBuffer(binding)
	if buf == nil {
		return nil, fmt.Errorf("%s binding %d: no buffer to read", provider.Label(), binding)
	}
	return buf.Read(offset, size)
}

func (b *hostRendererBackendImpl) Release() {
	b.pool.Stop()
}
