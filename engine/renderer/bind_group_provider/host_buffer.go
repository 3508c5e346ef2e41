package bind_group_provider

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-lights/common"
)

// HostBuffer is the Host backend's storage for one binding: a little-endian array of
// 32-bit words. Every word access goes through sync/atomic so concurrently running
// invocations of a dispatch may share a buffer the way WGSL storage buffers are shared.
type HostBuffer struct {
	label string
	words []uint32
}

// NewHostBuffer allocates a zeroed host buffer. The size is rounded up to a whole word.
//
// Parameters:
//   - label: debug label
//   - size: size in bytes
//
// Returns:
//   - *HostBuffer: the buffer
func NewHostBuffer(label string, size uint64) *HostBuffer {
	return &HostBuffer{
		label: label,
		words: make([]uint32, (size+3)/4),
	}
}

// Label returns the debug label.
func (b *HostBuffer) Label() string {
	return b.label
}

// Size returns the buffer size in bytes.
func (b *HostBuffer) Size() uint64 {
	return uint64(len(b.words)) * 4
}

// Len returns the number of 32-bit words.
func (b *HostBuffer) Len() int {
	return len(b.words)
}

// Write copies data into the buffer at a byte offset. Offset and length must be multiples
// of four, matching the WebGPU queue write rules.
//
// Parameters:
//   - offset: destination byte offset
//   - data: bytes to copy
//
// Returns:
//   - error: an error if the write is misaligned or out of range
func (b *HostBuffer) Write(offset uint64, data []byte) error {
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("host buffer %s: misaligned write at %d (%d bytes)", b.label, offset, len(data))
	}
	if offset+uint64(len(data)) > b.Size() {
		return fmt.Errorf("host buffer %s: write of %d bytes at %d exceeds size %d", b.label, len(data), offset, b.Size())
	}
	base := int(offset / 4)
	for i, w := range common.BytesToWords(data) {
		atomic.StoreUint32(&b.words[base+i], w)
	}
	return nil
}

// Read copies size bytes starting at a byte offset out of the buffer.
//
// Parameters:
//   - offset: source byte offset, a multiple of four
//   - size: number of bytes, a multiple of four
//
// Returns:
//   - []byte: a copy of the requested range
//   - error: an error if the read is misaligned or out of range
func (b *HostBuffer) Read(offset, size uint64) ([]byte, error) {
	if offset%4 != 0 || size%4 != 0 {
		return nil, fmt.Errorf("host buffer %s: misaligned read at %d (%d bytes)", b.label, offset, size)
	}
	if offset+size > b.Size() {
		return nil, fmt.Errorf("host buffer %s: read of %d bytes at %d exceeds size %d", b.label, size, offset, b.Size())
	}
	base := int(offset / 4)
	out := make([]uint32, size/4)
	for i := range out {
		out[i] = atomic.LoadUint32(&b.words[base+i])
	}
	return common.WordsToBytes(out), nil
}

// Load returns word i.
func (b *HostBuffer) Load(i int) uint32 {
	return atomic.LoadUint32(&b.words[i])
}

// Store sets word i.
func (b *HostBuffer) Store(i int, v uint32) {
	atomic.StoreUint32(&b.words[i], v)
}

// LoadFloat returns word i reinterpreted as an f32.
func (b *HostBuffer) LoadFloat(i int) float32 {
	return math.Float32frombits(b.Load(i))
}

// StoreFloat sets word i to the bits of an f32.
func (b *HostBuffer) StoreFloat(i int, v float32) {
	b.Store(i, math.Float32bits(v))
}

// AtomicAdd adds delta to word i and returns the previous value, like WGSL atomicAdd.
func (b *HostBuffer) AtomicAdd(i int, delta uint32) uint32 {
	return atomic.AddUint32(&b.words[i], delta) - delta
}
