package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CeilDiv returns a / b rounded up. Used for tile and workgroup counts.
//
// Parameters:
//   - a: the dividend
//   - b: the divisor (must be > 0)
//
// Returns:
//   - uint32: the ceiling of a / b
func CeilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// IsFinite reports whether f is neither NaN nor ±Inf.
func IsFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// AllFinite reports whether every value is finite.
//
// Parameters:
//   - values: the values to check
//
// Returns:
//   - bool: false if any value is NaN or ±Inf
func AllFinite(values ...float32) bool {
	for _, v := range values {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

// NearlyEqual reports whether |a - b| <= eps.
func NearlyEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

// PutFloat32 writes v little-endian at buf[offset:offset+4].
func PutFloat32(buf []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(v))
}

// PutUint32 writes v little-endian at buf[offset:offset+4].
func PutUint32(buf []byte, offset int, v uint32) {
	binary.LittleEndian.PutUint32(buf[offset:offset+4], v)
}

// PutVec4 writes four float32 values starting at offset.
func PutVec4(buf []byte, offset int, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		PutFloat32(buf, offset+i*4, v[i])
	}
}

// PutMat4 writes a column-major 4x4 matrix (64 bytes) starting at offset.
// mgl32.Mat4 is already column-major so elements are written in storage order,
// matching the WGSL mat4x4<f32> layout.
//
// Parameters:
//   - buf: destination buffer (must hold offset+64 bytes)
//   - offset: byte offset of the first element
//   - m: the matrix to write
func PutMat4(buf []byte, offset int, m mgl32.Mat4) {
	for i := 0; i < 16; i++ {
		PutFloat32(buf, offset+i*4, m[i])
	}
}

// BytesToWords decodes a little-endian byte slice into 32-bit words.
// Trailing bytes that do not fill a whole word are ignored.
//
// Parameters:
//   - data: the raw bytes
//
// Returns:
//   - []uint32: one word per 4 input bytes
func BytesToWords(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}

// WordsToBytes encodes 32-bit words into a little-endian byte slice.
//
// Parameters:
//   - words: the words to encode
//
// Returns:
//   - []byte: 4 bytes per word
func WordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}
