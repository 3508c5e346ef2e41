package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(40), CeilDiv(2560, 64))
	assert.Equal(t, uint32(23), CeilDiv(1440, 64))
	assert.Equal(t, uint32(1), CeilDiv(1, 16))
	assert.Equal(t, uint32(0), CeilDiv(0, 16))
}

func TestAllFinite(t *testing.T) {
	assert.True(t, AllFinite(0, 1, -1e30))
	assert.False(t, AllFinite(1, float32(math.NaN())))
	assert.False(t, AllFinite(float32(math.Inf(-1))))
	assert.True(t, AllFinite())
}

func TestNearlyEqual(t *testing.T) {
	assert.True(t, NearlyEqual(1, 1.00005, 1e-4))
	assert.False(t, NearlyEqual(1, 1.001, 1e-4))
}

func TestPutMat4_ColumnMajor(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := make([]byte, 64)
	PutMat4(buf, 0, m)

	words := BytesToWords(buf)
	assert.Len(t, words, 16)
	// Translation lives in the fourth column.
	assert.Equal(t, float32(1), math.Float32frombits(words[12]))
	assert.Equal(t, float32(2), math.Float32frombits(words[13]))
	assert.Equal(t, float32(3), math.Float32frombits(words[14]))
}

func TestWordsToBytes(t *testing.T) {
	words := []uint32{1, 0xdeadbeef}
	assert.Equal(t, words, BytesToWords(WordsToBytes(words)))
	assert.Equal(t, []byte{1, 0, 0, 0}, WordsToBytes([]uint32{1}))
}
