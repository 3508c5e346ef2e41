package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-lights/common"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { common.SetLogger(nil) })
	return &buf
}

func TestProfiler_LogsAtInterval(t *testing.T) {
	logs := captureLogs(t)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clock.now), WithUpdateInterval(time.Second), WithMemStats(false))

	clock.advance(400 * time.Millisecond)
	assert.False(t, p.Tick(Sample{Lights: 10, Duration: time.Millisecond}))
	clock.advance(400 * time.Millisecond)
	assert.False(t, p.Tick(Sample{Lights: 30, Rejected: 2, GridRebuilt: true, Duration: 3 * time.Millisecond}))
	assert.Empty(t, logs.String())

	clock.advance(200 * time.Millisecond)
	assert.True(t, p.Tick(Sample{Lights: 20, Dropped: 1, Skipped: true, IndexSlots: 64, Duration: 2 * time.Millisecond}))

	out := logs.String()
	assert.Contains(t, out, "lighting stats")
	assert.Contains(t, out, "fps=3")
	assert.Contains(t, out, "avg_lights=20")
	assert.Contains(t, out, "max_lights=30")
	assert.Contains(t, out, "rejected=2")
	assert.Contains(t, out, "dropped=1")
	assert.Contains(t, out, "max_index_slots=64")
	assert.Contains(t, out, "grid_rebuilds=1")
	assert.Contains(t, out, "skipped_frames=1")
	assert.Contains(t, out, "avg_prepare=2ms")
	assert.NotContains(t, out, "heap_mb")
}

func TestProfiler_ResetsWindow(t *testing.T) {
	logs := captureLogs(t)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithUpdateInterval(time.Second))

	clock.advance(time.Second)
	assert.True(t, p.Tick(Sample{Lights: 100, GridRebuilt: true}))
	logs.Reset()

	clock.advance(2 * time.Second)
	assert.True(t, p.Tick(Sample{Lights: 4}))
	out := logs.String()
	assert.Contains(t, out, "max_lights=4")
	assert.Contains(t, out, "grid_rebuilds=0")
	assert.Contains(t, out, "fps=0.5")
	assert.Contains(t, out, "heap_mb")
	assert.Equal(t, 1, strings.Count(out, "lighting stats"))
}
