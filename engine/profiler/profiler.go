package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-lights/common"
)

// Sample is what one lighting frame reports to the profiler.
type Sample struct {
	// Lights is the number of lights written to the light buffer.
	Lights int
	// Rejected counts disabled, degenerate and non-finite lights.
	Rejected int
	// Dropped counts lights beyond the light buffer capacity.
	Dropped int
	// IndexSlots is the number of light index buffer slots the cull pass reserved, when known.
	IndexSlots int
	// GridRebuilt is true when the cluster grid was rebuilt this frame.
	GridRebuilt bool
	// Skipped is true when the frame was abandoned because the device refused it.
	Skipped bool
	// Duration is the CPU time spent preparing the frame.
	Duration time.Duration
}

// Profiler aggregates lighting frame samples and memory statistics and logs a summary
// at a configurable interval.
type Profiler struct {
	now            func() time.Time
	updateInterval time.Duration
	readMem        bool

	frameCount  int
	lastTime    time.Time
	lights      int
	maxLights   int
	rejected    int
	dropped     int
	indexSlots  int
	rebuilds    int
	skipped     int
	busy        time.Duration
	memStats    runtime.MemStats
	lastGCCount uint32
}

// ProfilerBuilderOption configures a Profiler during NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often Tick logs. Defaults to one second.
//
// Parameters:
//   - d: the interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithClock replaces time.Now, for tests.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithMemStats toggles heap and GC statistics in each summary. Enabled by default.
//
// Parameters:
//   - enabled: true to read runtime.MemStats on every summary
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the option
func WithMemStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.readMem = enabled
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: ProfilerBuilderOption values
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
		readMem:        true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick records one frame. When the update interval has elapsed it logs frame rate, light
// counts, grid rebuilds, skipped frames and memory statistics, then starts a new window.
//
// Parameters:
//   - s: the frame's sample
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(s Sample) bool {
	p.frameCount++
	p.lights += s.Lights
	p.maxLights = max(p.maxLights, s.Lights)
	p.rejected += s.Rejected
	p.dropped += s.Dropped
	p.indexSlots = max(p.indexSlots, s.IndexSlots)
	p.busy += s.Duration
	if s.GridRebuilt {
		p.rebuilds++
	}
	if s.Skipped {
		p.skipped++
	}

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	attrs := []any{
		"fps", float64(p.frameCount) / elapsed.Seconds(),
		"avg_lights", float64(p.lights) / float64(p.frameCount),
		"max_lights", p.maxLights,
		"rejected", p.rejected,
		"dropped", p.dropped,
		"max_index_slots", p.indexSlots,
		"grid_rebuilds", p.rebuilds,
		"skipped_frames", p.skipped,
		"avg_prepare", p.busy / time.Duration(p.frameCount),
	}
	if p.readMem {
		runtime.ReadMemStats(&p.memStats)
		gcCount := p.memStats.NumGC
		var lastPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of the last 256 pauses.
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		}
		attrs = append(attrs,
			"heap_mb", float64(p.memStats.Alloc)/1024/1024,
			"gc", gcCount-p.lastGCCount,
			"gc_last_pause_us", lastPauseUs,
		)
		p.lastGCCount = gcCount
	}
	common.Logger().Info("lighting stats", attrs...)

	p.frameCount = 0
	p.lights, p.maxLights, p.rejected, p.dropped, p.indexSlots = 0, 0, 0, 0, 0
	p.rebuilds, p.skipped = 0, 0
	p.busy = 0
	p.lastTime = currentTime
	return true
}
