package idle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// drive feeds a sequence of CPU samples through the watcher's tick logic
// with a fixed step between samples.
func drive(w *Watcher, start time.Time, step time.Duration, samples []float64) []State {
	var got []State
	w.AddObserver(func(s State) {
		got = append(got, s)
	})
	w.quietSince = start
	now := start
	idx := 0
	w.sample = func() (float64, error) {
		v := samples[idx]
		idx++
		return v, nil
	}
	for range samples {
		now = now.Add(step)
		w.tick(now)
	}
	return got
}

func testConfig() Config {
	return Config{
		IdleWait:     10 * time.Second,
		Interval:     time.Second,
		CPUThreshold: 10.0,
	}
}

func TestIdleAfterQuietStretch(t *testing.T) {
	w := NewWatcherWithSampler(testConfig(), nil, nil)
	start := time.Now()

	// 10 quiet samples, 1s apart: the 10th crosses the wait
	got := drive(w, start, time.Second, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	assert.Equal(t, []State{StateIdle}, got)
}

func TestBusySampleResetsQuietStretch(t *testing.T) {
	w := NewWatcherWithSampler(testConfig(), nil, nil)
	start := time.Now()

	// Busy sample at t=5 resets the counter; never reaches idle
	got := drive(w, start, time.Second, []float64{1, 1, 1, 1, 90, 1, 1, 1, 1, 1})
	assert.Equal(t, []State{StateActive}, got)
}

func TestSustainedBusyNotifiesOnce(t *testing.T) {
	w := NewWatcherWithSampler(testConfig(), nil, nil)
	start := time.Now()

	// Only the quiet-to-busy transition fires; staying busy is silent, and
	// the next quiet-to-busy edge fires again
	got := drive(w, start, time.Second, []float64{1, 1, 90, 95, 92, 88, 1, 1, 91})
	assert.Equal(t, []State{StateActive, StateActive}, got)
}

func TestBackAfterIdle(t *testing.T) {
	w := NewWatcherWithSampler(testConfig(), nil, nil)
	start := time.Now()

	samples := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 95}
	got := drive(w, start, time.Second, samples)
	assert.Equal(t, []State{StateIdle, StateBack}, got)
}

func TestIdleFiresOnce(t *testing.T) {
	w := NewWatcherWithSampler(testConfig(), nil, nil)
	start := time.Now()

	// Quiet the whole time: exactly one idle notification
	samples := make([]float64, 20)
	got := drive(w, start, time.Second, samples)
	assert.Equal(t, []State{StateIdle}, got)
}

func TestSamplerErrorIsSkipped(t *testing.T) {
	w := NewWatcherWithSampler(testConfig(), func() (float64, error) {
		return 0, assert.AnError
	}, nil)

	var got []State
	w.AddObserver(func(s State) { got = append(got, s) })
	w.tick(time.Now())
	assert.Empty(t, got)
}
