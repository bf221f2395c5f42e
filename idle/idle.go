// Package idle watches machine activity and reports idle/active transitions.
//
// Activity is inferred from CPU utilization sampled via gopsutil: a stretch
// of samples below the threshold lasting the configured wait means the
// machine is idle. The trigger controller consumes these signals to gate the
// export scheduler in idle mode.
package idle

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/veldt-io/exportd/errors"
)

// State is an idle-observer notification.
type State string

const (
	// StateActive fires when activity interrupts a quiet stretch that had
	// not yet reached the idle wait.
	StateActive State = "active"
	// StateIdle fires once the machine has been quiet for the full wait.
	StateIdle State = "idle"
	// StateBack fires when activity returns after an idle stretch.
	StateBack State = "back"
)

// Observer receives state notifications. Called on the watcher's goroutine;
// observers must not block.
type Observer func(State)

// Sampler returns current CPU utilization in percent. Injectable for tests.
type Sampler func() (float64, error)

// Config controls watcher behavior.
type Config struct {
	IdleWait     time.Duration // quiet time before the machine counts as idle
	Interval     time.Duration // sampling cadence
	CPUThreshold float64       // percent below which a sample counts as quiet
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		IdleWait:     5 * time.Minute,
		Interval:     5 * time.Second,
		CPUThreshold: 10.0,
	}
}

// Watcher samples activity and notifies observers of idle transitions.
type Watcher struct {
	cfg    Config
	sample Sampler
	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	observers  []Observer
	quietSince time.Time
	wasQuiet   bool
	isIdle     bool
}

// NewWatcher creates an idle watcher using the gopsutil CPU sampler.
func NewWatcher(cfg Config, logger *zap.SugaredLogger) *Watcher {
	return NewWatcherWithSampler(cfg, cpuSample, logger)
}

// NewWatcherWithSampler creates a watcher with a custom sampler (tests).
func NewWatcherWithSampler(cfg Config, sample Sampler, logger *zap.SugaredLogger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:      cfg,
		sample:   sample,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		wasQuiet: true,
	}
}

func cpuSample() (float64, error) {
	// Interval 0 compares against the previous call, avoiding a blocking
	// measurement window on every tick.
	pcts, err := cpu.Percent(0, false)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sample cpu")
	}
	if len(pcts) == 0 {
		return 0, errors.New("cpu sampler returned no data")
	}
	return pcts[0], nil
}

// AddObserver registers an observer for state notifications.
func (w *Watcher) AddObserver(obs Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, obs)
}

// Start begins the sampling loop.
func (w *Watcher) Start() {
	w.mu.Lock()
	w.quietSince = time.Now()
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()
	if w.logger != nil {
		w.logger.Infow("Idle watcher started",
			"idle_wait", w.cfg.IdleWait,
			"interval", w.cfg.Interval,
			"cpu_threshold", w.cfg.CPUThreshold)
	}
}

// Stop terminates the sampling loop.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			w.tick(now)
		}
	}
}

// tick evaluates one sample. Exported indirectly through the sampler for
// deterministic tests via Observe-style injection.
func (w *Watcher) tick(now time.Time) {
	pct, err := w.sample()
	if err != nil {
		if w.logger != nil {
			w.logger.Warnw("Idle sample failed", "error", err)
		}
		return
	}

	w.mu.Lock()
	quiet := pct < w.cfg.CPUThreshold

	var notify []State
	switch {
	case quiet && !w.isIdle && now.Sub(w.quietSince) >= w.cfg.IdleWait:
		w.isIdle = true
		notify = append(notify, StateIdle)
	case !quiet && w.isIdle:
		w.isIdle = false
		w.quietSince = now
		notify = append(notify, StateBack)
	case !quiet:
		// Busy sample resets the quiet stretch; only a quiet-to-busy
		// transition notifies, a machine that stays busy is not news
		w.quietSince = now
		if w.wasQuiet {
			notify = append(notify, StateActive)
		}
	}
	w.wasQuiet = quiet
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.mu.Unlock()

	for _, state := range notify {
		if w.logger != nil {
			w.logger.Debugw("Idle state change", "state", state, "cpu_pct", pct)
		}
		for _, obs := range observers {
			obs(state)
		}
	}
}
