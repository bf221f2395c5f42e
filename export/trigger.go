package export

import (
	"sync"

	"go.uber.org/zap"

	"github.com/veldt-io/exportd/bus"
	"github.com/veldt-io/exportd/config"
	"github.com/veldt-io/exportd/idle"
)

// TriggerController owns the scheduler's paused/resumed state, as a function
// of the global trigger mode and the live idle signal:
//
//	off:       paused, regardless of idle signal
//	immediate: resumed, regardless of idle signal
//	idle:      resumed only while the machine is idle
//
// Both inputs are level-triggered: re-applying the current mode or signal
// is idempotent.
type TriggerController struct {
	sched  *Scheduler
	logger *zap.SugaredLogger

	mu      sync.Mutex
	mode    string
	envIdle bool
}

// NewTriggerController creates a controller and applies the initial mode.
func NewTriggerController(sched *Scheduler, initialMode string, logger *zap.SugaredLogger) *TriggerController {
	t := &TriggerController{
		sched:  sched,
		logger: logger,
		mode:   initialMode,
	}
	t.apply()
	return t
}

// Bind subscribes the controller to preference and idle events.
func (t *TriggerController) Bind(b *bus.Bus) {
	b.On(EventPreferencesChanged, func(payload interface{}) {
		mode, ok := payload.(string)
		if !ok {
			t.logger.Warnw("Ignoring preference event with unexpected payload", "payload", payload)
			return
		}
		t.SetMode(mode)
	})
	b.On(EventIdleState, func(payload interface{}) {
		state, ok := payload.(idle.State)
		if !ok {
			t.logger.Warnw("Ignoring idle event with unexpected payload", "payload", payload)
			return
		}
		t.HandleIdleState(state)
	})
}

// SetMode switches the global trigger mode. Unknown modes are ignored.
func (t *TriggerController) SetMode(mode string) {
	if !config.ValidMode(mode) {
		t.logger.Warnw("Ignoring unknown trigger mode", "mode", mode)
		return
	}

	t.mu.Lock()
	changed := t.mode != mode
	t.mode = mode
	t.mu.Unlock()

	if changed {
		t.logger.Infow("Trigger mode changed", "mode", mode)
	}
	t.apply()
}

// Mode returns the current trigger mode.
func (t *TriggerController) Mode() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// HandleIdleState feeds a live signal from the idle watcher.
func (t *TriggerController) HandleIdleState(state idle.State) {
	t.mu.Lock()
	switch state {
	case idle.StateIdle:
		t.envIdle = true
	case idle.StateActive, idle.StateBack:
		t.envIdle = false
	}
	t.mu.Unlock()

	t.apply()
}

// apply drives the scheduler to the state implied by (mode, idle signal).
func (t *TriggerController) apply() {
	t.mu.Lock()
	mode := t.mode
	envIdle := t.envIdle
	t.mu.Unlock()

	switch mode {
	case config.ModeOff:
		t.sched.Pause()
	case config.ModeImmediate:
		t.sched.Resume()
	case config.ModeIdle:
		if envIdle {
			t.sched.Resume()
		} else {
			t.sched.Pause()
		}
	}
}
