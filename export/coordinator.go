package export

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/veldt-io/exportd/bus"
	"github.com/veldt-io/exportd/config"
	"github.com/veldt-io/exportd/library"
	"github.com/veldt-io/exportd/translate"
)

// Coordinator is the facade over the scheduling pipeline. It owns the
// definition lifecycle (add/remove/run/init) and wires scope-change events
// into the debounce scheduler.
type Coordinator struct {
	defs    *Store
	sched   *Scheduler
	runner  *Runner
	trigger *TriggerController
	router  *ChangeRouter
	bus     *bus.Bus
	logger  *zap.SugaredLogger
}

// NewCoordinator builds the full pipeline on an open database and
// subscribes it to the bus.
func NewCoordinator(db *sql.DB, b *bus.Bus, registry *translate.Registry, cfg *config.Config, logger *zap.SugaredLogger) *Coordinator {
	defs := NewStore(db)
	lib := library.NewStore(db)

	runner := NewRunner(defs, lib, registry, RunnerConfig{
		MaxExportsPerMinute: cfg.AutoExport.MaxExportsPerMinute,
	}, logger.Named("runner"))

	sched := NewScheduler(cfg.AutoExport.QuietPeriod(), defs, runner.Push, logger.Named("scheduler"))
	trigger := NewTriggerController(sched, cfg.AutoExport.Mode, logger.Named("trigger"))
	router := NewChangeRouter(lib, b, logger.Named("router"))

	c := &Coordinator{
		defs:    defs,
		sched:   sched,
		runner:  runner,
		trigger: trigger,
		router:  router,
		bus:     b,
		logger:  logger,
	}
	c.subscribe()
	trigger.Bind(b)
	return c
}

func (c *Coordinator) subscribe() {
	c.bus.On(EventCollectionsChanged, c.scopeHandler(ScopeCollection, c.Schedule))
	c.bus.On(EventLibrariesChanged, c.scopeHandler(ScopeLibrary, c.Schedule))
	c.bus.On(EventCollectionsRemoved, c.scopeHandler(ScopeCollection, c.Remove))
	c.bus.On(EventLibrariesRemoved, c.scopeHandler(ScopeLibrary, c.Remove))
}

func (c *Coordinator) scopeHandler(kind ScopeKind, op func(ScopeKind, []string) error) bus.Handler {
	return func(payload interface{}) {
		ids, ok := payload.([]string)
		if !ok {
			c.logger.Warnw("Ignoring scope event with unexpected payload", "payload", payload)
			return
		}
		if err := op(kind, ids); err != nil {
			c.logger.Errorw("Scope event handling failed", "scope_kind", kind, "ids", ids, "error", err)
		}
	}
}

// Init re-enqueues definitions interrupted in a prior process lifetime:
// anything not done already represents settled intent, so it goes straight
// to the runner, skipping the debounce wait. The trigger controller applied
// the configured mode at construction; immediate mode therefore starts with
// the scheduler resumed.
func (c *Coordinator) Init() error {
	incomplete, err := c.defs.ListIncomplete()
	if err != nil {
		return err
	}

	for _, def := range incomplete {
		c.logger.Infow("Re-enqueueing interrupted definition",
			"definition_id", def.ID, "status", def.Status)
		c.runner.Push(def.ID)
	}

	c.logger.Infow("Coordinator initialized",
		"re-enqueued", len(incomplete),
		"mode", c.trigger.Mode())
	return nil
}

// Add inserts a definition, replacing any existing definition at the same
// output path.
func (c *Coordinator) Add(def *Definition) error {
	removed, err := c.defs.RemoveByPath(def.Path)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.logger.Infow("Replaced definition at path", "path", def.Path)
	}
	return c.defs.Insert(def)
}

// Remove deletes every definition watching one of the scope ids, cancelling
// pending debounce and queued run entries first. Work already executing
// finishes (best-effort cancellation).
func (c *Coordinator) Remove(kind ScopeKind, scopeIDs []string) error {
	defs, err := c.defs.FindByScope(kind, scopeIDs)
	if err != nil {
		return err
	}

	for _, def := range defs {
		c.sched.Cancel(def.ID)
		c.runner.Cancel(def.ID)
		if err := c.defs.Remove(def.ID); err != nil {
			return err
		}
		c.logger.Infow("Removed definition",
			"definition_id", def.ID, "scope_kind", kind, "scope_id", def.ScopeID)
	}
	return nil
}

// Schedule pushes every definition watching one of the scope ids into the
// debounce scheduler.
func (c *Coordinator) Schedule(kind ScopeKind, scopeIDs []string) error {
	defs, err := c.defs.FindByScope(kind, scopeIDs)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if err := c.sched.Push(def.ID); err != nil {
			return err
		}
	}
	return nil
}

// Run bypasses the debounce stage entirely: the definition is marked
// scheduled and handed straight to the runner.
func (c *Coordinator) Run(id string) error {
	if err := c.defs.MarkStatus(id, StatusScheduled); err != nil {
		return err
	}
	c.runner.Push(id)
	return nil
}

// Changed forwards a batch of item mutations to the change router.
func (c *Coordinator) Changed(items []*library.Item) error {
	return c.router.Changed(items)
}

// Definitions exposes the definition store (CLI, inspection).
func (c *Coordinator) Definitions() *Store {
	return c.defs
}

// Trigger exposes the trigger controller.
func (c *Coordinator) Trigger() *TriggerController {
	return c.trigger
}

// Scheduler exposes the debounce scheduler.
func (c *Coordinator) Scheduler() *Scheduler {
	return c.sched
}

// Runner exposes the run executor.
func (c *Coordinator) Runner() *Runner {
	return c.runner
}

// Shutdown stops pending waits and drains in-flight executions.
func (c *Coordinator) Shutdown() {
	c.sched.Shutdown()
	c.runner.Shutdown()
}
