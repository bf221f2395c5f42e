package export

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veldt-io/exportd/errors"
	"github.com/veldt-io/exportd/gitsync"
	"github.com/veldt-io/exportd/library"
	"github.com/veldt-io/exportd/translate"
)

// Runner executes exports, at most one at a time per definition identity.
//
// Collision policy: queue-and-run-after. A Push for an identity that is
// already executing marks it for exactly one follow-up run, started when the
// current run finishes, so the settled state always wins. Executions for
// distinct identities proceed concurrently.
type Runner struct {
	defs      *Store
	lib       *library.Store
	registry  *translate.Registry
	logger    *zap.SugaredLogger
	rateLimit rate.Limit

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	active   map[string]bool
	rerun    map[string]bool
	limiters map[string]*rate.Limiter
}

// RunnerConfig contains configuration for the runner.
type RunnerConfig struct {
	MaxExportsPerMinute int // per-definition execution rate cap; <=0 disables
}

// NewRunner creates a run executor.
func NewRunner(defs *Store, lib *library.Store, registry *translate.Registry, cfg RunnerConfig, logger *zap.SugaredLogger) *Runner {
	return NewRunnerWithContext(context.Background(), defs, lib, registry, cfg, logger)
}

// NewRunnerWithContext creates a runner with a parent context. Cancelling
// the context aborts rate-limit waits and in-flight translations that honor
// cancellation.
func NewRunnerWithContext(ctx context.Context, defs *Store, lib *library.Store, registry *translate.Registry, cfg RunnerConfig, logger *zap.SugaredLogger) *Runner {
	runnerCtx, cancel := context.WithCancel(ctx)

	limit := rate.Inf
	if cfg.MaxExportsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.MaxExportsPerMinute) / 60.0)
	}

	return &Runner{
		defs:      defs,
		lib:       lib,
		registry:  registry,
		logger:    logger,
		rateLimit: limit,
		ctx:       runnerCtx,
		cancel:    cancel,
		active:    make(map[string]bool),
		rerun:     make(map[string]bool),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Push requests an execution for the identity. If one is already in flight,
// the request is queued behind it (collision policy above) and Push returns
// immediately.
func (r *Runner) Push(id string) {
	r.mu.Lock()
	if r.active[id] {
		r.rerun[id] = true
		r.mu.Unlock()
		r.logger.Debugw("Execution already in flight, queued rerun", "definition_id", id)
		return
	}
	r.active[id] = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(id)
}

// Cancel drops any queued follow-up run for the identity. An execution that
// has already started runs to completion; cancellation is best-effort for
// in-flight work.
func (r *Runner) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rerun, id)
}

// Active reports whether an execution is in flight for the identity.
func (r *Runner) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[id]
}

// Wait blocks until every in-flight execution has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels the runner context and waits for in-flight work.
func (r *Runner) Shutdown() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(id string) {
	defer r.wg.Done()

	if err := r.Execute(r.ctx, id); err != nil {
		if errors.IsNotFoundError(err) {
			// The identity existed when scheduled; the store and the
			// scheduler have diverged
			r.logger.Errorw("Consistency fault: scheduled definition missing at execution time",
				"definition_id", id, "error", err)
		} else {
			r.logger.Errorw("Execution failed", "definition_id", id, "error", err)
		}
	}

	r.mu.Lock()
	delete(r.active, id)
	queued := r.rerun[id]
	delete(r.rerun, id)
	r.mu.Unlock()

	if queued {
		r.logger.Debugw("Starting queued rerun", "definition_id", id)
		r.Push(id)
	}
}

// Execute performs one export synchronously: load, mark running, translate,
// record outcome, mark done. Export failures are contained: they are
// recorded on the definition and do not surface as an error. The returned
// error covers pipeline faults only (missing definition, store failures).
func (r *Runner) Execute(ctx context.Context, id string) error {
	def, err := r.defs.Get(id)
	if err != nil {
		return errors.Wrapf(err, "runner push for %s", id)
	}

	if err := r.limiter(id).Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limit wait for %s", id)
	}

	def.Status = StatusRunning
	if err := r.defs.Update(def); err != nil {
		return err
	}

	started := time.Now()
	r.logger.Infow("Export started",
		"definition_id", def.ID,
		"scope_kind", def.ScopeKind,
		"scope_id", def.ScopeID,
		"translator", def.TranslatorID,
		"path", def.Path)

	runErr := r.export(ctx, def)

	if runErr != nil {
		def.LastError = runErr.Error()
		r.logger.Warnw("Export failed",
			"definition_id", def.ID,
			"path", def.Path,
			"duration", time.Since(started).Round(time.Millisecond),
			"error", runErr)
	} else {
		def.LastError = ""
		r.logger.Infow("Export OK",
			"definition_id", def.ID,
			"path", def.Path,
			"duration", time.Since(started).Round(time.Millisecond))
	}

	// Success or failure, the entry is finished
	def.Status = StatusDone
	if err := r.defs.Update(def); err != nil {
		return err
	}
	return nil
}

// export resolves the item selector, runs the translator, and best-effort
// commits the output into a surrounding git working tree.
func (r *Runner) export(ctx context.Context, def *Definition) error {
	var items []*library.Item
	var err error
	switch def.ScopeKind {
	case ScopeCollection:
		items, err = r.lib.ItemsInCollection(def.ScopeID)
	case ScopeLibrary:
		items, err = r.lib.ItemsInLibrary(def.ScopeID)
	default:
		return errors.Newf("unknown scope kind %q", def.ScopeKind)
	}
	if err != nil {
		return errors.Wrap(err, "failed to resolve items")
	}

	translator, err := r.registry.Get(def.TranslatorID)
	if err != nil {
		return errors.Wrapf(err, "no translator for format %q", def.TranslatorID)
	}

	// Detection failure silently disables the git feature for this run
	sync := gitsync.Detect(def.Path, r.logger)

	if err := translator.Translate(ctx, def.Options, items, def.Path); err != nil {
		return err
	}

	if sync != nil {
		if err := sync.Commit(def.Path); err != nil {
			// Never fails the export
			r.logger.Warnw("Git auto-commit failed", "path", def.Path, "error", err)
		}
	}
	return nil
}

func (r *Runner) limiter(id string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.limiters[id]
	if !ok {
		limiter = rate.NewLimiter(r.rateLimit, 1)
		r.limiters[id] = limiter
	}
	return limiter
}
