package feedsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/storage"
)

// pairKey identifies one (vendor, scope) single-flight slot
type pairKey struct {
	code  vendor.Code
	scope string
}

// OrchestratorService drives the sync state machine for every
// (vendor, scope) pair: fetch, detect, reconcile, commit. At most one run
// per pair is in flight; concurrent triggers are rejected, never queued.
//
// A run that outlives MaxRunDuration is stuck: it keeps blocking its pair
// until an operator calls Reset. Stuck runs deliberately never self-heal,
// because silently restarting over a half-alive run is how partial state
// gets written twice.
type OrchestratorService struct {
	vault      vendor.Vault
	fetchers   feedsync.FetcherRegistry
	detector   feedsync.ChangeDetector
	reconciler catalog.Reconciler
	runs       feedsync.SyncRunRepository
	archive    storage.FeedArchive
	log        *zap.Logger

	runTimeout     time.Duration
	maxRunDuration time.Duration
	synchronous    bool
	now            func() time.Time

	mu     sync.Mutex
	active map[pairKey]*feedsync.SyncRun
}

// OrchestratorOption configures the orchestrator
type OrchestratorOption func(*OrchestratorService)

// WithSynchronous makes Trigger run the sync inline instead of in a
// goroutine. Tests use it to observe terminal states deterministically.
func WithSynchronous() OrchestratorOption {
	return func(s *OrchestratorService) { s.synchronous = true }
}

// WithClock swaps the clock used for stuck-run detection
func WithClock(now func() time.Time) OrchestratorOption {
	return func(s *OrchestratorService) { s.now = now }
}

// NewOrchestratorService creates a sync orchestrator
func NewOrchestratorService(
	vault vendor.Vault,
	fetchers feedsync.FetcherRegistry,
	detector feedsync.ChangeDetector,
	reconciler catalog.Reconciler,
	runs feedsync.SyncRunRepository,
	archive storage.FeedArchive,
	runTimeout time.Duration,
	maxRunDuration time.Duration,
	log *zap.Logger,
	opts ...OrchestratorOption,
) *OrchestratorService {
	s := &OrchestratorService{
		vault:          vault,
		fetchers:       fetchers,
		detector:       detector,
		reconciler:     reconciler,
		runs:           runs,
		archive:        archive,
		log:            log,
		runTimeout:     runTimeout,
		maxRunDuration: maxRunDuration,
		now:            time.Now,
		active:         make(map[pairKey]*feedsync.SyncRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger starts a sync run for a pair. It returns the run immediately;
// the pipeline executes asynchronously unless the orchestrator is
// synchronous. A pair with a run in flight rejects the trigger with
// ErrAlreadyRunning, or ErrStuckRun once the run exceeded its maximum
// duration.
func (s *OrchestratorService) Trigger(ctx context.Context, code vendor.Code, scope vendor.Scope, trigger feedsync.TriggerSource) (*feedsync.SyncRun, error) {
	if !code.IsValid() {
		return nil, vendor.ErrInvalidVendorCode
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	key := pairKey{code: code, scope: scope.String()}

	s.mu.Lock()
	if current, ok := s.active[key]; ok {
		age := current.Age(s.now())
		s.mu.Unlock()
		if age > s.maxRunDuration {
			return nil, feedsync.ErrStuckRun
		}
		return nil, feedsync.ErrAlreadyRunning
	}
	run := feedsync.NewSyncRun(code, scope, trigger)
	s.active[key] = run
	s.mu.Unlock()

	if err := s.runs.Save(ctx, run); err != nil {
		s.release(key)
		return nil, err
	}

	s.log.Info("sync triggered",
		zap.String("vendor", code.String()),
		zap.String("scope", scope.String()),
		zap.String("trigger", string(trigger)),
		zap.String("run_id", run.ID.String()))

	if s.synchronous {
		s.execute(key, run)
	} else {
		go s.execute(key, run)
	}
	return s.copyRun(run), nil
}

// Reset clears a stuck run so its pair can sync again. Only a run older
// than MaxRunDuration can be reset; resetting a healthy run would race the
// pipeline still executing it.
func (s *OrchestratorService) Reset(ctx context.Context, code vendor.Code, scope vendor.Scope) (*feedsync.SyncRun, error) {
	key := pairKey{code: code, scope: scope.String()}

	s.mu.Lock()
	live, ok := s.active[key]
	if !ok {
		s.mu.Unlock()
		return nil, feedsync.ErrNoActiveRun
	}
	if live.Age(s.now()) <= s.maxRunDuration {
		s.mu.Unlock()
		return nil, feedsync.ErrRunNotResetable
	}
	delete(s.active, key)
	run := *live
	s.mu.Unlock()

	// fail a detached copy; the wedged pipeline may still hold the live run
	run.Fail("reset by operator after exceeding maximum run duration")
	if err := s.runs.Save(ctx, &run); err != nil {
		return nil, err
	}

	s.log.Warn("stuck run reset",
		zap.String("vendor", code.String()),
		zap.String("scope", scope.String()),
		zap.String("run_id", run.ID.String()))
	return &run, nil
}

// Status returns the in-flight run for a pair, or the latest completed one
func (s *OrchestratorService) Status(ctx context.Context, code vendor.Code, scope vendor.Scope) (*feedsync.SyncRun, error) {
	s.mu.Lock()
	if run, ok := s.active[pairKey{code: code, scope: scope.String()}]; ok {
		snapshot := *run
		s.mu.Unlock()
		return &snapshot, nil
	}
	s.mu.Unlock()
	return s.runs.FindLatest(ctx, code, scope)
}

// copyRun snapshots a run under the lock. The pipeline goroutine mutates
// the live run, so callers only ever see detached copies.
func (s *OrchestratorService) copyRun(run *feedsync.SyncRun) *feedsync.SyncRun {
	s.mu.Lock()
	snapshot := *run
	s.mu.Unlock()
	return &snapshot
}

// IsStuck reports whether an in-flight run exceeded the maximum duration
// and now blocks its pair until an operator resets it.
func (s *OrchestratorService) IsStuck(run *feedsync.SyncRun) bool {
	if run == nil || run.State.IsTerminal() {
		return false
	}
	return run.Age(s.now()) > s.maxRunDuration
}

// History returns recent runs matching the filter
func (s *OrchestratorService) History(ctx context.Context, filter feedsync.RunFilter) ([]feedsync.SyncRun, error) {
	return s.runs.FindRecent(ctx, filter)
}

func (s *OrchestratorService) release(key pairKey) {
	s.mu.Lock()
	delete(s.active, key)
	s.mu.Unlock()
}

// execute runs the fetch/detect/reconcile pipeline for one run
func (s *OrchestratorService) execute(key pairKey, run *feedsync.SyncRun) {
	defer s.release(key)

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	fail := func(cause string, err error) {
		s.mu.Lock()
		run.Fail(cause)
		s.mu.Unlock()
		s.saveRun(run)
		s.log.Error("sync run failed",
			zap.String("vendor", run.VendorCode.String()),
			zap.String("scope", run.Scope.String()),
			zap.String("run_id", run.ID.String()),
			zap.String("state", run.State.String()),
			zap.Error(err))
	}

	s.advance(run, feedsync.RunStateFetching)

	bag, err := s.vault.Get(ctx, run.VendorCode, run.Scope)
	if err != nil {
		fail(causeOf(err), err)
		return
	}
	fetcher, err := s.fetchers.GetFetcher(ctx, bag)
	if err != nil {
		fail(causeOf(err), err)
		return
	}
	result, err := fetcher.Fetch(ctx, bag)
	if err != nil {
		fail(causeOf(err), err)
		return
	}

	if err := s.archive.Archive(ctx, run.VendorCode, run.Scope, result.SourceID, result.Body); err != nil {
		// archiving is best-effort, the sync continues
		s.log.Warn("feed archive failed", zap.Error(err))
	}

	s.advance(run, feedsync.RunStateDiffing)

	detection, err := s.detector.Detect(ctx, run.VendorCode, run.Scope, result.Body)
	if err != nil {
		fail(causeOf(err), err)
		return
	}
	if !detection.Changed {
		s.mu.Lock()
		err := run.Skip()
		s.mu.Unlock()
		if err != nil {
			fail("internal state error", err)
			return
		}
		s.saveRun(run)
		s.log.Info("sync skipped, feed unchanged",
			zap.String("vendor", run.VendorCode.String()),
			zap.String("scope", run.Scope.String()),
			zap.String("fingerprint", detection.Stats.Fingerprint))
		return
	}

	s.advance(run, feedsync.RunStateReconciling)

	// the run stays RECONCILING while the change set is built; the
	// reconciler flips it to COMMITTING right before the transaction, so a
	// pre-commit failure is recorded against the phase it happened in
	stats, err := s.reconciler.Reconcile(ctx, run.VendorCode, run.Scope, detection.Delta, detection.NewSnapshot, func() {
		s.advance(run, feedsync.RunStateCommitting)
	})
	if err != nil {
		fail(causeOf(err), err)
		return
	}

	s.mu.Lock()
	err = run.Complete(*stats)
	s.mu.Unlock()
	if err != nil {
		fail("internal state error", err)
		return
	}
	s.saveRun(run)
	s.log.Info("sync completed",
		zap.String("vendor", run.VendorCode.String()),
		zap.String("scope", run.Scope.String()),
		zap.String("run_id", run.ID.String()),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("removed", stats.Removed))
}

func (s *OrchestratorService) advance(run *feedsync.SyncRun, next feedsync.RunState) {
	s.mu.Lock()
	err := run.Advance(next)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("illegal run transition", zap.Error(err))
		return
	}
	s.saveRun(run)
}

// saveRun persists run progress outside the caller's context so a
// cancelled pipeline still records its terminal state.
func (s *OrchestratorService) saveRun(run *feedsync.SyncRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runs.Save(ctx, run); err != nil {
		s.log.Error("persist sync run failed",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
}

// causeOf maps pipeline errors onto the operator-facing cause strings
// stored on failed runs.
func causeOf(err error) string {
	switch {
	case errors.Is(err, vendor.ErrNotConfigured):
		return "no credentials configured for this vendor and scope"
	case errors.Is(err, feedsync.ErrAuth):
		return "vendor endpoint rejected the configured credentials"
	case errors.Is(err, feedsync.ErrConnection):
		return "vendor endpoint could not be reached"
	case errors.Is(err, feedsync.ErrFeedNotFound):
		return "no feed found at the configured location"
	case errors.Is(err, feedsync.ErrEmptyFeed):
		return "fetched feed is empty; rejected to avoid mass deletion"
	case errors.Is(err, feedsync.ErrMalformedFeed):
		return "fetched feed is not a valid tabular feed"
	case errors.Is(err, vendor.ErrSchemaNotFound):
		return "no schema declared for this vendor"
	case errors.Is(err, context.DeadlineExceeded):
		return "sync run timed out"
	default:
		return "sync failed: " + err.Error()
	}
}
