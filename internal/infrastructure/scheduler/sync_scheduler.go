package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// Trigger is the slice of the orchestrator the scheduler needs
type Trigger interface {
	Trigger(ctx context.Context, code vendor.Code, scope vendor.Scope, trigger feedsync.TriggerSource) (*feedsync.SyncRun, error)
}

// Schedule is one recurring sync registration
type Schedule struct {
	VendorCode vendor.Code  `json:"vendor_code"`
	Scope      vendor.Scope `json:"-"`
	ScopeName  string       `json:"scope"`
	Spec       string       `json:"spec"`
}

type scheduleKey struct {
	code  vendor.Code
	scope string
}

// SyncScheduler fires scheduled sync triggers from cron expressions.
// A tick that lands while the pair is already running is dropped and
// logged; scheduled triggers are never queued.
type SyncScheduler struct {
	cron    *cron.Cron
	trigger Trigger
	log     *zap.Logger

	mu      sync.Mutex
	entries map[scheduleKey]cron.EntryID
	specs   map[scheduleKey]string
}

// NewSyncScheduler creates a sync scheduler
func NewSyncScheduler(trigger Trigger, log *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		trigger: trigger,
		log:     log,
		entries: make(map[scheduleKey]cron.EntryID),
		specs:   make(map[scheduleKey]string),
	}
}

// Start begins firing schedules
func (s *SyncScheduler) Start() {
	s.cron.Start()
	s.log.Info("sync scheduler started")
}

// Stop stops the scheduler and waits for in-flight jobs
func (s *SyncScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("sync scheduler stopped")
}

// SetSchedule registers or replaces the recurring sync of a pair.
// The spec uses standard five-field cron syntax.
func (s *SyncScheduler) SetSchedule(code vendor.Code, scope vendor.Scope, spec string) error {
	if !code.IsValid() {
		return vendor.ErrInvalidVendorCode
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	key := scheduleKey{code: code, scope: scope.String()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[key]; ok {
		s.cron.Remove(old)
	}

	id, err := s.cron.AddFunc(spec, func() { s.fire(code, scope) })
	if err != nil {
		return err
	}
	s.entries[key] = id
	s.specs[key] = spec

	s.log.Info("sync schedule set",
		zap.String("vendor", code.String()),
		zap.String("scope", scope.String()),
		zap.String("spec", spec))
	return nil
}

// RemoveSchedule deletes the recurring sync of a pair
func (s *SyncScheduler) RemoveSchedule(code vendor.Code, scope vendor.Scope) {
	key := scheduleKey{code: code, scope: scope.String()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[key]; ok {
		s.cron.Remove(id)
		delete(s.entries, key)
		delete(s.specs, key)
		s.log.Info("sync schedule removed",
			zap.String("vendor", code.String()),
			zap.String("scope", scope.String()))
	}
}

// Schedules returns the registered schedules
func (s *SyncScheduler) Schedules() []Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Schedule, 0, len(s.specs))
	for key, spec := range s.specs {
		scope, err := vendor.ParseScope(key.scope)
		if err != nil {
			continue
		}
		out = append(out, Schedule{
			VendorCode: key.code,
			Scope:      scope,
			ScopeName:  key.scope,
			Spec:       spec,
		})
	}
	return out
}

func (s *SyncScheduler) fire(code vendor.Code, scope vendor.Scope) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.trigger.Trigger(ctx, code, scope, feedsync.TriggerScheduled)
	switch {
	case err == nil:
	case errors.Is(err, feedsync.ErrAlreadyRunning):
		s.log.Info("scheduled sync dropped, pair already running",
			zap.String("vendor", code.String()),
			zap.String("scope", scope.String()))
	case errors.Is(err, feedsync.ErrStuckRun):
		s.log.Error("scheduled sync blocked by stuck run",
			zap.String("vendor", code.String()),
			zap.String("scope", scope.String()))
	default:
		s.log.Error("scheduled sync trigger failed",
			zap.String("vendor", code.String()),
			zap.String("scope", scope.String()),
			zap.Error(err))
	}
}
