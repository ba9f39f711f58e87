package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/models"
	"airdrop-backend/internal/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DraftPublisher announces submitted drafts. *events.DraftEvents implements it.
type DraftPublisher interface {
	DraftSubmitted(stepID string, payload models.ProposalDraftPayload) error
}

// StepRegistry in-memory wizard host keeping airdrop step sessions by ID.
// Sessions do not survive a restart.
type StepRegistry struct {
	deps      StepDeps
	publisher DraftPublisher
	ttl       time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	steps map[string]*AirdropDetailsStep

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *logrus.Entry
}

// NewStepRegistry creates the registry. publisher may be nil.
func NewStepRegistry(deps StepDeps, publisher DraftPublisher, ttl time.Duration) *StepRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	return &StepRegistry{
		deps:      deps,
		publisher: publisher,
		ttl:       ttl,
		ctx:       ctx,
		cancel:    cancel,
		steps:     make(map[string]*AirdropDetailsStep),
		stopCh:    make(chan struct{}),
		logger:    logrus.WithField("component", "step_registry"),
	}
}

// Create opens a step with the prior wizard fields and initial recipients, and
// starts its window fetch. The fetch is bound to the registry lifetime, not the caller's request.
func (r *StepRegistry) Create(priorFields map[string]interface{}, recipients []string) (*AirdropDetailsStep, error) {
	id := uuid.New().String()
	step := NewAirdropDetailsStep(id, r, r.deps, priorFields)
	for _, addr := range recipients {
		if _, err := step.AddRecipient(addr); err != nil {
			return nil, err
		}
	}
	if err := step.Start(r.ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.steps[id] = step
	count := len(r.steps)
	r.mu.Unlock()

	metrics.ActiveSteps.Set(float64(count))
	r.logger.WithFields(logrus.Fields{
		"step_id":    id,
		"recipients": len(recipients),
	}).Info("🆕 Airdrop step created")
	return step, nil
}

// Get returns the step with id
func (r *StepRegistry) Get(id string) (*AirdropDetailsStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	step, ok := r.steps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrStepNotFound, id)
	}
	return step, nil
}

// Remove closes and forgets the step with id
func (r *StepRegistry) Remove(id string) bool {
	r.mu.Lock()
	step, ok := r.steps[id]
	delete(r.steps, id)
	count := len(r.steps)
	r.mu.Unlock()

	if ok {
		step.Close()
		metrics.ActiveSteps.Set(float64(count))
	}
	return ok
}

// Len number of live sessions
func (r *StepRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

// GoNext publishes the submitted draft. The session stays available so the
// payload and export can still be fetched until it expires.
func (r *StepRegistry) GoNext(stepID string, payload models.ProposalDraftPayload) error {
	if r.publisher == nil {
		return nil
	}
	return r.publisher.DraftSubmitted(stepID, payload)
}

// GoBack discards the session
func (r *StepRegistry) GoBack(stepID string) {
	r.Remove(stepID)
	r.logger.WithField("step_id", stepID).Info("↩️ Airdrop step discarded")
}

// Start launches the idle session sweeper
func (r *StepRegistry) Start() {
	if r.ttl <= 0 {
		return
	}
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	r.wg.Add(1)
	go r.sweepLoop(interval)
	r.logger.WithField("ttl", r.ttl).Info("🚀 Step session sweeper started")
}

// Stop stops the sweeper and closes every session
func (r *StepRegistry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
		r.cancel()

		r.mu.Lock()
		steps := r.steps
		r.steps = make(map[string]*AirdropDetailsStep)
		r.mu.Unlock()

		for _, step := range steps {
			step.Close()
		}
		metrics.ActiveSteps.Set(0)
		r.logger.Info("✅ Step registry stopped")
	})
}

func (r *StepRegistry) sweepLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Sweep drops sessions idle since before now-ttl and returns how many were removed
func (r *StepRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.RLock()
	var expired []string
	for id, step := range r.steps {
		if step.UpdatedAt().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if r.Remove(id) {
			removed++
		}
	}
	if removed > 0 {
		r.logger.WithField("removed", removed).Info("🧹 Expired idle step sessions")
	}
	return removed
}
