package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/models"
	"airdrop-backend/internal/types"
	"airdrop-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// FormHost is the wizard driving the step
type FormHost interface {
	GoNext(stepID string, payload models.ProposalDraftPayload) error
	GoBack(stepID string)
}

// StepDeps services shared by every step
type StepDeps struct {
	Window             *WindowService
	Commitments        *CommitmentService
	Tokens             *TokenService
	DefaultRewardToken string
}

// SubmitForm fields entered by the user on submit
type SubmitForm struct {
	RewardToken string
	Amount      string
}

const listenerBuffer = 8

// AirdropDetailsStep collects token, amount and recipients, waits for the
// distribution window, and hands the assembled draft to the host.
type AirdropDetailsStep struct {
	id          string
	host        FormHost
	deps        StepDeps
	priorFields map[string]interface{}
	logger      *logrus.Entry

	// submitMu serializes Submit and Close; always taken before mu
	submitMu sync.Mutex

	mu         sync.Mutex
	status     models.StepStatus
	window     *models.DistributionWindow
	windowErr  error
	submitErr  error
	recipients []string
	index      map[string]struct{}
	payload    *models.ProposalDraftPayload
	commitment *Commitment
	cancel     context.CancelFunc
	done       chan struct{}
	listeners  map[int]chan models.StepSnapshot
	nextID     int
	updatedAt  time.Time
}

// NewAirdropDetailsStep creates a step in the loading state. Call Start to fetch the window.
func NewAirdropDetailsStep(id string, host FormHost, deps StepDeps, priorFields map[string]interface{}) *AirdropDetailsStep {
	prior := make(map[string]interface{}, len(priorFields))
	for k, v := range priorFields {
		prior[k] = v
	}
	return &AirdropDetailsStep{
		id:          id,
		host:        host,
		deps:        deps,
		priorFields: prior,
		logger:      logrus.WithFields(logrus.Fields{"component": "airdrop_step", "step_id": id}),
		status:      models.StepStatusLoading,
		index:       make(map[string]struct{}),
		listeners:   make(map[int]chan models.StepSnapshot),
		updatedAt:   time.Now().UTC(),
	}
}

// ID session identifier
func (s *AirdropDetailsStep) ID() string {
	return s.id
}

// Start launches the window fetch. It is a no-op while a fetch is in flight or
// after the window is ready; a failed fetch is restarted.
func (s *AirdropDetailsStep) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case models.StepStatusSubmitted, models.StepStatusClosed:
		return types.ErrStepClosed
	case models.StepStatusReady:
		return nil
	case models.StepStatusLoading:
		if s.done != nil {
			return nil
		}
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.status = models.StepStatusLoading
	s.windowErr = nil
	s.touchLocked()

	go s.fetchWindow(fetchCtx, cancel, done)
	return nil
}

func (s *AirdropDetailsStep) fetchWindow(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	window, err := s.deps.Window.DeriveWindow(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.StepStatusLoading || s.done != done {
		return
	}
	if err != nil {
		s.status = models.StepStatusFailed
		s.windowErr = err
		s.logger.WithError(err).Warn("⚠️ Distribution window fetch failed")
	} else {
		s.status = models.StepStatusReady
		s.window = &window
		s.logger.WithFields(logrus.Fields{
			"start": window.StartString(),
			"end":   window.EndString(),
		}).Info("⏱️ Distribution window ready")
	}
	s.touchLocked()
}

// Wait blocks until the current window fetch finishes or ctx ends
func (s *AirdropDetailsStep) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return types.ErrWindowNotReady
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the lifecycle status and the window fetch error, if any
func (s *AirdropDetailsStep) State() (models.StepStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.windowErr
}

// AddRecipient validates and appends address, returning its checksummed form.
// Malformed and duplicate addresses leave the list unchanged.
func (s *AirdropDetailsStep) AddRecipient(address string) (string, error) {
	norm, err := utils.NormalizeEvmAddress(address)
	if err != nil {
		return "", err
	}
	sum, _ := utils.ChecksumAddress(norm)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closedLocked() {
		return "", types.ErrStepClosed
	}
	if _, dup := s.index[norm]; dup {
		return "", fmt.Errorf("%w: %s", types.ErrDuplicateRecipient, sum)
	}
	s.index[norm] = struct{}{}
	s.recipients = append(s.recipients, sum)
	s.touchLocked()
	return sum, nil
}

// RemoveRecipient drops address from the list
func (s *AirdropDetailsStep) RemoveRecipient(address string) error {
	norm, err := utils.NormalizeEvmAddress(address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closedLocked() {
		return types.ErrStepClosed
	}
	if _, ok := s.index[norm]; !ok {
		return fmt.Errorf("%w: %s", types.ErrRecipientNotFound, address)
	}
	delete(s.index, norm)
	for i, r := range s.recipients {
		if strings.EqualFold(r, norm) {
			s.recipients = append(s.recipients[:i], s.recipients[i+1:]...)
			break
		}
	}
	s.touchLocked()
	return nil
}

// Recipients current list in insertion order
func (s *AirdropDetailsStep) Recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recipients...)
}

// Validate runs every submit-time check without calling the host
func (s *AirdropDetailsStep) Validate(ctx context.Context, form SubmitForm) error {
	_, err := s.prepare(ctx, form)
	return err
}

// IsValid is the host-visible validity flag
func (s *AirdropDetailsStep) IsValid(ctx context.Context, form SubmitForm) bool {
	return s.Validate(ctx, form) == nil
}

// Submit builds the draft payload and hands it to the host. Nothing reaches
// the host unless the window is ready and every field validates.
func (s *AirdropDetailsStep) Submit(ctx context.Context, form SubmitForm) (models.ProposalDraftPayload, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	draft, err := s.prepare(ctx, form)
	if err == nil {
		err = s.host.GoNext(s.id, draft.payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if !errors.Is(err, types.ErrStepClosed) {
			s.submitErr = err
			s.touchLocked()
		}
		metrics.StepSubmissions.WithLabelValues(submitOutcome(err)).Inc()
		s.logger.WithError(err).Warn("❌ Airdrop step submission blocked")
		return models.ProposalDraftPayload{}, err
	}

	s.status = models.StepStatusSubmitted
	s.submitErr = nil
	s.payload = &draft.payload
	s.commitment = draft.commitment
	s.touchLocked()
	s.closeListenersLocked()

	metrics.StepSubmissions.WithLabelValues("ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"reward_token": draft.payload.RewardToken,
		"reward":       draft.payload.RewardAmount,
		"merkle_root":  draft.payload.MerkleRoot,
		"recipients":   len(draft.payload.Recipients),
	}).Info("✅ Airdrop step submitted")
	return draft.payload, nil
}

type preparedDraft struct {
	payload    models.ProposalDraftPayload
	commitment *Commitment
}

func (s *AirdropDetailsStep) prepare(ctx context.Context, form SubmitForm) (*preparedDraft, error) {
	s.mu.Lock()
	if s.closedLocked() {
		s.mu.Unlock()
		return nil, types.ErrStepClosed
	}
	if s.status != models.StepStatusReady || s.window == nil {
		err := notReadyError(s.status, s.windowErr)
		s.mu.Unlock()
		return nil, err
	}
	window := *s.window
	recipients := append([]string(nil), s.recipients...)
	s.mu.Unlock()

	token := strings.TrimSpace(form.RewardToken)
	if token == "" {
		token = s.deps.DefaultRewardToken
	}
	tokenSum, err := utils.ChecksumAddress(token)
	if err != nil {
		return nil, fmt.Errorf("reward token: %w", err)
	}

	commitment, err := s.deps.Commitments.Build(recipients)
	if err != nil {
		return nil, err
	}

	scaled, decimals, err := s.deps.Tokens.ScaleAmount(ctx, tokenSum, form.Amount)
	if err != nil {
		return nil, err
	}
	if scaled.Sign() == 0 {
		return nil, fmt.Errorf("%w: reward amount must be greater than zero", types.ErrInvalidAmountFormat)
	}

	return &preparedDraft{
		payload: models.ProposalDraftPayload{
			PriorFields:    s.priorFields,
			RewardToken:    tokenSum,
			Amount:         form.Amount,
			RewardAmount:   scaled.String(),
			Decimals:       decimals,
			MerkleRoot:     commitment.Root(),
			StartTimestamp: window.StartString(),
			EndTimestamp:   window.EndString(),
			Recipients:     commitment.Addresses,
			SubmittedAt:    time.Now().UTC(),
		},
		commitment: commitment,
	}, nil
}

func notReadyError(status models.StepStatus, windowErr error) error {
	if status == models.StepStatusFailed && windowErr != nil {
		return fmt.Errorf("%w: %w", types.ErrWindowNotReady, windowErr)
	}
	return types.ErrWindowNotReady
}

func submitOutcome(err error) string {
	switch {
	case errors.Is(err, types.ErrWindowNotReady):
		return "not_ready"
	case types.IsValidationError(err):
		return "invalid"
	default:
		return "failed"
	}
}

// Back cancels a pending window fetch, closes the step and returns to the previous wizard step
func (s *AirdropDetailsStep) Back() {
	s.Close()
	s.host.GoBack(s.id)
}

// Close cancels the window fetch and releases listeners without notifying the host.
// It waits for an in-flight Submit so the host never sees GoNext after the step closed.
func (s *AirdropDetailsStep) Close() {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.status == models.StepStatusClosed {
		return
	}
	s.status = models.StepStatusClosed
	s.touchLocked()
	s.closeListenersLocked()
}

// Payload returns the submitted draft, if any
func (s *AirdropDetailsStep) Payload() (models.ProposalDraftPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payload == nil {
		return models.ProposalDraftPayload{}, false
	}
	return *s.payload, true
}

// Commitment returns the submitted commitment, or builds one over the current recipients
func (s *AirdropDetailsStep) Commitment() (*Commitment, error) {
	s.mu.Lock()
	if s.commitment != nil {
		c := s.commitment
		s.mu.Unlock()
		return c, nil
	}
	recipients := append([]string(nil), s.recipients...)
	s.mu.Unlock()
	return s.deps.Commitments.Build(recipients)
}

// Snapshot read-only view of the step
func (s *AirdropDetailsStep) Snapshot() models.StepSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdatedAt time of the last state change
func (s *AirdropDetailsStep) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Subscribe returns a channel receiving a snapshot on every state change and
// a func to unsubscribe. The channel is closed when the step is submitted or closed.
// Slow listeners miss intermediate snapshots.
func (s *AirdropDetailsStep) Subscribe() (<-chan models.StepSnapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.StepSnapshot, listenerBuffer)
	ch <- s.snapshotLocked()
	if s.closedLocked() {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if l, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(l)
		}
	}
}

func (s *AirdropDetailsStep) snapshotLocked() models.StepSnapshot {
	snap := models.StepSnapshot{
		ID:         s.id,
		Status:     s.status,
		Recipients: append([]string{}, s.recipients...),
		UpdatedAt:  s.updatedAt,
	}
	if s.window != nil {
		w := *s.window
		snap.Window = &w
	}
	if s.payload != nil {
		p := *s.payload
		snap.Payload = &p
	}
	switch {
	case s.status == models.StepStatusFailed && s.windowErr != nil:
		snap.Error = s.windowErr.Error()
	case s.submitErr != nil:
		snap.Error = s.submitErr.Error()
	}
	if s.status == models.StepStatusReady {
		_, err := s.deps.Commitments.ValidateRecipients(s.recipients)
		snap.Ready = err == nil
	}
	return snap
}

func (s *AirdropDetailsStep) closedLocked() bool {
	return s.status == models.StepStatusSubmitted || s.status == models.StepStatusClosed
}

func (s *AirdropDetailsStep) touchLocked() {
	s.updatedAt = time.Now().UTC()
	if len(s.listeners) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, l := range s.listeners {
		select {
		case l <- snap:
		default:
		}
	}
}

func (s *AirdropDetailsStep) closeListenersLocked() {
	for id, l := range s.listeners {
		close(l)
		delete(s.listeners, id)
	}
}
