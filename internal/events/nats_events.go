package events

import (
	"fmt"
	"time"

	"airdrop-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// EventTypeDraftSubmitted is set on every draft handed to the next wizard step
const EventTypeDraftSubmitted = "airdrop.draft.submitted"

// Publisher sends a JSON message on a subject. *clients.NATSClient implements it.
type Publisher interface {
	PublishJSON(subject string, v interface{}) error
}

// DraftSubmittedEvent message published when a step calls goNext
type DraftSubmittedEvent struct {
	EventType string                      `json:"event_type"`
	StepID    string                      `json:"step_id"`
	Payload   models.ProposalDraftPayload `json:"payload"`
	Timestamp time.Time                   `json:"timestamp"`
}

// DraftEvents announces submitted drafts. A nil publisher turns every call into a no-op.
type DraftEvents struct {
	publisher Publisher
	subject   string
}

// NewDraftEvents creates the draft announcer
func NewDraftEvents(publisher Publisher, subject string) *DraftEvents {
	return &DraftEvents{publisher: publisher, subject: subject}
}

// DraftSubmitted publishes payload for stepID
func (e *DraftEvents) DraftSubmitted(stepID string, payload models.ProposalDraftPayload) error {
	if e == nil || e.publisher == nil {
		return nil
	}

	event := DraftSubmittedEvent{
		EventType: EventTypeDraftSubmitted,
		StepID:    stepID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if err := e.publisher.PublishJSON(e.subject, event); err != nil {
		return fmt.Errorf("failed to announce draft %s: %w", stepID, err)
	}

	logrus.WithFields(logrus.Fields{
		"step_id":     stepID,
		"subject":     e.subject,
		"merkle_root": payload.MerkleRoot,
	}).Info("📨 Draft submitted event published")
	return nil
}
