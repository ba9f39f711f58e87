package events

import (
	"errors"
	"testing"

	"airdrop-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subject string
	msg     interface{}
	err     error
}

func (p *recordingPublisher) PublishJSON(subject string, v interface{}) error {
	p.subject = subject
	p.msg = v
	return p.err
}

func TestDraftSubmitted_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	ev := NewDraftEvents(pub, "proposal.draft.airdrop")

	payload := models.ProposalDraftPayload{MerkleRoot: "0xabc", RewardAmount: "1"}
	require.NoError(t, ev.DraftSubmitted("step-1", payload))

	assert.Equal(t, "proposal.draft.airdrop", pub.subject)
	msg, ok := pub.msg.(DraftSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeDraftSubmitted, msg.EventType)
	assert.Equal(t, "step-1", msg.StepID)
	assert.Equal(t, "0xabc", msg.Payload.MerkleRoot)
}

func TestDraftSubmitted_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	ev := NewDraftEvents(&recordingPublisher{err: boom}, "s")
	err := ev.DraftSubmitted("step-1", models.ProposalDraftPayload{})
	assert.ErrorIs(t, err, boom)
}

func TestDraftSubmitted_NilPublisher(t *testing.T) {
	assert.NoError(t, NewDraftEvents(nil, "s").DraftSubmitted("x", models.ProposalDraftPayload{}))

	var ev *DraftEvents
	assert.NoError(t, ev.DraftSubmitted("x", models.ProposalDraftPayload{}))
}
