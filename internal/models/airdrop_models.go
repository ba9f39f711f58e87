package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StepStatus lifecycle of the distribution window fetch backing a step
type StepStatus string

const (
	StepStatusLoading   StepStatus = "loading"
	StepStatusReady     StepStatus = "ready"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSubmitted StepStatus = "submitted"
	StepStatusClosed    StepStatus = "closed"
)

// DistributionWindow claim window of an airdrop, Unix seconds, Start < End
type DistributionWindow struct {
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
}

// StartString returns the start timestamp as a base-10 integer string
func (w DistributionWindow) StartString() string {
	return w.Start.String()
}

// EndString returns the end timestamp as a base-10 integer string
func (w DistributionWindow) EndString() string {
	return w.End.String()
}

// CommitmentExport is the tree.json document offered for download
type CommitmentExport struct {
	Addresses []string `json:"addresses"`
	LeafNodes []string `json:"leafNodes"`
	Root      string   `json:"root"`
}

// ProposalDraftPayload accumulated wizard state handed to the next step.
// PriorFields are written first so the fields owned by this step always win.
type ProposalDraftPayload struct {
	PriorFields    map[string]interface{} `json:"-"`
	RewardToken    string                 `json:"rewardToken"`
	Amount         string                 `json:"amount"`
	RewardAmount   string                 `json:"rewardAmount"`
	Decimals       int32                  `json:"decimals"`
	MerkleRoot     string                 `json:"merkleRoot"`
	StartTimestamp string                 `json:"startTimestamp"`
	EndTimestamp   string                 `json:"endTimestamp"`
	Recipients     []string               `json:"recipients"`
	SubmittedAt    time.Time              `json:"submittedAt"`
}

// MarshalJSON flattens PriorFields into the top level object
func (p ProposalDraftPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.PriorFields)+9)
	for k, v := range p.PriorFields {
		out[k] = v
	}
	out["rewardToken"] = p.RewardToken
	out["amount"] = p.Amount
	out["rewardAmount"] = p.RewardAmount
	out["decimals"] = p.Decimals
	out["merkleRoot"] = p.MerkleRoot
	out["startTimestamp"] = p.StartTimestamp
	out["endTimestamp"] = p.EndTimestamp
	out["recipients"] = p.Recipients
	out["submittedAt"] = p.SubmittedAt
	return json.Marshal(out)
}

// StepSnapshot read-only view of a step for API responses and websocket pushes
type StepSnapshot struct {
	ID         string                `json:"id"`
	Status     StepStatus            `json:"status"`
	Error      string                `json:"error,omitempty"`
	Window     *DistributionWindow   `json:"window,omitempty"`
	Recipients []string              `json:"recipients"`
	Ready      bool                  `json:"ready"`
	Payload    *ProposalDraftPayload `json:"payload,omitempty"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}
