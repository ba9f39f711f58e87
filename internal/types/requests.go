package types

// CreateStepRequest opens an airdrop details step. PriorFields carries the values
// collected by earlier wizard steps and is merged into the final payload untouched.
type CreateStepRequest struct {
	PriorFields map[string]interface{} `json:"prior_fields"`
	Recipients  []string               `json:"recipients"`
}

// AddRecipientRequest adds one address to the step's recipient list
type AddRecipientRequest struct {
	Address string `json:"address" binding:"required"`
}

// SubmitStepRequest carries the form fields entered on the step
type SubmitStepRequest struct {
	RewardToken string `json:"rewardToken"`
	Amount      string `json:"amount" binding:"required"`
}

// MerkleRequest builds a stateless commitment
type MerkleRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
}

// MerkleProofRequest asks for the inclusion proof of Address within Addresses
type MerkleProofRequest struct {
	Addresses []string `json:"addresses" binding:"required"`
	Address   string   `json:"address" binding:"required"`
}

// AmountRequest converts a user decimal into the on-chain integer.
// Decimals is optional; when nil the token (or configured default) precision is used.
type AmountRequest struct {
	Amount   string `json:"amount" binding:"required"`
	Decimals *int32 `json:"decimals,omitempty"`
	Token    string `json:"token,omitempty"`
}
