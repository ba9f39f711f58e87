package handlers

import (
	"bytes"
	"net/http"

	"airdrop-backend/internal/models"
	"airdrop-backend/internal/services"
	"airdrop-backend/internal/types"
	"airdrop-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
)

// AirdropHandler HTTP surface of the airdrop details step
type AirdropHandler struct {
	registry    *services.StepRegistry
	window      *services.WindowService
	commitments *services.CommitmentService
	tokens      *services.TokenService
}

// NewAirdropHandler creates the handler
func NewAirdropHandler(
	registry *services.StepRegistry,
	window *services.WindowService,
	commitments *services.CommitmentService,
	tokens *services.TokenService,
) *AirdropHandler {
	return &AirdropHandler{
		registry:    registry,
		window:      window,
		commitments: commitments,
		tokens:      tokens,
	}
}

// CreateStepHandler opens a step session and starts its window fetch
// POST /api/airdrop/steps
func (h *AirdropHandler) CreateStepHandler(c *gin.Context) {
	var req types.CreateStepRequest
	if c.Request.ContentLength != 0 && !validateRequestBinding(c, &req, "CreateStep") {
		return
	}

	step, err := h.registry.Create(req.PriorFields, req.Recipients)
	if err != nil {
		respondWithDomainError(c, "CreateStep", err)
		return
	}
	c.JSON(http.StatusCreated, step.Snapshot())
}

// GetStepHandler returns window state, recipients and validity
// GET /api/airdrop/steps/:id
func (h *AirdropHandler) GetStepHandler(c *gin.Context) {
	step, ok := h.lookupStep(c, "GetStep")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, step.Snapshot())
}

// AddRecipientHandler POST /api/airdrop/steps/:id/recipients
func (h *AirdropHandler) AddRecipientHandler(c *gin.Context) {
	step, ok := h.lookupStep(c, "AddRecipient")
	if !ok {
		return
	}
	var req types.AddRecipientRequest
	if !validateRequestBinding(c, &req, "AddRecipient") {
		return
	}

	address, err := step.AddRecipient(req.Address)
	if err != nil {
		respondWithDomainError(c, "AddRecipient", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"step":    step.Snapshot(),
	})
}

// RemoveRecipientHandler DELETE /api/airdrop/steps/:id/recipients/:address
func (h *AirdropHandler) RemoveRecipientHandler(c *gin.Context) {
	step, ok := h.lookupStep(c, "RemoveRecipient")
	if !ok {
		return
	}
	if err := step.RemoveRecipient(c.Param("address")); err != nil {
		respondWithDomainError(c, "RemoveRecipient", err)
		return
	}
	c.JSON(http.StatusOK, step.Snapshot())
}

// SubmitStepHandler builds the draft payload and hands it to the next wizard step
// POST /api/airdrop/steps/:id/submit
func (h *AirdropHandler) SubmitStepHandler(c *gin.Context) {
	step, ok := h.lookupStep(c, "SubmitStep")
	if !ok {
		return
	}
	var req types.SubmitStepRequest
	if !validateRequestBinding(c, &req, "SubmitStep") {
		return
	}

	payload, err := step.Submit(c.Request.Context(), services.SubmitForm{
		RewardToken: req.RewardToken,
		Amount:      req.Amount,
	})
	if err != nil {
		respondWithDomainError(c, "SubmitStep", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"step_id": step.ID(),
		"payload": payload,
	})
}

// BackHandler discards the session and returns to the previous wizard step
// POST /api/airdrop/steps/:id/back
func (h *AirdropHandler) BackHandler(c *gin.Context) {
	step, ok := h.lookupStep(c, "Back")
	if !ok {
		return
	}
	step.Back()
	c.JSON(http.StatusOK, gin.H{
		"step_id": step.ID(),
		"status":  models.StepStatusClosed,
	})
}

// ExportHandler downloads tree.json for the step's recipients
// GET /api/airdrop/steps/:id/export
func (h *AirdropHandler) ExportHandler(c *gin.Context) {
	step, ok := h.lookupStep(c, "Export")
	if !ok {
		return
	}
	commitment, err := step.Commitment()
	if err != nil {
		respondWithDomainError(c, "Export", err)
		return
	}

	var buf bytes.Buffer
	if err := commitment.WriteExport(&buf); err != nil {
		respondWithDomainError(c, "Export", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="tree.json"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// BuildMerkleHandler stateless commitment over a recipient list
// POST /api/airdrop/merkle
func (h *AirdropHandler) BuildMerkleHandler(c *gin.Context) {
	var req types.MerkleRequest
	if !validateRequestBinding(c, &req, "BuildMerkle") {
		return
	}
	commitment, err := h.commitments.Build(req.Addresses)
	if err != nil {
		respondWithDomainError(c, "BuildMerkle", err)
		return
	}
	c.JSON(http.StatusOK, commitment.Export())
}

// MerkleProofHandler inclusion proof of one address within a recipient list
// POST /api/airdrop/merkle/proof
func (h *AirdropHandler) MerkleProofHandler(c *gin.Context) {
	var req types.MerkleProofRequest
	if !validateRequestBinding(c, &req, "MerkleProof") {
		return
	}
	commitment, err := h.commitments.Build(req.Addresses)
	if err != nil {
		respondWithDomainError(c, "MerkleProof", err)
		return
	}
	leaf, err := services.LeafForAddress(req.Address)
	if err != nil {
		respondWithDomainError(c, "MerkleProof", err)
		return
	}
	proof, err := commitment.Proof(req.Address)
	if err != nil {
		respondWithDomainError(c, "MerkleProof", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"root":    commitment.Root(),
		"address": req.Address,
		"leaf":    hexutil.Encode(leaf),
		"proof":   proof,
	})
}

// AmountHandler converts a decimal amount into the on-chain integer
// POST /api/airdrop/amount
func (h *AirdropHandler) AmountHandler(c *gin.Context) {
	var req types.AmountRequest
	if !validateRequestBinding(c, &req, "Amount") {
		return
	}

	decimals := h.tokens.DefaultDecimals()
	switch {
	case req.Decimals != nil:
		decimals = *req.Decimals
	case req.Token != "":
		d, err := h.tokens.Decimals(c.Request.Context(), req.Token)
		if err != nil {
			respondWithDomainError(c, "Amount", err)
			return
		}
		decimals = d
	}

	scaled, err := utils.ToScaledInteger(req.Amount, decimals)
	if err != nil {
		respondWithDomainError(c, "Amount", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount":       req.Amount,
		"decimals":     decimals,
		"rewardAmount": scaled.String(),
	})
}

// WindowHandler derives a distribution window from the current chain head
// GET /api/airdrop/window
func (h *AirdropHandler) WindowHandler(c *gin.Context) {
	window, err := h.window.DeriveWindow(c.Request.Context())
	if err != nil {
		respondWithDomainError(c, "Window", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"startTimestamp": window.StartString(),
		"endTimestamp":   window.EndString(),
	})
}

func (h *AirdropHandler) lookupStep(c *gin.Context, operation string) (*services.AirdropDetailsStep, bool) {
	step, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondWithDomainError(c, operation, err)
		return nil, false
	}
	return step, true
}
