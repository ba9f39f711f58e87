package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// ERC20 ABI for decimals()
const erc20DecimalsABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

// ChainClient read-only JSON-RPC client for block time and token metadata
type ChainClient struct {
	client  *ethclient.Client
	erc20   abi.ABI
	timeout time.Duration
	logger  *logrus.Entry
}

// NewChainClient dials rpcURL. Every call made through the client is bounded by timeout.
func NewChainClient(ctx context.Context, rpcURL string, timeout time.Duration) (*ChainClient, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to RPC %s: %v", types.ErrChainUnavailable, rpcURL, err)
	}
	c, err := NewChainClientFromRPC(rpcClient, timeout)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	c.logger = c.logger.WithField("rpc", rpcURL)
	return c, nil
}

// NewChainClientFromRPC wraps an existing rpc client (in-process servers, tests)
func NewChainClientFromRPC(rpcClient *rpc.Client, timeout time.Duration) (*ChainClient, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20DecimalsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ChainClient{
		client:  ethclient.NewClient(rpcClient),
		erc20:   parsedABI,
		timeout: timeout,
		logger:  logrus.WithField("component", "chain_client"),
	}, nil
}

// Close releases the underlying connection
func (c *ChainClient) Close() {
	c.client.Close()
}

// VerifyChainID fails with ErrChainIDMismatch when the endpoint reports a chain
// other than expected. expected <= 0 skips the check.
func (c *ChainClient) VerifyChainID(ctx context.Context, expected int64) error {
	if expected <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var id *big.Int
	err := c.observe("eth_chainId", func() error {
		var err error
		id, err = c.client.ChainID(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to fetch chain id: %v", types.ErrChainUnavailable, err)
	}
	if !id.IsInt64() || id.Int64() != expected {
		return fmt.Errorf("%w: endpoint serves chain %s, configured %d", types.ErrChainIDMismatch, id, expected)
	}
	c.logger.WithField("chain_id", expected).Debug("Chain id verified")
	return nil
}

// LatestBlockTimestamp fetches the latest block number, then that block's header,
// and returns the header time in Unix seconds.
func (c *ChainClient) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var number uint64
	err := c.observe("eth_blockNumber", func() error {
		var err error
		number, err = c.client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to fetch block number: %v", types.ErrChainUnavailable, err)
	}

	var header *ethtypes.Header
	err = c.observe("eth_getBlockByNumber", func() error {
		var err error
		header, err = c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to fetch block %d: %v", types.ErrChainUnavailable, number, err)
	}

	c.logger.WithFields(logrus.Fields{
		"block":     number,
		"timestamp": header.Time,
	}).Debug("Fetched latest block header")
	return header.Time, nil
}

// TokenDecimals reads decimals() from an ERC20 contract
func (c *ChainClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.erc20.Pack("decimals")
	if err != nil {
		return 0, err
	}

	var result []byte
	err = c.observe("eth_call", func() error {
		var err error
		result, err = c.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: decimals() call on %s failed: %v", types.ErrChainUnavailable, token.Hex(), err)
	}

	unpacked, err := c.erc20.Unpack("decimals", result)
	if err != nil {
		return 0, fmt.Errorf("failed to decode decimals() of %s: %w", token.Hex(), err)
	}
	if len(unpacked) == 0 {
		return 0, fmt.Errorf("empty result from contract %s", token.Hex())
	}

	switch v := unpacked[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unexpected type %T for decimals", v)
	}
}

func (c *ChainClient) observe(method string, call func() error) error {
	start := time.Now()
	err := call()
	metrics.ChainRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChainRequestFailures.WithLabelValues(method).Inc()
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"error":  err.Error(),
		}).Warn("Chain RPC request failed")
	}
	return err
}
