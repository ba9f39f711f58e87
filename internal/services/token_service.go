package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/types"
	"airdrop-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// TokenDecimalsReader reads ERC20 decimals(). *clients.ChainClient implements it.
type TokenDecimalsReader interface {
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// TokenServiceConfig token precision settings
type TokenServiceConfig struct {
	DefaultDecimals int32
	TokenDecimals   map[string]int32 // lowercase 0x address -> decimals
	ResolveOnChain  bool
	CacheSize       int
}

// TokenService resolves token precision and scales user amounts
type TokenService struct {
	reader          TokenDecimalsReader
	configured      map[string]int32
	defaultDecimals int32
	resolveOnChain  bool
	cache           *lru.Cache
	logger          *logrus.Entry
}

// NewTokenService creates the resolver. reader may be nil, in which case only
// configured and default decimals are used.
func NewTokenService(reader TokenDecimalsReader, cfg TokenServiceConfig) (*TokenService, error) {
	if cfg.DefaultDecimals < 0 || cfg.DefaultDecimals > utils.MaxTokenDecimals {
		return nil, fmt.Errorf("default decimals %d out of range [0, %d]", cfg.DefaultDecimals, utils.MaxTokenDecimals)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create token decimals cache: %w", err)
	}

	configured := make(map[string]int32, len(cfg.TokenDecimals))
	for k, v := range cfg.TokenDecimals {
		configured[strings.ToLower(k)] = v
	}

	return &TokenService{
		reader:          reader,
		configured:      configured,
		defaultDecimals: cfg.DefaultDecimals,
		resolveOnChain:  cfg.ResolveOnChain,
		cache:           cache,
		logger:          logrus.WithField("component", "token_service"),
	}, nil
}

// DefaultDecimals fallback precision
func (s *TokenService) DefaultDecimals() int32 {
	return s.defaultDecimals
}

// Decimals resolves token precision: config entry, then cached on-chain
// decimals(). The default is used only when on-chain resolution is off.
// A failed on-chain read returns ErrChainUnavailable instead of guessing.
func (s *TokenService) Decimals(ctx context.Context, token string) (int32, error) {
	key, err := utils.NormalizeEvmAddress(token)
	if err != nil {
		return 0, err
	}

	if d, ok := s.configured[key]; ok {
		metrics.TokenDecimalsLookups.WithLabelValues("config").Inc()
		return d, nil
	}

	if !s.resolveOnChain || s.reader == nil {
		metrics.TokenDecimalsLookups.WithLabelValues("default").Inc()
		return s.defaultDecimals, nil
	}

	if v, ok := s.cache.Get(key); ok {
		metrics.TokenDecimalsLookups.WithLabelValues("cache").Inc()
		return v.(int32), nil
	}

	onChain, err := s.reader.TokenDecimals(ctx, common.HexToAddress(key))
	if err != nil {
		metrics.TokenDecimalsLookups.WithLabelValues("failed").Inc()
		s.logger.WithFields(logrus.Fields{
			"token": key,
			"error": err,
		}).Warn("⚠️ Failed to read token decimals on-chain")
		if errors.Is(err, types.ErrChainUnavailable) {
			return 0, fmt.Errorf("token %s decimals: %w", key, err)
		}
		return 0, fmt.Errorf("%w: token %s decimals: %w", types.ErrChainUnavailable, key, err)
	}

	d := int32(onChain)
	if d > utils.MaxTokenDecimals {
		s.logger.WithFields(logrus.Fields{
			"token":    key,
			"decimals": d,
		}).Warn("⚠️ Token reports unsupported decimals")
		return 0, fmt.Errorf("token %s reports unsupported decimals %d", key, d)
	}

	s.cache.Add(key, d)
	metrics.TokenDecimalsLookups.WithLabelValues("chain").Inc()
	return d, nil
}

// ScaleAmount converts amount into token's smallest unit, returning the decimals used
func (s *TokenService) ScaleAmount(ctx context.Context, token, amount string) (*big.Int, int32, error) {
	decimals, err := s.Decimals(ctx, token)
	if err != nil {
		return nil, 0, err
	}
	scaled, err := utils.ToScaledInteger(amount, decimals)
	if err != nil {
		return nil, 0, err
	}
	return scaled, decimals, nil
}
