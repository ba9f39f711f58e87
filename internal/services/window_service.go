package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/models"
	"airdrop-backend/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ChainTimeSource reads the timestamp of the chain head. *clients.ChainClient implements it.
type ChainTimeSource interface {
	LatestBlockTimestamp(ctx context.Context) (uint64, error)
}

// WindowService derives airdrop distribution windows from on-chain time
type WindowService struct {
	source      ChainTimeSource
	startOffset decimal.Decimal
	endOffset   decimal.Decimal
	logger      *logrus.Entry
}

// NewWindowService creates a window deriver adding startOffset/endOffset seconds to chain time
func NewWindowService(source ChainTimeSource, startOffset, endOffset int64) (*WindowService, error) {
	if source == nil {
		return nil, errors.New("window service requires a chain time source")
	}
	if startOffset >= endOffset {
		return nil, fmt.Errorf("%w: start offset %d must be less than end offset %d",
			types.ErrInvalidWindowConfig, startOffset, endOffset)
	}
	return &WindowService{
		source:      source,
		startOffset: decimal.NewFromInt(startOffset),
		endOffset:   decimal.NewFromInt(endOffset),
		logger:      logrus.WithField("component", "window_service"),
	}, nil
}

// DeriveWindow reads chain time once and returns (T+startOffset, T+endOffset)
func (s *WindowService) DeriveWindow(ctx context.Context) (models.DistributionWindow, error) {
	ts, err := s.source.LatestBlockTimestamp(ctx)
	if err != nil {
		metrics.WindowFetches.WithLabelValues("failed").Inc()
		if !errors.Is(err, types.ErrChainUnavailable) {
			err = fmt.Errorf("%w: %v", types.ErrChainUnavailable, err)
		}
		return models.DistributionWindow{}, err
	}

	window := WindowFromTimestamp(decimal.NewFromBigInt(new(big.Int).SetUint64(ts), 0), s.startOffset, s.endOffset)
	metrics.WindowFetches.WithLabelValues("ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"chain_time": ts,
		"start":      window.StartString(),
		"end":        window.EndString(),
	}).Debug("Derived distribution window")
	return window, nil
}

// WindowFromTimestamp offsets an observed chain time into a distribution window
func WindowFromTimestamp(chainTime, startOffset, endOffset decimal.Decimal) models.DistributionWindow {
	return models.DistributionWindow{
		Start: chainTime.Add(startOffset),
		End:   chainTime.Add(endOffset),
	}
}
