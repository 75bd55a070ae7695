package service

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/ports"
	"go.uber.org/zap"
)

// DefaultChainTimeout bounds every call to the chain
const DefaultChainTimeout = 15 * time.Second

// FaucetService gates faucet claims and reports faucet status
type FaucetService struct {
	faucet   ports.Faucet
	eventPub ports.EventPublisher
	logger   *zap.Logger
	timeout  time.Duration
}

// NewFaucetService creates a new faucet service. A zero timeout selects
// DefaultChainTimeout.
func NewFaucetService(faucet ports.Faucet, eventPub ports.EventPublisher, logger *zap.Logger, timeout time.Duration) *FaucetService {
	if timeout <= 0 {
		timeout = DefaultChainTimeout
	}
	return &FaucetService{
		faucet:   faucet,
		eventPub: eventPub,
		logger:   logger,
		timeout:  timeout,
	}
}

// Claim submits a claim for address unless the contract reports it has
// already claimed. Concurrent claims for one address may both pass the check;
// the contract is the authority on double claims.
func (s *FaucetService) Claim(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	claimed, err := s.faucet.HasClaimed(ctx, address)
	if err != nil {
		return "", s.external("claim status check", address, err)
	}
	if claimed {
		return "", core.ErrAlreadyClaimed
	}

	txHash, err := s.faucet.Claim(ctx, address)
	if err != nil {
		return "", s.external("claim", address, err)
	}

	s.logger.Info("claim submitted", zap.String("address", address), zap.String("tx_hash", txHash))

	if err := s.eventPub.PublishClaim(ctx, address, txHash); err != nil {
		s.logger.Warn("failed to publish claim event", zap.String("address", address), zap.Error(err))
	}

	return txHash, nil
}

// Status returns the faucet state as seen by address
func (s *FaucetService) Status(ctx context.Context, address string) (*core.FaucetStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := s.faucet.Status(ctx, address)
	if err != nil {
		return nil, s.external("status", address, err)
	}

	return status, nil
}

func (s *FaucetService) external(op, address string, err error) error {
	s.logger.Error("faucet "+op+" failed", zap.String("address", address), zap.Error(err))
	return fmt.Errorf("%w: %v", core.ErrExternalService, err)
}
