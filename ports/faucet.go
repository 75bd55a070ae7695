package ports

import (
	"context"

	"github.com/layer-3/faucet/core"
)

// Faucet is the on-chain faucet contract
type Faucet interface {
	HasClaimed(ctx context.Context, address string) (bool, error)

	// Claim submits the claim transaction and returns its hash.
	Claim(ctx context.Context, address string) (string, error)

	Status(ctx context.Context, address string) (*core.FaucetStatus, error)
}
