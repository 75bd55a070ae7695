package ports

import "context"

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishSignIn(ctx context.Context, address string, sessionID string) error
	PublishClaim(ctx context.Context, address string, txHash string) error
}
