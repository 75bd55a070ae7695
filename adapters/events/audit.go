package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// AuditLog writes one log line per sign-in and claim event until ctx is done.
// It returns once both subscriptions are closed.
func AuditLog(ctx context.Context, subscriber message.Subscriber, logger *zap.Logger) error {
	signIns, err := subscriber.Subscribe(ctx, TopicSignIn)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicSignIn, err)
	}
	claims, err := subscriber.Subscribe(ctx, TopicClaimed)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicClaimed, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consume(signIns, logger, func(payload []byte) error {
			var e SignInEvent
			if err := json.Unmarshal(payload, &e); err != nil {
				return err
			}
			logger.Info("audit: sign-in",
				zap.String("address", e.Address),
				zap.String("session_id", e.SessionID),
			)
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		consume(claims, logger, func(payload []byte) error {
			var e ClaimEvent
			if err := json.Unmarshal(payload, &e); err != nil {
				return err
			}
			logger.Info("audit: claim submitted",
				zap.String("address", e.Address),
				zap.String("tx_hash", e.TxHash),
			)
			return nil
		})
	}()
	wg.Wait()

	return nil
}

func consume(messages <-chan *message.Message, logger *zap.Logger, handle func([]byte) error) {
	for msg := range messages {
		if err := handle(msg.Payload); err != nil {
			// Malformed payloads are acked and dropped.
			logger.Warn("audit: dropping malformed event", zap.String("uuid", msg.UUID), zap.Error(err))
		}
		msg.Ack()
	}
}
