package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/faucet/ports"
)

const (
	// TopicSignIn carries SignInEvent payloads
	TopicSignIn = "faucet.signin"

	// TopicClaimed carries ClaimEvent payloads
	TopicClaimed = "faucet.claimed"
)

// SignInEvent represents a successful wallet sign-in
type SignInEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
}

// ClaimEvent represents a submitted faucet claim
type ClaimEvent struct {
	Address string `json:"address"`
	TxHash  string `json:"tx_hash"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishSignIn publishes a sign-in event
func (p *WatermillPublisher) PublishSignIn(ctx context.Context, address string, sessionID string) error {
	return p.publish(ctx, TopicSignIn, SignInEvent{Address: address, SessionID: sessionID})
}

// PublishClaim publishes a claim event
func (p *WatermillPublisher) PublishClaim(ctx context.Context, address string, txHash string) error {
	return p.publish(ctx, TopicClaimed, ClaimEvent{Address: address, TxHash: txHash})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event
type NopPublisher struct{}

// PublishSignIn discards the sign-in event
func (NopPublisher) PublishSignIn(context.Context, string, string) error { return nil }

// PublishClaim discards the claim event
func (NopPublisher) PublishClaim(context.Context, string, string) error { return nil }
