package messaging

import (
	"context"
)

// Broker is the message fan-out used by the outbox worker to push intake
// events (station completions, approvals) to subscribed camp dashboards.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
