package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

type noopBroker struct{}

// NewNoop returns a broker that drops everything, used when no broker is
// configured.
func NewNoop() Broker {
	return noopBroker{}
}

func (noopBroker) Publish(context.Context, string, interface{}) error { return nil }

func (noopBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (noopBroker) Close() error { return nil }
