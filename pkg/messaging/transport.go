// SPDX-License-Identifier: Apache-2.0
package messaging

import "context"

// Handler processes one raw message. Errors are logged by the transport;
// they never stop the subscription.
type Handler func(ctx context.Context, msg []byte) error

// Transport moves raw messages between publishers and subscribers.
// Delivery is at-most-once.
type Transport interface {
	Publish(ctx context.Context, topic string, msg []byte) error
	// Subscribe delivers messages on topic to handler until ctx is done,
	// then returns nil.
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// PublishEnvelope encodes e and publishes it on topic.
func PublishEnvelope(ctx context.Context, t Transport, topic string, e Envelope) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	return t.Publish(ctx, topic, data)
}
