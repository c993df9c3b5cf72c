package contracts

import (
	"context"
)

// Broker is the publish side of the websocket channel. Recipients are
// addressed by logical identity, never by physical connection, so a
// publisher does not need to know whether the target is online.
type Broker interface {
	// Publish delivers payload to the subscribers of topic. A private
	// topic with no live connection is a normal no-op, not an error.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Size returns the number of live connections (diagnostic).
	Size() int
}

// Conn is the registry's handle on one live client connection.
type Conn interface {
	UserID() string
	// Send enqueues a frame for the connection's write pump. It must not
	// block on the network; a full queue or closed connection is an error.
	Send(ctx context.Context, frame []byte) error
	Close()
}
