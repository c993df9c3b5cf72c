package registry

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZhanWeiKai/eatwhat/internal/core/contracts"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/pkg/stomp"
)

var tracer = otel.Tracer("connection-registry")

// Subscription ids the mobile client uses for its two implicit
// subscriptions; echoed back on MESSAGE frames.
const (
	subPrivate  = "sub-0"
	subPresence = "sub-status"
)

// Registry is the thread-safe map from user identity to the one live
// connection for that user. It is the only cross-request shared mutable
// state on the websocket path. At most one connection per user: a new
// Register for the same id closes and replaces the old handle.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]contracts.Conn
	log   *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]contracts.Conn),
		log:   log,
	}
}

// Register stores the connection for its user id, closing any previous
// handle for the same id so transport resources never leak.
func (r *Registry) Register(c contracts.Conn) {
	userID := c.UserID()
	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = c
	r.mu.Unlock()
	if old != nil && old != c {
		old.Close()
		r.log.Info("registry - register - replaced existing connection", "user_id", userID)
	}
}

// Unregister removes c if it is still the registered connection for its
// user. Safe to call multiple times; a connection that was already
// replaced or removed is a no-op, so a stale handler teardown can never
// evict a newer connection.
func (r *Registry) Unregister(c contracts.Conn) {
	userID := c.UserID()
	r.mu.Lock()
	if r.conns[userID] == c {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

// Lookup returns the live connection for userID, if any. Never blocks on
// a send.
func (r *Registry) Lookup(userID string) (contracts.Conn, bool) {
	r.mu.RLock()
	c, ok := r.conns[userID]
	r.mu.RUnlock()
	return c, ok
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// snapshot copies the live connection list so callers can send without
// holding the map lock; a slow client must not stall Register/Unregister.
func (r *Registry) snapshot() []contracts.Conn {
	r.mu.RLock()
	conns := make([]contracts.Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	return conns
}

// Publish delivers payload to topic's subscribers. A private topic whose
// user has no live connection is a normal branch, not an error: the
// recipient simply discovers the push on their next listing.
func (r *Registry) Publish(ctx context.Context, topic string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "Registry.Publish", trace.WithAttributes(
		attribute.String("topic", topic),
		attribute.Int("payload_size", len(payload)),
	))
	defer span.End()

	if userID, ok := domain.IsUserTopic(topic); ok {
		c, found := r.Lookup(userID)
		if !found {
			r.log.DebugContext(ctx, "registry - publish - recipient offline", "topic", topic)
			return nil
		}
		frame := messageFrame(topic, subPrivate, payload)
		if err := c.Send(ctx, frame); err != nil {
			r.dropConn(ctx, c, err)
		}
		return nil
	}

	// Shared topic: every live connection gets an independent attempt.
	frame := messageFrame(topic, subPresence, payload)
	delivered := 0
	conns := r.snapshot()
	for _, c := range conns {
		if err := c.Send(ctx, frame); err != nil {
			r.dropConn(ctx, c, err)
			continue
		}
		delivered++
	}
	span.SetAttributes(attribute.Int("delivered", delivered))
	r.log.DebugContext(ctx, "registry - publish - broadcast done", "topic", topic, "delivered", delivered, "total", len(conns))
	return nil
}

// dropConn routes a failed send to the same removal path as an explicit
// close. Transport errors are absorbed here, never propagated upward.
func (r *Registry) dropConn(ctx context.Context, c contracts.Conn, err error) {
	r.log.WarnContext(ctx, "registry - publish - send failed, dropping connection", "user_id", c.UserID(), "err", err)
	r.Unregister(c)
	c.Close()
}

func messageFrame(topic, subscription string, payload []byte) []byte {
	f := stomp.NewFrame(stomp.CommandMessage).
		SetHeader(stomp.HeaderDestination, topic).
		SetHeader(stomp.HeaderSubscription, subscription)
	f.Body = payload
	return f.Marshal()
}
