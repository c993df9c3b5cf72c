package registry_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhanWeiKai/eatwhat/internal/app/registry"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/pkg/stomp"
)

type fakeConn struct {
	mu      sync.Mutex
	userID  string
	sent    [][]byte
	sendErr error
	closed  bool
}

func (c *fakeConn) UserID() string { return c.userID }

func (c *fakeConn) Send(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) frames(t *testing.T) []*stomp.Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*stomp.Frame, 0, len(c.sent))
	for _, raw := range c.sent {
		f, err := stomp.Parse(raw)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func newRegistry() *registry.Registry {
	return registry.NewRegistry(slog.Default())
}

func TestRegister(t *testing.T) {
	t.Run("a second connection for the same user replaces and closes the first", func(t *testing.T) {
		r := newRegistry()
		first := &fakeConn{userID: "u1"}
		second := &fakeConn{userID: "u1"}

		r.Register(first)
		r.Register(second)

		assert.True(t, first.closed)
		assert.False(t, second.closed)
		assert.Equal(t, 1, r.Size())

		got, ok := r.Lookup("u1")
		require.True(t, ok)
		assert.Same(t, second, got)
	})

	t.Run("unregistering a replaced connection does not evict its successor", func(t *testing.T) {
		r := newRegistry()
		first := &fakeConn{userID: "u1"}
		second := &fakeConn{userID: "u1"}
		r.Register(first)
		r.Register(second)

		r.Unregister(first)

		_, ok := r.Lookup("u1")
		assert.True(t, ok)
	})

	t.Run("unregister is idempotent", func(t *testing.T) {
		r := newRegistry()
		c := &fakeConn{userID: "u1"}
		r.Register(c)
		r.Unregister(c)
		r.Unregister(c)
		assert.Equal(t, 0, r.Size())
	})
}

func TestPublishUserTopic(t *testing.T) {
	t.Run("delivers a MESSAGE frame on the private subscription", func(t *testing.T) {
		r := newRegistry()
		c := &fakeConn{userID: "u1"}
		r.Register(c)

		err := r.Publish(context.Background(), domain.UserTopic("u1"), []byte(`{"pushId":"p1"}`))
		require.NoError(t, err)

		frames := c.frames(t)
		require.Len(t, frames, 1)
		assert.Equal(t, stomp.CommandMessage, frames[0].Command)
		assert.Equal(t, "user/u1", frames[0].Header(stomp.HeaderDestination))
		assert.Equal(t, "sub-0", frames[0].Header(stomp.HeaderSubscription))
		assert.Equal(t, `{"pushId":"p1"}`, string(frames[0].Body))
	})

	t.Run("offline recipient is not an error", func(t *testing.T) {
		r := newRegistry()
		err := r.Publish(context.Background(), domain.UserTopic("ghost"), []byte("x"))
		assert.NoError(t, err)
	})

	t.Run("a failed send drops the connection", func(t *testing.T) {
		r := newRegistry()
		c := &fakeConn{userID: "u1", sendErr: errors.New("broken pipe")}
		r.Register(c)

		err := r.Publish(context.Background(), domain.UserTopic("u1"), []byte("x"))
		require.NoError(t, err)
		assert.True(t, c.closed)
		assert.Equal(t, 0, r.Size())
	})
}

func TestPublishPresence(t *testing.T) {
	t.Run("every live connection gets an independent attempt", func(t *testing.T) {
		r := newRegistry()
		ok1 := &fakeConn{userID: "u1"}
		bad := &fakeConn{userID: "u2", sendErr: errors.New("broken pipe")}
		ok2 := &fakeConn{userID: "u3"}
		r.Register(ok1)
		r.Register(bad)
		r.Register(ok2)

		err := r.Publish(context.Background(), domain.TopicPresence, []byte(`{"status":"ONLINE"}`))
		require.NoError(t, err)

		for _, c := range []*fakeConn{ok1, ok2} {
			frames := c.frames(t)
			require.Len(t, frames, 1)
			assert.Equal(t, domain.TopicPresence, frames[0].Header(stomp.HeaderDestination))
			assert.Equal(t, "sub-status", frames[0].Header(stomp.HeaderSubscription))
		}
		// The failing connection is removed, the healthy ones stay.
		assert.True(t, bad.closed)
		assert.Equal(t, 2, r.Size())
	})
}
