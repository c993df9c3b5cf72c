package sse_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhanWeiKai/eatwhat/internal/app/server/sse"
	"github.com/ZhanWeiKai/eatwhat/internal/config"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

func newServer(deadline time.Duration) *sse.Server {
	return sse.NewServer(slog.Default(), config.StreamConfig{
		SessionDeadline: deadline,
		SendBuffer:      16,
	})
}

func drain(sess *sse.Session) []sse.Event {
	var out []sse.Event
	for {
		select {
		case ev := <-sess.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestOpen(t *testing.T) {
	t.Run("queues the connect confirmation immediately", func(t *testing.T) {
		s := newServer(0)
		sess := s.Open("u1")

		events := drain(sess)
		require.Len(t, events, 1)
		assert.Equal(t, domain.StreamEventConnect, events[0].Name)
		assert.Equal(t, "u1", events[0].ID)
		assert.Equal(t, 1, s.Size())
	})

	t.Run("a second open replaces and retires the first session", func(t *testing.T) {
		s := newServer(0)
		first := s.Open("u1")
		second := s.Open("u1")

		select {
		case <-first.Done():
		default:
			t.Fatal("replaced session should be done")
		}
		select {
		case <-second.Done():
			t.Fatal("new session must stay open")
		default:
		}
		assert.Equal(t, 1, s.Size())
	})
}

func TestAppendFinish(t *testing.T) {
	t.Run("chunks arrive in order and finish is terminal", func(t *testing.T) {
		s := newServer(0)
		sess := s.Open("u1")
		drain(sess)

		ctx := context.Background()
		s.Append(ctx, "u1", "hel")
		s.Append(ctx, "u1", "lo")
		s.Finish(ctx, "u1", "hello")

		events := drain(sess)
		require.Len(t, events, 3)
		assert.Equal(t, domain.StreamEventAdd, events[0].Name)
		assert.Equal(t, "hel", events[0].Data)
		assert.Equal(t, "lo", events[1].Data)
		assert.Equal(t, domain.StreamEventFinish, events[2].Name)
		assert.Equal(t, "hello", events[2].Data)
		assert.True(t, events[2].Terminal)

		select {
		case <-sess.Done():
		default:
			t.Fatal("finished session should be done")
		}
		assert.Equal(t, 0, s.Size())
	})

	t.Run("append without an open session is a no-op", func(t *testing.T) {
		s := newServer(0)
		s.Append(context.Background(), "nobody", "chunk")
		assert.Equal(t, 0, s.Size())
	})

	t.Run("fail emits the terminal error event", func(t *testing.T) {
		s := newServer(0)
		sess := s.Open("u1")
		drain(sess)

		s.Fail(context.Background(), "u1", "抱歉，我现在无法回答，请稍后再试。")

		events := drain(sess)
		require.Len(t, events, 1)
		assert.Equal(t, domain.StreamEventError, events[0].Name)
		assert.True(t, events[0].Terminal)
		assert.Equal(t, 0, s.Size())
	})
}

func TestRemove(t *testing.T) {
	t.Run("remove is idempotent", func(t *testing.T) {
		s := newServer(0)
		sess := s.Open("u1")
		s.Remove(sess)
		s.Remove(sess)
		assert.Equal(t, 0, s.Size())
	})

	t.Run("removing a replaced session does not evict its successor", func(t *testing.T) {
		s := newServer(0)
		first := s.Open("u1")
		s.Open("u1")
		s.Remove(first)
		assert.Equal(t, 1, s.Size())
	})
}

func TestSessionDeadline(t *testing.T) {
	t.Run("an idle session past the deadline is force-failed", func(t *testing.T) {
		s := newServer(20 * time.Millisecond)
		sess := s.Open("u1")
		drain(sess)

		select {
		case <-sess.Done():
		case <-time.After(time.Second):
			t.Fatal("session should have been retired by the deadline")
		}
		events := drain(sess)
		require.Len(t, events, 1)
		assert.Equal(t, domain.StreamEventError, events[0].Name)
		assert.Equal(t, 0, s.Size())
	})
}
