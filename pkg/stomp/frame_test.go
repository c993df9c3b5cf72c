package stomp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhanWeiKai/eatwhat/pkg/stomp"
)

func TestMarshalParse(t *testing.T) {
	t.Run("round trips a MESSAGE frame with body", func(t *testing.T) {
		f := stomp.NewFrame(stomp.CommandMessage).
			SetHeader(stomp.HeaderDestination, "user/u1").
			SetHeader(stomp.HeaderSubscription, "sub-0")
		f.Body = []byte(`{"pushId":"p1"}`)

		raw := f.Marshal()
		require.Equal(t, byte(0x00), raw[len(raw)-1], "frame must end with the NUL sentinel")

		parsed, err := stomp.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, stomp.CommandMessage, parsed.Command)
		assert.Equal(t, "user/u1", parsed.Header(stomp.HeaderDestination))
		assert.Equal(t, "sub-0", parsed.Header(stomp.HeaderSubscription))
		assert.Equal(t, `{"pushId":"p1"}`, string(parsed.Body))
	})

	t.Run("round trips a bodiless CONNECT frame", func(t *testing.T) {
		f := stomp.NewFrame(stomp.CommandConnect).
			SetHeader(stomp.HeaderAcceptVersion, "1.2").
			SetHeader(stomp.HeaderHeartBeat, "0,0")

		parsed, err := stomp.Parse(f.Marshal())
		require.NoError(t, err)
		assert.Equal(t, stomp.CommandConnect, parsed.Command)
		assert.Equal(t, "1.2", parsed.Header(stomp.HeaderAcceptVersion))
		assert.Empty(t, parsed.Body)
	})

	t.Run("header values may contain colons", func(t *testing.T) {
		f := stomp.NewFrame(stomp.CommandError).
			SetHeader(stomp.HeaderMessage, "bad destination: user/other")

		parsed, err := stomp.Parse(f.Marshal())
		require.NoError(t, err)
		assert.Equal(t, "bad destination: user/other", parsed.Header(stomp.HeaderMessage))
	})
}

func TestParseRejects(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := stomp.Parse(nil)
		assert.ErrorIs(t, err, stomp.ErrEmptyFrame)
	})

	t.Run("missing sentinel", func(t *testing.T) {
		_, err := stomp.Parse([]byte("CONNECT\naccept-version:1.2\n\n"))
		assert.ErrorIs(t, err, stomp.ErrMissingSentinel)
	})

	t.Run("garbage after sentinel", func(t *testing.T) {
		raw := append(stomp.NewFrame(stomp.CommandConnect).Marshal(), []byte("extra")...)
		_, err := stomp.Parse(raw)
		assert.Error(t, err)
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := stomp.Parse([]byte("SEND\ndestination:user/u1\n\nhi\x00"))
		assert.ErrorIs(t, err, stomp.ErrUnknownCommand)
	})

	t.Run("malformed header line", func(t *testing.T) {
		_, err := stomp.Parse([]byte("CONNECT\nnot-a-header\n\n\x00"))
		assert.ErrorIs(t, err, stomp.ErrBadHeader)
	})
}

func TestClassify(t *testing.T) {
	t.Run("CONNECTED", func(t *testing.T) {
		f := stomp.NewFrame(stomp.CommandConnected).SetHeader(stomp.HeaderVersion, "1.2")
		ev, err := stomp.Classify(f)
		require.NoError(t, err)
		connected, ok := ev.(stomp.Connected)
		require.True(t, ok)
		assert.Equal(t, "1.2", connected.Version)
	})

	t.Run("MESSAGE", func(t *testing.T) {
		f := stomp.NewFrame(stomp.CommandMessage).
			SetHeader(stomp.HeaderDestination, "presence").
			SetHeader(stomp.HeaderSubscription, "sub-status")
		f.Body = []byte(`{"status":"ONLINE"}`)
		ev, err := stomp.Classify(f)
		require.NoError(t, err)
		msg, ok := ev.(stomp.Message)
		require.True(t, ok)
		assert.Equal(t, "presence", msg.Destination)
		assert.Equal(t, "sub-status", msg.Subscription)
		assert.Equal(t, `{"status":"ONLINE"}`, string(msg.Body))
	})

	t.Run("ERROR", func(t *testing.T) {
		f := stomp.NewFrame(stomp.CommandError).SetHeader(stomp.HeaderMessage, "boom")
		ev, err := stomp.Classify(f)
		require.NoError(t, err)
		errEv, ok := ev.(stomp.Error)
		require.True(t, ok)
		assert.Equal(t, "boom", errEv.Message)
	})

	t.Run("client command is not a server event", func(t *testing.T) {
		_, err := stomp.Classify(stomp.NewFrame(stomp.CommandSubscribe))
		assert.Error(t, err)
	})
}
