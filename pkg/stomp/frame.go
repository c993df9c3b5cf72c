// Package stomp implements the minimal text-frame protocol spoken on the
// push/presence websocket channel: a command line, zero or more
// key:value header lines, a blank line, an optional body, and a single
// NUL sentinel byte.
package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	// Client-sent commands.
	CommandConnect    Command = "CONNECT"
	CommandSubscribe  Command = "SUBSCRIBE"
	CommandDisconnect Command = "DISCONNECT"

	// Server-sent commands.
	CommandConnected Command = "CONNECTED"
	CommandMessage   Command = "MESSAGE"
	CommandError     Command = "ERROR"
)

// Well-known headers.
const (
	HeaderDestination   = "destination"
	HeaderSubscription  = "id"
	HeaderAcceptVersion = "accept-version"
	HeaderHeartBeat     = "heart-beat"
	HeaderVersion       = "version"
	HeaderMessage       = "message"
)

const sentinel = byte(0x00)

var (
	ErrEmptyFrame      = errors.New("stomp: empty frame")
	ErrMissingSentinel = errors.New("stomp: missing terminating NUL")
	ErrBadHeader       = errors.New("stomp: malformed header line")
	ErrUnknownCommand  = errors.New("stomp: unknown command")
)

var knownCommands = map[Command]bool{
	CommandConnect:    true,
	CommandSubscribe:  true,
	CommandDisconnect: true,
	CommandConnected:  true,
	CommandMessage:    true,
	CommandError:      true,
}

type Frame struct {
	Command Command
	Headers map[string]string
	Body    []byte
}

func NewFrame(cmd Command) *Frame {
	return &Frame{Command: cmd, Headers: make(map[string]string)}
}

func (f *Frame) Header(key string) string {
	return f.Headers[key]
}

func (f *Frame) SetHeader(key, value string) *Frame {
	if f.Headers == nil {
		f.Headers = make(map[string]string)
	}
	f.Headers[key] = value
	return f
}

// Marshal renders the frame in wire order: command, headers, blank line,
// body, sentinel. Header order is not significant to the protocol but is
// kept deterministic for the fixed well-known keys.
func (f *Frame) Marshal() []byte {
	var b bytes.Buffer
	b.WriteString(string(f.Command))
	b.WriteByte('\n')
	for _, key := range []string{HeaderSubscription, HeaderDestination, HeaderAcceptVersion, HeaderHeartBeat, HeaderVersion, HeaderMessage} {
		if v, ok := f.Headers[key]; ok {
			b.WriteString(key)
			b.WriteByte(':')
			b.WriteString(v)
			b.WriteByte('\n')
		}
	}
	for key, v := range f.Headers {
		if isWellKnown(key) {
			continue
		}
		b.WriteString(key)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.Write(f.Body)
	b.WriteByte(sentinel)
	return b.Bytes()
}

func isWellKnown(key string) bool {
	switch key {
	case HeaderSubscription, HeaderDestination, HeaderAcceptVersion, HeaderHeartBeat, HeaderVersion, HeaderMessage:
		return true
	}
	return false
}

// Parse decodes one wire frame. The terminating NUL is required; bytes
// after it are rejected as garbage.
func Parse(raw []byte) (*Frame, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyFrame
	}
	end := bytes.IndexByte(raw, sentinel)
	if end < 0 {
		return nil, ErrMissingSentinel
	}
	if rest := bytes.TrimRight(raw[end+1:], "\n\r"); len(rest) != 0 {
		return nil, fmt.Errorf("stomp: %d trailing bytes after sentinel", len(rest))
	}
	raw = raw[:end]

	head, body, _ := bytes.Cut(raw, []byte("\n\n"))
	lines := strings.Split(strings.TrimRight(string(head), "\r\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, ErrEmptyFrame
	}
	cmd := Command(strings.TrimSpace(lines[0]))
	if !knownCommands[cmd] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	f := NewFrame(cmd)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadHeader, line)
		}
		f.Headers[key] = value
	}
	if len(body) > 0 {
		f.Body = append([]byte(nil), body...)
	}
	return f, nil
}
