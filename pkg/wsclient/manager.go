// Package wsclient is the client-side transport manager for the push and
// presence channel: it owns the connection lifecycle, the subscription
// handshake, typed dispatch of inbound frames, and reconnection.
package wsclient

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/pkg/stomp"
)

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

const (
	subPrivate  = "sub-0"
	subPresence = "sub-status"

	defaultReconnectDelay   = 3 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

var ErrAlreadyConnected = errors.New("wsclient: already connected or connecting")

// Options configures one Manager. UserID must match the identity behind
// Token: the private subscription is derived from it.
type Options struct {
	URL              string // ws:// or wss:// endpoint
	Token            string // sent as ?token= since browsers cannot set headers on upgrade
	UserID           string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
}

// Handlers receive dispatched events. Nil handlers drop their events.
// All handlers run on the manager's read goroutine; don't block in them.
type Handlers struct {
	OnPush     func(domain.Push)
	OnPresence func(domain.PresenceEvent)
	OnState    func(State)
}

// Manager drives one logical connection through the
// DISCONNECTED -> CONNECTING -> CONNECTED cycle. A dropped connection
// schedules exactly one reconnect attempt after a fixed delay; attempts
// never overlap, and an explicit Disconnect suppresses the cycle.
type Manager struct {
	log      *slog.Logger
	opts     Options
	handlers Handlers
	dialer   *websocket.Dialer

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	closing  bool
	retry    *time.Timer
	retrySet bool
}

func NewManager(log *slog.Logger, opts Options, handlers Handlers) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Manager{
		log:      log,
		opts:     opts,
		handlers: handlers,
		dialer:   &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		state:    StateDisconnected,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials, performs the handshake, and starts the read loop.
// Calling it while connected or connecting is a logged no-op.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		m.log.Warn("wsclient - connect ignored, not disconnected", "state", string(m.state))
		return ErrAlreadyConnected
	}
	m.closing = false
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	return m.dial()
}

func (m *Manager) dial() error {
	url := m.opts.URL
	if m.opts.Token != "" {
		url += "?token=" + m.opts.Token
	}
	conn, _, err := m.dialer.Dial(url, nil)
	if err != nil {
		m.log.Warn("wsclient - dial failed", "err", err)
		m.onTransportDown()
		return err
	}
	if err := m.handshake(conn); err != nil {
		m.log.Warn("wsclient - handshake failed", "err", err)
		_ = conn.Close()
		m.onTransportDown()
		return err
	}

	m.mu.Lock()
	if m.closing {
		// Disconnect raced the dial; drop the fresh connection.
		m.mu.Unlock()
		_ = conn.Close()
		return errors.New("wsclient: disconnected during dial")
	}
	m.conn = conn
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.log.Info("wsclient - connected", "user_id", m.opts.UserID)
	go m.readLoop(conn)
	return nil
}

// handshake sends CONNECT, waits for CONNECTED, then creates the two
// standing subscriptions: the private topic and the presence topic.
func (m *Manager) handshake(conn *websocket.Conn) error {
	connect := stomp.NewFrame(stomp.CommandConnect).
		SetHeader(stomp.HeaderAcceptVersion, "1.2").
		SetHeader(stomp.HeaderHeartBeat, "0,0")
	if err := conn.WriteMessage(websocket.TextMessage, connect.Marshal()); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(m.opts.HandshakeTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Time{})
	frame, err := stomp.Parse(raw)
	if err != nil {
		return err
	}
	ev, err := stomp.Classify(frame)
	if err != nil {
		return err
	}
	switch e := ev.(type) {
	case stomp.Connected:
	case stomp.Error:
		return errors.New("wsclient: server rejected connect: " + e.Message)
	default:
		return errors.New("wsclient: unexpected reply to connect")
	}

	private := stomp.NewFrame(stomp.CommandSubscribe).
		SetHeader(stomp.HeaderSubscription, subPrivate).
		SetHeader(stomp.HeaderDestination, domain.UserTopic(m.opts.UserID))
	if err := conn.WriteMessage(websocket.TextMessage, private.Marshal()); err != nil {
		return err
	}
	presence := stomp.NewFrame(stomp.CommandSubscribe).
		SetHeader(stomp.HeaderSubscription, subPresence).
		SetHeader(stomp.HeaderDestination, domain.TopicPresence)
	return conn.WriteMessage(websocket.TextMessage, presence.Marshal())
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			closing := m.closing || m.conn != conn
			m.mu.Unlock()
			if !closing {
				m.log.Warn("wsclient - connection lost", "err", err)
				m.onTransportDown()
			}
			return
		}
		m.dispatch(raw)
	}
}

// dispatch routes one inbound frame to its handler by subscription id.
// Malformed frames and unknown subscriptions are logged and dropped; a
// bad payload never tears the transport down.
func (m *Manager) dispatch(raw []byte) {
	frame, err := stomp.Parse(raw)
	if err != nil {
		m.log.Warn("wsclient - bad frame dropped", "err", err)
		return
	}
	ev, err := stomp.Classify(frame)
	if err != nil {
		m.log.Warn("wsclient - unexpected frame dropped", "err", err)
		return
	}
	switch e := ev.(type) {
	case stomp.Message:
		switch e.Subscription {
		case subPrivate:
			var push domain.Push
			if err := json.Unmarshal(e.Body, &push); err != nil {
				m.log.Warn("wsclient - bad push payload dropped", "err", err)
				return
			}
			if m.handlers.OnPush != nil {
				m.handlers.OnPush(push)
			}
		case subPresence:
			var event domain.PresenceEvent
			if err := json.Unmarshal(e.Body, &event); err != nil {
				m.log.Warn("wsclient - bad presence payload dropped", "err", err)
				return
			}
			if m.handlers.OnPresence != nil {
				m.handlers.OnPresence(event)
			}
		default:
			m.log.Warn("wsclient - message for unknown subscription dropped", "subscription", e.Subscription)
		}
	case stomp.Error:
		m.log.Warn("wsclient - server error frame", "message", e.Message)
	case stomp.Connected:
		// Duplicate CONNECTED outside the handshake; ignore.
	}
}

// onTransportDown moves to DISCONNECTED and schedules the single
// reconnect attempt, unless an explicit Disconnect is in progress or an
// attempt is already pending.
func (m *Manager) onTransportDown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = nil
	m.setStateLocked(StateDisconnected)
	if m.closing || m.retrySet {
		return
	}
	m.retrySet = true
	m.retry = time.AfterFunc(m.opts.ReconnectDelay, func() {
		m.mu.Lock()
		m.retrySet = false
		if m.closing || m.state != StateDisconnected {
			m.mu.Unlock()
			return
		}
		m.setStateLocked(StateConnecting)
		m.mu.Unlock()
		m.log.Info("wsclient - reconnecting")
		_ = m.dial()
	})
}

// Disconnect sends the DISCONNECT frame, closes the transport, and
// cancels any pending reconnect. Safe to call in any state.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	if m.retry != nil {
		m.retry.Stop()
		m.retrySet = false
	}
	conn := m.conn
	m.conn = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if conn == nil {
		return
	}
	bye := stomp.NewFrame(stomp.CommandDisconnect)
	_ = conn.WriteMessage(websocket.TextMessage, bye.Marshal())
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	m.log.Info("wsclient - disconnected", "user_id", m.opts.UserID)
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.handlers.OnState != nil {
		go m.handlers.OnState(s)
	}
}
