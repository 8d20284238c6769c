// Package conn owns the single websocket connection of a game session. The
// manager is an explicitly owned object with a lifetime scoped to one page or
// bot session; there is no package-level socket.
package conn

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/protocol"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	writeTimeout   = 3 * time.Second
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 15 * time.Second
)

// Manager dials, reads, and writes one websocket connection. Inbound frames
// are decoded and handed to onEvent in strict arrival order. Connect never
// returns an error: transport failures land in StateDisconnected and the
// state stream tells observers to react.
type Manager struct {
	url     string
	log     *zap.Logger
	onEvent func(protocol.Event)

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	cancel context.CancelFunc
	gen    int

	states chan State
	notify chan struct{}
}

func NewManager(url string, log *zap.Logger, onEvent func(protocol.Event)) *Manager {
	return &Manager{
		url:     url,
		log:     log,
		onEvent: onEvent,
		states:  make(chan State, 8),
		notify:  make(chan struct{}, 1),
	}
}

// States is the connection-state stream the UI observes. Slow consumers miss
// intermediate transitions rather than blocking the manager.
func (m *Manager) States() <-chan State { return m.states }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.state = s
	select {
	case m.states <- s:
	default:
	}
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Connect opens the socket if not already connecting or connected. Transport
// errors are logged and absorbed into StateDisconnected.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.setState(StateConnecting)
	m.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, _, err := websocket.Dial(dialCtx, m.url, nil)
	cancel()
	if err != nil {
		m.log.Warn("websocket dial failed", zap.String("url", m.url), zap.Error(err))
		m.mu.Lock()
		m.setState(StateDisconnected)
		m.mu.Unlock()
		return
	}

	readCtx, readCancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.conn = c
	m.cancel = readCancel
	m.gen++
	gen := m.gen
	m.setState(StateConnected)
	m.mu.Unlock()

	m.log.Info("websocket connected", zap.String("url", m.url))
	go m.readPump(readCtx, c, gen)
}

func (m *Manager) readPump(ctx context.Context, c *websocket.Conn, gen int) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			m.dropConn(c, gen, err)
			return
		}
		m.onEvent(protocol.Decode(data))
	}
}

// dropConn transitions to disconnected, unless a newer connection already
// replaced this one.
func (m *Manager) dropConn(c *websocket.Conn, gen int, err error) {
	_ = c.Close(websocket.StatusNormalClosure, "")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateConnected {
		return
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		m.log.Info("websocket closed")
	default:
		m.log.Warn("websocket read failed", zap.Error(err))
	}
	m.conn = nil
	m.setState(StateDisconnected)
}

// Send serializes and writes a command. Dropped, not queued, while the
// socket is down; the caller owns any REST fallback.
func (m *Manager) Send(cmd protocol.Command) {
	m.mu.Lock()
	c := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected || c == nil {
		m.log.Debug("dropping command while disconnected")
		return
	}

	data, err := protocol.Encode(cmd)
	if err != nil {
		m.log.Warn("encoding command failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		m.log.Warn("websocket write failed", zap.Error(err))
	}
}

// Close tears the connection down and returns to StateDisconnected.
func (m *Manager) Close() {
	m.mu.Lock()
	c := m.conn
	cancel := m.cancel
	m.conn = nil
	m.cancel = nil
	m.gen++
	if m.state != StateDisconnected {
		m.setState(StateDisconnected)
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		_ = c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// Watch is the level-triggered reconnect loop: whenever the state is
// disconnected it retries Connect with capped exponential backoff and
// jitter, resetting the backoff after a successful connect. Runs until the
// context is cancelled.
func (m *Manager) Watch(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		switch m.State() {
		case StateDisconnected:
			m.Connect(ctx)
			if m.State() == StateConnected {
				backoff = initialBackoff
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter(backoff)):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		default:
			select {
			case <-ctx.Done():
				return
			case <-m.notify:
			}
		}
	}
}

// jitter spreads retries by ±20% so reconnecting clients don't stampede.
func jitter(d time.Duration) time.Duration {
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}
