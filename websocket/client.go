package websocket

import (
	"context"
	"sync"
	"time"

	"safehorizon/models"
	"safehorizon/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Clients only send ping
	// and acknowledgment frames.
	maxMessageSize = 4096

	// Outbound frame buffer per session.
	sendBufferSize = 256
)

// Session close reasons, mapped onto websocket close codes.
const (
	CloseClientGone     = websocket.CloseNormalClosure    // 1000
	CloseServerShutdown = websocket.CloseGoingAway        // 1001
	ClosePolicy         = websocket.ClosePolicyViolation  // 1008
	CloseIdle           = websocket.CloseInternalServerErr // 1011
)

// Session is one authenticated persistent client connection. It has
// exactly one writer (WritePump, draining the outbound queue) and one
// reader (ReadPump, handling the literal ping probe). Hub events are
// enqueued by the subscription handler and never block the hub.
type Session struct {
	conn    *websocket.Conn
	gateway *Gateway

	sessionID string
	userID    string
	role      string
	channels  []string

	tokenExpiry time.Time
	idleTimeout time.Duration

	send chan []byte

	// lastActivity is touched by both pumps; read by the idle check on
	// the writer goroutine.
	lastActivity time.Time
	activityCh   chan struct{}

	subscriptions []*Subscription
	limiter       *utils.RateLimiter

	teardownOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(conn *websocket.Conn, gateway *Gateway, userID, role string, channels []string, tokenExpiry time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		conn:         conn,
		gateway:      gateway,
		sessionID:    utils.GenerateUUID(),
		userID:       userID,
		role:         role,
		channels:     channels,
		tokenExpiry:  tokenExpiry,
		idleTimeout:  gateway.idleTimeout,
		send:         make(chan []byte, sendBufferSize),
		lastActivity: time.Now(),
		activityCh:   make(chan struct{}, 1),
		limiter:      utils.NewRateLimiter(120, time.Minute),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Enqueue hands a pre-encoded frame to the session's writer. It is
// non-blocking: a full buffer drops the frame, matching the hub's
// at-most-once semantics.
func (s *Session) Enqueue(frame []byte) {
	select {
	case s.send <- frame:
	default:
		logrus.Warnf("session %s: send buffer full, dropping frame", s.sessionID)
	}
}

// subscribe attaches the session to its hub channels. Handlers only
// enqueue; encoding happens here so the hub goroutine stays cheap.
func (s *Session) subscribe() {
	for _, channel := range s.channels {
		sub := s.gateway.hub.Subscribe(channel, func(event models.Event) {
			frame, err := EncodeFrame(event)
			if err != nil {
				logrus.Errorf("session %s: failed to encode event: %v", s.sessionID, err)
				return
			}
			s.Enqueue(frame)
		})
		s.subscriptions = append(s.subscriptions, sub)
	}
}

// ReadPump consumes client frames: the literal ping probe and any
// future client messages. It drives connection teardown on error.
func (s *Session) ReadPump() {
	defer s.teardown()

	s.conn.SetReadLimit(maxMessageSize)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logrus.Warnf("session %s read error: %v", s.sessionID, err)
			}
			return
		}

		s.touch()

		if !s.limiter.Allow() {
			continue
		}

		if string(message) == framePing {
			s.Enqueue([]byte(framePong))
		}
	}
}

// WritePump is the session's single writer. Besides draining the
// outbound queue it owns the idle timer and the token-expiry timer.
func (s *Session) WritePump() {
	idleTicker := time.NewTicker(s.idleTimeout / 4)
	defer func() {
		idleTicker.Stop()
		s.teardown()
	}()

	expiryTimer := time.NewTimer(time.Until(s.tokenExpiry))
	defer expiryTimer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case frame, ok := <-s.send:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logrus.Warnf("session %s write error: %v", s.sessionID, err)
				return
			}
			s.touch()

		case <-expiryTimer.C:
			// Token expired mid-stream: no further events, policy close.
			s.close(ClosePolicy, "token expired")
			return

		case <-idleTicker.C:
			if time.Since(s.lastActivityTime()) >= s.idleTimeout {
				s.close(CloseIdle, "idle timeout")
				return
			}
		}
	}
}

func (s *Session) touch() {
	select {
	case s.activityCh <- struct{}{}:
	default:
	}
	s.lastActivity = time.Now()
}

func (s *Session) lastActivityTime() time.Time {
	// Drain the activity notification; lastActivity is monotonically
	// refreshed by both pumps and an off-by-one read only delays the
	// idle close by a tick.
	select {
	case <-s.activityCh:
	default:
	}
	return s.lastActivity
}

// close writes a close frame with the given code, then tears down.
func (s *Session) close(code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.CloseMessage, message); err != nil {
		logrus.Debugf("session %s close write failed: %v", s.sessionID, err)
	}
	s.cancel()
}

// teardown is idempotent; whichever pump exits first unsubscribes the
// session from the hub (within the cancellation deadline) and closes
// the socket.
func (s *Session) teardown() {
	s.cancel()

	s.teardownOnce.Do(func() {
		for _, sub := range s.subscriptions {
			s.gateway.hub.Unsubscribe(sub)
		}
		s.subscriptions = nil

		s.gateway.remove(s)
		s.conn.Close()

		logrus.Infof("session closed: %s (user %s)", s.sessionID, s.userID)
	})
}
