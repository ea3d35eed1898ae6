package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const sinceReplayLimit = 500

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware; the
		// handshake accepts any origin that got this far.
		return true
	},
}

// Gateway authenticates persistent client sessions and routes them to
// hub channels. Token auth rides the query string because many
// websocket clients cannot set headers on the handshake.
type Gateway struct {
	hub        *Hub
	jwtService *utils.JWTService
	alertRepo  *repositories.AlertRepository

	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewGateway(hub *Hub, jwtService *utils.JWTService, alertRepo *repositories.AlertRepository, idleTimeout time.Duration) *Gateway {
	return &Gateway{
		hub:         hub,
		jwtService:  jwtService,
		alertRepo:   alertRepo,
		idleTimeout: idleTimeout,
		sessions:    make(map[*Session]struct{}),
	}
}

// HandleSubscribe upgrades the connection, authenticates it, replays
// missed alerts when `since` is present, and hands the session to its
// pumps. The session walks connecting → authenticating → subscribed;
// every failure path ends in a policy close (1008).
func (g *Gateway) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("websocket upgrade failed: %v", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		rejectConn(conn, "token required")
		return
	}

	claims, err := g.jwtService.ValidateToken(token)
	if err != nil {
		rejectConn(conn, "invalid token")
		return
	}

	channels, ok := channelsForRole(claims.Role, claims.Subject)
	if !ok {
		rejectConn(conn, "role not permitted")
		return
	}

	session := newSession(conn, g, claims.Subject, claims.Role, channels, claims.ExpiryTime())

	g.mu.Lock()
	g.sessions[session] = struct{}{}
	g.mu.Unlock()

	// Replay bridges the at-most-once gap for short reconnections:
	// missed alerts are emitted before the hub subscription activates,
	// so the first live event follows the last replayed one.
	if since := r.URL.Query().Get("since"); since != "" {
		g.replay(session, since)
	}

	session.subscribe()

	go session.WritePump()
	go session.ReadPump()

	logrus.Infof("session subscribed: %s (user %s, role %s, channels %d)",
		session.sessionID, session.userID, session.role, len(channels))
}

// channelsForRole maps a validated role claim onto hub channels.
// Authorities and admins watch the shared dashboard feed; tourists get
// their private channel plus the public broadcast stream.
func channelsForRole(role, subject string) ([]string, bool) {
	switch role {
	case models.RoleAuthority, models.RoleAdmin:
		return []string{models.ChannelAuthority, models.ChannelSystem}, true
	case models.RoleTourist:
		if subject == "" {
			return nil, false
		}
		return []string{models.TouristChannel(subject), models.ChannelBroadcastsAll}, true
	default:
		return nil, false
	}
}

func (g *Gateway) replay(session *Session, since string) {
	after, err := time.Parse(time.RFC3339, since)
	if err != nil {
		logrus.Warnf("session %s: ignoring malformed since parameter %q", session.sessionID, since)
		return
	}

	touristScope := ""
	if session.role == models.RoleTourist {
		touristScope = session.userID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	alerts, err := g.alertRepo.ListCreatedAfter(ctx, after, touristScope, sinceReplayLimit)
	if err != nil {
		logrus.Errorf("session %s: replay query failed: %v", session.sessionID, err)
		return
	}

	for i := range alerts {
		frame, err := AlertFrame(&alerts[i], alerts[i].CreatedAt)
		if err != nil {
			continue
		}
		session.Enqueue(frame)
	}
}

func (g *Gateway) remove(session *Session) {
	g.mu.Lock()
	delete(g.sessions, session)
	g.mu.Unlock()
}

// Shutdown closes every session with 1001 (server shutdown).
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for session := range g.sessions {
		sessions = append(sessions, session)
	}
	g.mu.Unlock()

	for _, session := range sessions {
		session.close(CloseServerShutdown, "server shutting down")
	}
}

// rejectConn closes a connection that failed authentication before a
// session was created.
func rejectConn(conn *websocket.Conn, reason string) {
	message := websocket.FormatCloseMessage(ClosePolicy, reason)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, message)
	conn.Close()
}
