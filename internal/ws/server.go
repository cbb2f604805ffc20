package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"doubt-server/internal/game"
	"doubt-server/internal/registry"
	"doubt-server/internal/session"
)

// Identities resolves reserved ids issued by /getid. Unknown ids are turned
// away before the socket upgrade.
type Identities interface {
	DisplayName(ctx context.Context, id string) (string, error)
}

type Server struct {
	coord      *session.Coordinator
	identities Identities
	capacity   int
	upgrader   websocket.Upgrader
}

func NewServer(coord *session.Coordinator, identities Identities, capacity int) *Server {
	return &Server{
		coord:      coord,
		identities: identities,
		capacity:   capacity,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Client is one player's socket. The send channel decouples room broadcasts
// from socket writes; a saturated channel marks the connection dead rather
// than stalling the room.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	id       string
	room     string
	playerID string

	closeOnce sync.Once
}

// Send queues a frame without blocking. It reports false when the client is
// saturated or already closed; the coordinator treats that as a disconnect.
func (c *Client) Send(msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// HandleGame upgrades GET /ws/game?room=&name=&id=. Credentials are checked
// before the upgrade: blank parameters or an unreserved id get 401, a full
// room gets 403. The authoritative capacity check still happens inside the
// join, racing sockets lose there instead.
func (s *Server) HandleGame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	room, name, id := q.Get("room"), q.Get("name"), q.Get("id")
	if room == "" || name == "" || id == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}
	if _, err := s.identities.DisplayName(r.Context(), id); err != nil {
		http.Error(w, "unknown id", http.StatusUnauthorized)
		return
	}
	if s.capacity > 0 && s.coord.MemberCount(room) >= s.capacity {
		http.Error(w, "room is full", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 16), id: registry.NewID(), room: room, playerID: id}
	log.Info().Str("conn_id", client.id).Str("room", room).Str("player", id).Msg("socket open")
	go client.writeLoop()

	if _, err := s.coord.Join(context.Background(), room, id, client); err != nil {
		s.sendError(client, err)
		client.Close()
		return
	}
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	ctx := context.Background()
	defer func() {
		log.Info().Str("conn_id", c.id).Str("room", c.room).Str("player", c.playerID).Msg("socket closed")
		s.coord.Disconnect(ctx, c.room, c.playerID, c)
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		var opErr error
		switch base.Type {
		case "start":
			var m StartMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			opErr = s.coord.Start(ctx, c.room, c.playerID, m.Rules)
		case "play":
			var m PlayMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			if m.DeclaredCount != 0 && m.DeclaredCount != len(m.ActualCards) {
				s.sendError(c, errCountMismatch)
				continue
			}
			opErr = s.coord.Play(ctx, c.room, c.playerID, m.ActualCards, m.DeclaredRank)
		case "pass":
			opErr = s.coord.Pass(ctx, c.room, c.playerID)
		case "challenge":
			opErr = s.coord.Challenge(ctx, c.room, c.playerID)
		default:
			continue
		}
		if opErr != nil {
			log.Debug().Err(opErr).Str("conn_id", c.id).Str("room", c.room).Str("player", c.playerID).Str("op", base.Type).Msg("rejected")
			s.sendError(c, opErr)
		}
	}
}

func (c *Client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

// sendError reports a rejected operation to the offender only; the rest of
// the room never learns a bad frame arrived.
func (s *Server) sendError(c *Client, err error) {
	msg, _ := json.Marshal(session.ErrorEvent{Type: session.EventError, Code: errorCode(err)})
	c.Send(msg)
}

var errCountMismatch = errors.New("count_mismatch")

var knownCodes = []error{
	errCountMismatch,
	game.ErrWrongPhase,
	game.ErrNotYourTurn,
	game.ErrNotInGame,
	game.ErrCardNotInHand,
	game.ErrIllegalRank,
	game.ErrEmptyThrow,
	game.ErrSelfDoubt,
	session.ErrNotLeader,
	session.ErrGameRunning,
	session.ErrGameNotRunning,
	session.ErrTooFewPlayers,
}

func errorCode(err error) string {
	for _, known := range knownCodes {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "invalid_action"
}
