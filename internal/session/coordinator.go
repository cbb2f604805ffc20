package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"doubt-server/internal/game"
)

var ErrNotLeader = errors.New("not_leader")
var ErrGameRunning = errors.New("game_running")
var ErrGameNotRunning = errors.New("game_not_running")
var ErrTooFewPlayers = errors.New("too_few_players")

// Conn is a live outbound channel to one player. Send must not block: it
// reports false when the connection is dead or saturated, and the coordinator
// runs the disconnect path for it.
type Conn interface {
	Send(msg []byte) bool
	Close()
}

// Registry is the durable membership store the coordinator reconciles
// against. When the live connection table and the registry disagree, the
// registry wins.
type Registry interface {
	JoinRoom(ctx context.Context, room, playerID string, capacity int) ([]string, error)
	LeaveRoom(ctx context.Context, room, playerID string) ([]string, error)
}

type Config struct {
	Capacity     int
	DoubtTimeout time.Duration
	TurnTimeout  time.Duration
}

// Coordinator orchestrates joins, disconnects, and game operations for all
// rooms. Each room serializes its own mutations; rooms never block each
// other.
type Coordinator struct {
	registry Registry
	cfg      Config

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewCoordinator(reg Registry, cfg Config) *Coordinator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = game.MaxPlayers
	}
	if cfg.DoubtTimeout <= 0 {
		cfg.DoubtTimeout = 5 * time.Second
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 30 * time.Second
	}
	return &Coordinator{registry: reg, cfg: cfg, rooms: map[string]*Room{}}
}

// Room owns one room's authoritative state: the registry-mirrored member
// list, the live connection table, and the running game. All of it is
// guarded by mu, held across registry writes so no second operation can
// interleave with a half-committed membership change.
type Room struct {
	coord *Coordinator
	name  string

	mu      sync.Mutex
	members []string
	conns   map[string]Conn
	engine  *game.Engine

	timer    *time.Timer
	timerGen int
}

func (c *Coordinator) room(name string) *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[name]
	if !ok {
		r = &Room{coord: c, name: name, conns: map[string]Conn{}}
		c.rooms[name] = r
	}
	return r
}

// MemberCount is a cheap pre-upgrade capacity probe. The authoritative check
// happens inside Join under the room lock. Read-only: probing an absent room
// must not allocate one.
func (c *Coordinator) MemberCount(room string) int {
	c.mu.Lock()
	r, ok := c.rooms[room]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Join persists the player into the room's registry row, registers the
// connection, and broadcasts the new member list. The broadcast never
// precedes the durable write.
func (c *Coordinator) Join(ctx context.Context, room, playerID string, conn Conn) ([]string, error) {
	r := c.room(room)
	r.mu.Lock()
	defer r.mu.Unlock()

	members, err := c.registry.JoinRoom(ctx, room, playerID, c.cfg.Capacity)
	if err != nil {
		return nil, err
	}
	r.members = members

	if old, ok := r.conns[playerID]; ok && old != conn {
		old.Close()
	}
	r.conns[playerID] = conn

	log.Info().Str("room", room).Str("player", playerID).Int("members", len(members)).Msg("join")
	r.broadcastLocked(ctx, ChangeMemberEvent{Type: EventChangeMember, PlayerCount: len(members), Members: members})
	return members, nil
}

// Disconnect removes the player from the live table and the registry and
// tells the remainder. Socket errors and closes both land here; a connection
// replaced by a re-join is ignored.
func (c *Coordinator) Disconnect(ctx context.Context, room, playerID string, conn Conn) {
	r := c.room(room)
	r.mu.Lock()
	r.disconnectLocked(ctx, playerID, conn)
	empty := len(r.members) == 0 && len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		c.reapIfEmpty(room)
	}
}

func (r *Room) disconnectLocked(ctx context.Context, playerID string, conn Conn) {
	cur, ok := r.conns[playerID]
	if ok && conn != nil && cur != conn {
		return // already replaced by a newer connection
	}
	if ok {
		delete(r.conns, playerID)
		cur.Close()
	}

	members, err := r.coord.registry.LeaveRoom(ctx, r.name, playerID)
	if err != nil {
		log.Error().Err(err).Str("room", r.name).Str("player", playerID).Msg("registry leave failed")
	} else {
		r.members = members
	}

	log.Info().Str("room", r.name).Str("player", playerID).Int("members", len(r.members)).Msg("disconnect")

	if r.engine != nil {
		wasDoubt := r.engine.State.Phase == game.PhaseDoubt
		if res := r.engine.DropPlayer(playerID); res != nil {
			switch {
			case res.GameOver:
				r.finishGameLocked(ctx)
			case r.engine.State.Phase == game.PhaseThrow:
				// The drop resolved a declaration the player left standing.
				if wasDoubt {
					r.broadcastLocked(ctx, ResultEvent{Type: EventResult, TimedOut: true, CardsToTake: 0})
				}
				r.broadcastTurnLocked(ctx)
			}
			// Phase still Doubt: a bystander left. The armed doubt timer
			// keeps the window live; re-arming the turn timer here would
			// cancel it.
		}
	}

	if len(r.members) > 0 {
		r.broadcastLocked(ctx, ChangeMemberEvent{Type: EventChangeMember, PlayerCount: len(r.members), Members: r.members})
	} else {
		r.stopTimerLocked()
		r.engine = nil
	}
}

func (c *Coordinator) reapIfEmpty(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[room]
	if !ok {
		return
	}
	r.mu.Lock()
	empty := len(r.members) == 0 && len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		delete(c.rooms, room)
	}
}

// Start deals a new game. Only the room leader (first member in join order)
// may start, with at least two members present.
func (c *Coordinator) Start(ctx context.Context, room, playerID string, rules map[string]bool) error {
	r := c.room(room)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil && r.engine.State.Phase != game.PhaseGameOver {
		return ErrGameRunning
	}
	if len(r.members) == 0 || r.members[0] != playerID {
		return ErrNotLeader
	}
	if len(r.members) < game.MinPlayers {
		return ErrTooFewPlayers
	}

	engine, err := game.NewEngine(game.NewRuleSet(rules), r.members)
	if err != nil {
		return err
	}
	r.engine = engine

	log.Info().Str("room", room).Int("players", len(r.members)).Msg("game start")

	st := engine.State
	for _, id := range r.members {
		r.sendToLocked(ctx, id, InitEvent{
			Type:  EventInit,
			Hand:  st.HandOf(id),
			Rules: st.Rules,
			Order: st.Order,
		})
	}
	r.broadcastTurnLocked(ctx)
	return nil
}

// Play routes a throw into the engine and fans out the public declaration.
func (c *Coordinator) Play(ctx context.Context, room, playerID string, actual []game.Card, declared game.Rank) error {
	r := c.room(room)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil {
		return ErrGameNotRunning
	}
	res, err := r.engine.Throw(playerID, actual, declared)
	if err != nil {
		return err
	}

	r.broadcastLocked(ctx, PlayEvent{
		Type:          EventPlay,
		PlayerID:      playerID,
		DeclaredRank:  res.DeclaredRank,
		DeclaredCount: res.DeclaredCount,
	})

	switch {
	case res.GameOver:
		r.finishGameLocked(ctx)
	case res.WentOut:
		r.broadcastTurnLocked(ctx)
	default:
		r.broadcastLocked(ctx, DoubtEvent{Type: EventDoubt, Doubt: playerID})
		r.armTimerLocked(c.cfg.DoubtTimeout, timerDoubt)
	}
	return nil
}

func (c *Coordinator) Pass(ctx context.Context, room, playerID string) error {
	r := c.room(room)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil {
		return ErrGameNotRunning
	}
	res, err := r.engine.Pass(playerID)
	if err != nil {
		return err
	}
	r.broadcastLocked(ctx, PassEvent{Type: EventPass, PlayerID: playerID, RoundCleared: res.RoundCleared})
	r.broadcastTurnLocked(ctx)
	return nil
}

// Challenge resolves a doubt call. A call that lost the race to an earlier
// resolution is dropped silently rather than echoed as an error.
func (c *Coordinator) Challenge(ctx context.Context, room, playerID string) error {
	r := c.room(room)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil {
		return ErrGameNotRunning
	}
	res, err := r.engine.Doubt(playerID)
	if errors.Is(err, game.ErrWrongPhase) {
		return nil
	}
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	r.broadcastLocked(ctx, ChallengeEvent{Type: EventChallenge, ChallengerID: playerID})
	r.broadcastLocked(ctx, ResultEvent{
		Type:                EventResult,
		ChallengeSuccessful: res.Success,
		LoserID:             res.Loser,
		CardsToTake:         res.CardsTaken,
		LoserLife:           res.LoserLife,
		Revealed:            res.Revealed,
		Modifiers:           res.Modifiers,
	})
	if res.GameOver {
		r.finishGameLocked(ctx)
	} else {
		r.broadcastTurnLocked(ctx)
	}
	return nil
}

const (
	timerDoubt = "doubt"
	timerTurn  = "turn"
)

// armTimerLocked replaces the room's pending timer. The generation counter
// makes an already-fired stale callback a no-op.
func (r *Room) armTimerLocked(d time.Duration, kind string) {
	r.timerGen++
	gen := r.timerGen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, func() {
		r.onTimer(gen, kind)
	})
}

func (r *Room) stopTimerLocked() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// onTimer runs on a timer goroutine; it re-checks generation and phase under
// the room lock before acting, so a fire that raced a phase transition does
// nothing.
func (r *Room) onTimer(gen int, kind string) {
	ctx := context.Background()
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen || r.engine == nil {
		return
	}
	st := r.engine.State
	switch kind {
	case timerDoubt:
		if st.Phase != game.PhaseDoubt {
			return
		}
		res := r.engine.ResolveDoubtTimeout()
		if res == nil {
			return
		}
		log.Debug().Str("room", r.name).Msg("doubt window expired")
		r.broadcastLocked(ctx, ResultEvent{Type: EventResult, TimedOut: true, CardsToTake: 0})
		r.broadcastTurnLocked(ctx)
	case timerTurn:
		if st.Phase != game.PhaseThrow {
			return
		}
		player := st.CurrentPlayer()
		res, err := r.engine.Pass(player)
		if err != nil {
			return
		}
		log.Debug().Str("room", r.name).Str("player", player).Msg("turn expired, auto pass")
		r.broadcastLocked(ctx, PassEvent{Type: EventPass, PlayerID: player, RoundCleared: res.RoundCleared})
		r.broadcastTurnLocked(ctx)
	}
}

// broadcastTurnLocked announces the current turn and re-arms the turn timer.
func (r *Room) broadcastTurnLocked(ctx context.Context) {
	st := r.engine.State
	if st.Phase == game.PhaseGameOver {
		return
	}
	r.broadcastLocked(ctx, TurnEvent{Type: EventTurn, Turn: st.CurrentPlayer()})
	r.armTimerLocked(r.coord.cfg.TurnTimeout, timerTurn)
}

func (r *Room) finishGameLocked(ctx context.Context) {
	st := r.engine.State
	log.Info().Str("room", r.name).Strs("winners", st.Winners).Strs("losers", st.Losers).Msg("game over")
	r.broadcastLocked(ctx, GameOverEvent{Type: EventGameOver, Winners: st.Winners, Losers: st.Losers})
	r.stopTimerLocked()
	r.engine = nil
}
