package session

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// broadcastLocked fans an event out to every live connection in the room.
// Callers hold the room lock, so successive broadcasts reach every member's
// send queue in the order the mutations committed. A connection that cannot
// accept the message is cleaned up through the disconnect path without
// affecting delivery to the others.
func (r *Room) broadcastLocked(ctx context.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("room", r.name).Msg("marshal broadcast")
		return
	}
	var failed []string
	for id, conn := range r.conns {
		if !conn.Send(b) {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		log.Warn().Str("room", r.name).Str("player", id).Msg("send failed, dropping connection")
		r.disconnectLocked(ctx, id, nil)
	}
}

// sendToLocked delivers a private event to a single member.
func (r *Room) sendToLocked(ctx context.Context, playerID string, v any) {
	conn, ok := r.conns[playerID]
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("room", r.name).Msg("marshal send")
		return
	}
	if !conn.Send(b) {
		log.Warn().Str("room", r.name).Str("player", playerID).Msg("send failed, dropping connection")
		r.disconnectLocked(ctx, playerID, nil)
	}
}
