package ws

import "doubt-server/internal/game"

// Client→server messages. Every frame carries a type discriminator; unknown
// types are dropped without closing the socket.

type StartMessage struct {
	Type  string          `json:"type"`
	Rules map[string]bool `json:"rules,omitempty"`
}

// PlayMessage throws cards face down. Only the declared rank can be a lie:
// DeclaredCount, when present, must equal the number of cards thrown.
type PlayMessage struct {
	Type          string      `json:"type"`
	ActualCards   []game.Card `json:"actualCards"`
	DeclaredRank  game.Rank   `json:"declaredRank"`
	DeclaredCount int         `json:"declaredCount,omitempty"`
}

type PassMessage struct {
	Type string `json:"type"`
}

type ChallengeMessage struct {
	Type string `json:"type"`
}
