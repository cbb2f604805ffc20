package session

import "doubt-server/internal/game"

// Outbound event kinds. Every server→client message carries a type
// discriminator; the broadcaster serializes them in the order the room's
// mutations committed.

type ChangeMemberEvent struct {
	Type        string   `json:"type"`
	PlayerCount int      `json:"playerCount"`
	Members     []string `json:"members"`
}

// InitEvent is sent individually at game start; the hand is private.
type InitEvent struct {
	Type  string          `json:"type"`
	Hand  []game.Card     `json:"hand"`
	Rules map[string]bool `json:"rules"`
	Order []string        `json:"order"`
}

type TurnEvent struct {
	Type string `json:"type"`
	Turn string `json:"turn"`
}

// DoubtEvent opens a challenge window. Doubt names the player whose
// declaration is on the table; everyone else may challenge until the window
// closes.
type DoubtEvent struct {
	Type  string `json:"type"`
	Doubt string `json:"doubt"`
}

// PlayEvent is the public half of a throw: the declaration only, never the
// actual cards.
type PlayEvent struct {
	Type          string    `json:"type"`
	PlayerID      string    `json:"playerId"`
	DeclaredRank  game.Rank `json:"declaredRank"`
	DeclaredCount int       `json:"declaredCount"`
}

type PassEvent struct {
	Type         string `json:"type"`
	PlayerID     string `json:"playerId"`
	RoundCleared bool   `json:"roundCleared,omitempty"`
}

type ChallengeEvent struct {
	Type         string `json:"type"`
	ChallengerID string `json:"challengerId"`
}

// ResultEvent closes a doubt window, by challenge or by timeout. Revealed is
// populated only when a challenge forced the actual cards face up.
type ResultEvent struct {
	Type                string      `json:"type"`
	ChallengeSuccessful bool        `json:"challengeSuccessful"`
	TimedOut            bool        `json:"timedOut,omitempty"`
	LoserID             string      `json:"loserId,omitempty"`
	CardsToTake         int         `json:"cardsToTake"`
	LoserLife           int         `json:"loserLife,omitempty"`
	Revealed            []game.Card `json:"revealed,omitempty"`
	Modifiers           []string    `json:"modifiers,omitempty"`
}

type GameOverEvent struct {
	Type    string   `json:"type"`
	Winners []string `json:"winners"`
	Losers  []string `json:"losers"`
}

type ErrorEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

const (
	EventChangeMember = "changeMember"
	EventInit         = "init"
	EventTurn         = "turn"
	EventDoubt        = "doubt"
	EventPlay         = "play"
	EventPass         = "pass"
	EventChallenge    = "challenge"
	EventResult       = "result"
	EventGameOver     = "gameOver"
	EventError        = "error"
)
