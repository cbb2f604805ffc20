package ws

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"doubt-server/internal/game"
	"doubt-server/internal/session"
)

// Every event the server emits must validate against the published protocol
// schema, so clients can codegen against it.
func TestOutboundEventsMatchSchema(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/ws_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("ws_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("ws_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	samples := []any{
		session.ChangeMemberEvent{Type: session.EventChangeMember, PlayerCount: 2, Members: []string{"p1", "p2"}},
		session.InitEvent{
			Type:  session.EventInit,
			Hand:  []game.Card{{Rank: 7, Suit: game.Spades}, {Rank: game.RankJoker, Suit: game.SuitNone}},
			Rules: game.NewRuleSet(map[string]bool{game.RuleFiveSkip: true}),
			Order: []string{"p1", "p2"},
		},
		session.TurnEvent{Type: session.EventTurn, Turn: "p1"},
		session.DoubtEvent{Type: session.EventDoubt, Doubt: "p1"},
		session.PlayEvent{Type: session.EventPlay, PlayerID: "p1", DeclaredRank: 7, DeclaredCount: 2},
		session.PassEvent{Type: session.EventPass, PlayerID: "p2", RoundCleared: true},
		session.ChallengeEvent{Type: session.EventChallenge, ChallengerID: "p2"},
		session.ResultEvent{
			Type:                session.EventResult,
			ChallengeSuccessful: true,
			LoserID:             "p1",
			CardsToTake:         3,
			LoserLife:           2,
			Revealed:            []game.Card{{Rank: 5, Suit: game.Hearts}},
			Modifiers:           []string{game.RuleRevolution},
		},
		session.ResultEvent{Type: session.EventResult, TimedOut: true},
		session.GameOverEvent{Type: session.EventGameOver, Winners: []string{"p1"}, Losers: []string{"p2"}},
		session.ErrorEvent{Type: session.EventError, Code: errorCode(game.ErrNotYourTurn)},
	}

	for i, sample := range samples {
		b, err := json.Marshal(sample)
		if err != nil {
			t.Fatalf("marshal sample %d: %v", i, err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal sample %d: %v", i, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("sample %d (%s) failed schema: %v", i, b, err)
		}
	}
}

// The declaration visible to the room must never carry the face-down cards.
func TestPlayEventHidesActualCards(t *testing.T) {
	b, err := json.Marshal(session.PlayEvent{Type: session.EventPlay, PlayerID: "p1", DeclaredRank: 7, DeclaredCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "suit") || strings.Contains(string(b), "actual") {
		t.Fatalf("play event leaks card data: %s", b)
	}
}
