package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"doubt-server/internal/game"
	"doubt-server/internal/ws"
)

type event struct {
	Type         string      `json:"type"`
	Members      []string    `json:"members"`
	PlayerCount  int         `json:"playerCount"`
	Hand         []game.Card `json:"hand"`
	Order        []string    `json:"order"`
	Turn         string      `json:"turn"`
	Doubt        string      `json:"doubt"`
	PlayerID     string      `json:"playerId"`
	DeclaredRank game.Rank   `json:"declaredRank"`
	RoundCleared bool        `json:"roundCleared"`
	LoserID      string      `json:"loserId"`
	Revealed     []game.Card `json:"revealed"`
	Code         string      `json:"code"`
	Winners      []string    `json:"winners"`
	Losers       []string    `json:"losers"`
}

// bot plays from what it believes its hand is. The pile a loser takes is
// mostly face down, so the belief drifts; a rejected play falls back to pass
// and lets the server stay authoritative.
type bot struct {
	conn *websocket.Conn
	rnd  *rand.Rand

	id           string
	hand         []game.Card
	lastDeclared game.Rank
	lastThrown   []game.Card
	startAt      int
}

func main() {
	base := getenv("SERVER_URL", "http://localhost:8080")
	name := getenv("BOT_NAME", "bot")
	room := getenv("BOT_ROOM", "lobby")
	startAt, _ := strconv.Atoi(getenv("BOT_START_PLAYERS", "0"))

	id, err := reserveID(base, name, room)
	if err != nil {
		log.Fatal(err)
	}

	wsBase := "ws" + base[len("http"):]
	u := fmt.Sprintf("%s/ws/game?room=%s&name=%s&id=%s",
		wsBase, url.QueryEscape(room), url.QueryEscape(name), url.QueryEscape(id))
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	b := &bot{
		conn:    conn,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		id:      id,
		startAt: startAt,
	}
	b.run()
}

func reserveID(base, name, room string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/getid?name=%s&room=%s", base, url.QueryEscape(name), url.QueryEscape(room)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("getid status %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (b *bot) run() {
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "changeMember":
			if b.startAt > 0 && ev.PlayerCount >= b.startAt && len(ev.Members) > 0 && ev.Members[0] == b.id {
				b.send(ws.StartMessage{Type: "start"})
			}
		case "init":
			b.hand = ev.Hand
			b.lastDeclared = 0
			log.Printf("dealt %d cards", len(b.hand))
		case "turn":
			if ev.Turn == b.id {
				b.takeTurn()
			}
		case "play":
			b.lastDeclared = ev.DeclaredRank
			if ev.PlayerID == b.id {
				b.hand = removeCards(b.hand, b.lastThrown)
			}
		case "pass":
			if ev.RoundCleared {
				b.lastDeclared = 0
			}
		case "doubt":
			if ev.Doubt != b.id && b.rnd.Intn(4) == 0 {
				b.send(ws.ChallengeMessage{Type: "challenge"})
			}
		case "result":
			b.lastDeclared = 0
			if ev.LoserID == b.id {
				// only the revealed throw is known; the rest of the pile
				// arrives face down
				b.hand = append(b.hand, ev.Revealed...)
			}
		case "error":
			log.Printf("rejected: %s", ev.Code)
			b.lastThrown = nil
			b.send(ws.PassMessage{Type: "pass"})
		case "gameOver":
			log.Printf("game over: winners=%v losers=%v", ev.Winners, ev.Losers)
			b.lastDeclared = 0
		}
	}
}

func (b *bot) takeTurn() {
	if len(b.hand) == 0 {
		b.send(ws.PassMessage{Type: "pass"})
		return
	}

	card := b.hand[b.rnd.Intn(len(b.hand))]
	declared := card.Rank
	if declared == game.RankJoker {
		declared = game.Rank(1 + b.rnd.Intn(13))
	}
	if b.lastDeclared != 0 {
		// the round is anchored; bluff the next step up and eat the doubt
		// if the table calls it
		declared = b.lastDeclared%13 + 1
	}

	b.lastThrown = []game.Card{card}
	b.send(ws.PlayMessage{Type: "play", ActualCards: b.lastThrown, DeclaredRank: declared})
}

func (b *bot) send(m any) {
	payload, _ := json.Marshal(m)
	_ = b.conn.WriteMessage(websocket.TextMessage, payload)
}

func removeCards(hand, thrown []game.Card) []game.Card {
	out := hand[:0:0]
	for _, c := range hand {
		matched := false
		for i, t := range thrown {
			if t == c {
				matched = true
				thrown = append(thrown[:i], thrown[i+1:]...)
				break
			}
		}
		if !matched {
			out = append(out, c)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
