package game

import (
	"fmt"
	"math/rand"
)

type Suit int

type Rank int

const (
	SuitNone Suit = iota
	Spades
	Hearts
	Diamonds
	Clubs
)

const (
	RankJoker Rank = 0
	Ace       Rank = 1
	Jack      Rank = 11
	Queen     Rank = 12
	King      Rank = 13
)

// DeckSize is 13 ranks in 4 suits plus 2 jokers.
const DeckSize = 13*4 + 2

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) IsJoker() bool {
	return c.Rank == RankJoker
}

// Matches reports whether the card satisfies a declared rank. Jokers are wild.
func (c Card) Matches(declared Rank) bool {
	return c.IsJoker() || c.Rank == declared
}

func (c Card) String() string {
	if c.IsJoker() {
		return "Jk"
	}
	r := map[Rank]string{
		Ace: "A", 2: "2", 3: "3", 4: "4", 5: "5", 6: "6", 7: "7", 8: "8", 9: "9", 10: "T", Jack: "J", Queen: "Q", King: "K",
	}[c.Rank]
	s := map[Suit]string{Spades: "s", Hearts: "h", Diamonds: "d", Clubs: "c"}[c.Suit]
	return r + s
}

type Deck struct {
	cards []Card
}

func NewDeck() *Deck {
	cards := make([]Card, 0, DeckSize)
	for s := Spades; s <= Clubs; s++ {
		for r := Ace; r <= King; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	cards = append(cards, Card{Rank: RankJoker}, Card{Rank: RankJoker})
	return &Deck{cards: cards}
}

func (d *Deck) ShuffleWith(rnd *rand.Rand) {
	rnd.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// DealRoundRobin splits the whole deck across n hands, one card at a time.
// Hand sizes differ by at most one.
func (d *Deck) DealRoundRobin(n int) ([][]Card, error) {
	if n < MinPlayers || n > MaxPlayers {
		return nil, fmt.Errorf("cannot deal to %d players", n)
	}
	hands := make([][]Card, n)
	for i, c := range d.cards {
		hands[i%n] = append(hands[i%n], c)
	}
	return hands, nil
}
