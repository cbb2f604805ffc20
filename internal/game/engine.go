package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Engine drives the throw/doubt state machine for one room. It owns no
// goroutines and does no I/O; the session coordinator serializes access.
type Engine struct {
	State *State
}

func NewEngine(rules RuleSet, members []string) (*Engine, error) {
	return NewEngineWithRand(rules, members, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewEngineWithRand(rules RuleSet, members []string, rnd *rand.Rand) (*Engine, error) {
	if len(members) < MinPlayers || len(members) > MaxPlayers {
		return nil, fmt.Errorf("cannot start with %d players", len(members))
	}
	deck := NewDeck()
	deck.ShuffleWith(rnd)
	hands, err := deck.DealRoundRobin(len(members))
	if err != nil {
		return nil, err
	}

	order := append([]string(nil), members...)
	rnd.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	players := make(map[string]*PlayerState, len(members))
	for i, id := range members {
		players[id] = &PlayerState{ID: id, Life: StartingLife, Hand: hands[i]}
	}

	return &Engine{State: &State{
		Rules:   rules,
		Phase:   PhaseThrow,
		Order:   order,
		Players: players,
	}}, nil
}

type ThrowResult struct {
	Player        string
	DeclaredRank  Rank
	DeclaredCount int
	WentOut       bool
	GameOver      bool
	NextTurn      string
}

// Throw plays actual cards face down under a declared rank. An emptying hand
// records the thrower as a winner on the spot and skips the doubt window; the
// recorded win cannot be challenged away afterwards.
func (e *Engine) Throw(player string, actual []Card, declared Rank) (*ThrowResult, error) {
	s := e.State
	if s.Phase != PhaseThrow {
		return nil, ErrWrongPhase
	}
	if !s.Active(player) {
		return nil, ErrNotInGame
	}
	if s.CurrentPlayer() != player {
		return nil, ErrNotYourTurn
	}
	if len(actual) == 0 {
		return nil, ErrEmptyThrow
	}
	if declared < Ace || declared > King {
		return nil, ErrIllegalRank
	}
	if s.RoundRank != RankJoker && declared != s.NextDeclarableRank() {
		return nil, ErrIllegalRank
	}

	hand, err := removeCards(s.Players[player].Hand, actual)
	if err != nil {
		return nil, err
	}
	s.Players[player].Hand = hand

	s.Pile = append(s.Pile, actual...)
	s.ActualCards = append([]Card(nil), actual...)
	s.DeclaredRank = declared
	s.DeclaredCount = len(actual)
	s.RoundRank = declared
	s.LastPlayer = player
	s.DoubtUsed = false
	s.passCount = 0

	res := &ThrowResult{Player: player, DeclaredRank: declared, DeclaredCount: len(actual)}
	if len(hand) == 0 {
		res.WentOut = true
		s.recordWinner(player)
		s.clearDeclaration()
		if s.Phase == PhaseGameOver {
			res.GameOver = true
			return res, nil
		}
		s.Turn = s.advance(s.indexOf(player))
		res.NextTurn = s.CurrentPlayer()
		return res, nil
	}

	s.Phase = PhaseDoubt
	return res, nil
}

type PassResult struct {
	Player       string
	RoundCleared bool
	NextTurn     string
}

// Pass cedes the turn. When everyone else has passed since the last throw the
// pile settles unresolved and the last thrower leads a fresh round.
func (e *Engine) Pass(player string) (*PassResult, error) {
	s := e.State
	if s.Phase != PhaseThrow {
		return nil, ErrWrongPhase
	}
	if !s.Active(player) {
		return nil, ErrNotInGame
	}
	if s.CurrentPlayer() != player {
		return nil, ErrNotYourTurn
	}

	s.passCount++
	s.Turn = s.advance(s.Turn)

	res := &PassResult{Player: player}
	if s.RoundRank != RankJoker && s.roundPassedAround() {
		s.clearRound()
		if s.Active(s.LastPlayer) {
			s.Turn = s.indexOf(s.LastPlayer)
		}
		res.RoundCleared = true
	}
	res.NextTurn = s.CurrentPlayer()
	return res, nil
}

// roundPassedAround reports that every other active player declined the
// standing pile. The wrap test against LastPlayer handles the normal case;
// the pass counter covers a thrower who already left the rotation.
func (s *State) roundPassedAround() bool {
	if s.Active(s.LastPlayer) {
		return s.CurrentPlayer() == s.LastPlayer
	}
	return s.passCount >= s.ActiveCount()
}

type DoubtResult struct {
	Challenger string
	Success    bool
	Loser      string
	Revealed   []Card
	CardsTaken int
	LoserLife  int
	Eliminated bool
	Modifiers  []string
	GameOver   bool
	NextTurn   string
}

// Doubt resolves a challenge against the standing declaration. The first
// challenge wins the race; a repeat while resolved returns (nil, nil).
func (e *Engine) Doubt(challenger string) (*DoubtResult, error) {
	s := e.State
	if s.Phase != PhaseDoubt {
		return nil, ErrWrongPhase
	}
	if !s.Active(challenger) {
		return nil, ErrNotInGame
	}
	if challenger == s.LastPlayer {
		return nil, ErrSelfDoubt
	}
	if s.DoubtUsed {
		return nil, nil
	}
	s.DoubtUsed = true

	thrower := s.LastPlayer
	revealed := append([]Card(nil), s.ActualCards...)
	success := false
	for _, c := range revealed {
		if !c.Matches(s.DeclaredRank) {
			success = true
			break
		}
	}
	loser := challenger
	if success {
		loser = thrower
	}

	res := &DoubtResult{
		Challenger: challenger,
		Success:    success,
		Loser:      loser,
		Revealed:   revealed,
		CardsTaken: len(s.Pile),
	}

	lp := s.Players[loser]
	lp.Hand = append(lp.Hand, s.Pile...)
	s.Pile = nil
	s.clearDeclaration()
	s.clearRound()

	lp.Life--
	res.LoserLife = lp.Life
	if lp.Life <= 0 {
		res.Eliminated = true
		s.recordLoser(loser)
	}

	res.Modifiers = s.applyRevealed(thrower, revealed, !success)

	if s.Phase == PhaseGameOver {
		res.GameOver = true
		return res, nil
	}

	// The challenge loser leads the next round; a flow modifier may have
	// handed the lead back to the thrower instead.
	lead := loser
	if contains(res.Modifiers, RuleEightCut) || contains(res.Modifiers, RuleTenDiscard) {
		lead = thrower
	}
	if s.Active(lead) {
		s.Turn = s.indexOf(lead)
	} else {
		s.Turn = s.nextActiveIndex(s.indexOf(lead))
	}
	res.NextTurn = s.CurrentPlayer()
	return res, nil
}

type TimeoutResult struct {
	NextTurn string
}

// ResolveDoubtTimeout lets an unchallenged declaration stand: the pile stays
// face down and the turn moves past the thrower. Returns nil when the phase
// already moved on (stale timer).
func (e *Engine) ResolveDoubtTimeout() *TimeoutResult {
	s := e.State
	if s.Phase != PhaseDoubt {
		return nil
	}
	s.clearDeclaration()
	s.passCount = 0
	s.Phase = PhaseThrow
	s.Turn = s.advance(s.indexOf(s.LastPlayer))
	return &TimeoutResult{NextTurn: s.CurrentPlayer()}
}

type DropResult struct {
	Player   string
	GameOver bool
	NextTurn string
}

// DropPlayer forfeits a disconnected player mid-game. Their hand settles out
// of play; a declaration they left standing resolves as unchallenged.
func (e *Engine) DropPlayer(player string) *DropResult {
	s := e.State
	if s.Phase == PhaseGameOver || !s.Active(player) {
		return nil
	}

	if s.Phase == PhaseDoubt {
		if s.LastPlayer == player {
			e.ResolveDoubtTimeout()
		} else if s.ActiveCount() == 2 {
			// nobody left to challenge
			e.ResolveDoubtTimeout()
		}
	}

	p := s.Players[player]
	s.Discarded = append(s.Discarded, p.Hand...)
	p.Hand = nil
	s.recordLoser(player)

	res := &DropResult{Player: player}
	if s.Phase == PhaseGameOver {
		res.GameOver = true
		return res
	}
	if !s.Active(s.CurrentPlayer()) {
		s.Turn = s.nextActiveIndex(s.Turn)
	}
	res.NextTurn = s.CurrentPlayer()
	return res
}

// clearDeclaration drops the challenge window state. Thrown cards already sit
// in the pile.
func (s *State) clearDeclaration() {
	s.DeclaredRank = RankJoker
	s.DeclaredCount = 0
	s.ActualCards = nil
	s.DoubtUsed = false
	if s.Phase == PhaseDoubt {
		s.Phase = PhaseThrow
	}
}

// clearRound settles the pile and unwinds the round-scoped modifiers.
func (s *State) clearRound() {
	s.Discarded = append(s.Discarded, s.Pile...)
	s.Pile = nil
	s.RoundRank = RankJoker
	s.passCount = 0
	s.Flags.JackBack = false
	if s.Flags.NineBack {
		s.Flags.Reversed = !s.Flags.Reversed
		s.Flags.NineBack = false
	}
}

func (s *State) recordWinner(player string) {
	if contains(s.Winners, player) {
		return
	}
	s.Winners = append(s.Winners, player)
	s.finishIfDecided(false)
}

func (s *State) recordLoser(player string) {
	if contains(s.Losers, player) {
		return
	}
	s.Losers = append(s.Losers, player)
	s.finishIfDecided(true)
}

// finishIfDecided ends the game once a single active player remains. The
// survivor of eliminations wins; the straggler behind everyone's won hands
// loses.
func (s *State) finishIfDecided(byElimination bool) {
	if s.ActiveCount() > 1 {
		return
	}
	for _, id := range s.Order {
		if s.Active(id) {
			if byElimination {
				s.Winners = append(s.Winners, id)
			} else {
				s.Losers = append(s.Losers, id)
			}
		}
	}
	s.Phase = PhaseGameOver
}

// applyRevealed applies rule modifiers derived from revealed actual cards.
// Direction and revolution effects fire on any reveal; flow effects (round
// cut, skip, pass-a-card) only when the stood declaration was truthful.
func (s *State) applyRevealed(thrower string, revealed []Card, truthful bool) []string {
	var fired []string
	seen := map[Rank]bool{}
	for _, c := range revealed {
		seen[c.Rank] = true
	}

	if seen[Jack] && s.Rules.Enabled(RuleJackBack) {
		s.Flags.JackBack = !s.Flags.JackBack
		fired = append(fired, RuleJackBack)
	}
	if seen[9] && s.Rules.Enabled(RuleNineReverse) {
		s.Flags.NineBack = !s.Flags.NineBack
		s.Flags.Reversed = !s.Flags.Reversed
		fired = append(fired, RuleNineReverse)
	}

	if name := s.revolutionKind(thrower, revealed); name != "" {
		s.Flags.Revolution = !s.Flags.Revolution
		fired = append(fired, name)
		if name == RuleGrandRevolution {
			for _, id := range s.Order {
				if s.Active(id) {
					s.Players[id].Life = StartingLife
				}
			}
		}
	}

	if !truthful {
		return fired
	}

	if seen[8] && s.Rules.Enabled(RuleEightCut) {
		fired = append(fired, RuleEightCut)
	}
	if seen[10] && s.Rules.Enabled(RuleTenDiscard) {
		fired = append(fired, RuleTenDiscard)
	}
	if seen[4] && s.Rules.Enabled(RuleFourStop) {
		fired = append(fired, RuleFourStop)
	}
	if seen[5] && s.Rules.Enabled(RuleFiveSkip) {
		s.SkipNext = true
		fired = append(fired, RuleFiveSkip)
	}
	if seen[7] && s.Rules.Enabled(RuleSevenPass) && s.Active(thrower) {
		th := s.Players[thrower]
		if len(th.Hand) > 0 {
			next := s.Order[s.nextActiveIndex(s.indexOf(thrower))]
			if next != thrower {
				s.Players[next].Hand = append(s.Players[next].Hand, th.Hand[0])
				th.Hand = th.Hand[1:]
				fired = append(fired, RuleSevenPass)
			}
		}
	}
	return fired
}

// revolutionKind classifies a revealed throw as a revolution trigger.
func (s *State) revolutionKind(thrower string, revealed []Card) string {
	ranks := map[Rank]int{}
	jokers := 0
	for _, c := range revealed {
		if c.IsJoker() {
			jokers++
			continue
		}
		ranks[c.Rank]++
	}
	top := 0
	for _, n := range ranks {
		if n > top {
			top = n
		}
	}
	switch {
	case len(revealed) == 4 && top == 4 && s.Rules.Enabled(RuleRevolution):
		return RuleRevolution
	case len(revealed) == 4 && jokers == 1 && top == 3 && s.Rules.Enabled(RuleGrandRevolution):
		return RuleGrandRevolution
	case len(revealed) == 3 && top == 3 && s.Rules.Enabled(RuleUnderdogRevolution) && s.hasFewestCards(thrower):
		return RuleUnderdogRevolution
	}
	return ""
}

func (s *State) hasFewestCards(player string) bool {
	p, ok := s.Players[player]
	if !ok {
		return false
	}
	for _, id := range s.Order {
		if id == player || !s.Active(id) {
			continue
		}
		if len(s.Players[id].Hand) < len(p.Hand) {
			return false
		}
	}
	return true
}

// removeCards takes each of wanted out of hand as a multiset, failing when
// any card is absent.
func removeCards(hand []Card, wanted []Card) ([]Card, error) {
	out := append([]Card(nil), hand...)
	for _, w := range wanted {
		found := -1
		for i, c := range out {
			if c == w {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, ErrCardNotInHand
		}
		out = append(out[:found], out[found+1:]...)
	}
	return out, nil
}
