package game

type Phase string

const (
	PhaseThrow    Phase = "throw"
	PhaseDoubt    Phase = "doubt"
	PhaseGameOver Phase = "game_over"
)

const (
	MinPlayers   = 2
	MaxPlayers   = 6
	StartingLife = 3
)

type PlayerState struct {
	ID   string
	Life int
	Hand []Card
}

// ModifierFlags is the modifier state layered on the base machine. Revolution
// persists until toggled again; JackBack and NineBack last until the round's
// pile is cleared. Reversed is the turn traversal direction.
type ModifierFlags struct {
	Revolution bool
	JackBack   bool
	NineBack   bool
	Reversed   bool
}

// State is the authoritative game state for one room. Only the Engine mutates
// it, under the room's serialization token.
type State struct {
	Rules   RuleSet
	Phase   Phase
	Order   []string
	Turn    int
	Players map[string]*PlayerState

	// Declaration under challenge; valid only while Phase == PhaseDoubt.
	LastPlayer    string
	DeclaredRank  Rank
	DeclaredCount int
	ActualCards   []Card
	DoubtUsed     bool

	// RoundRank is the rank the current round has reached; zero before the
	// round's first throw and after the pile clears.
	RoundRank Rank

	Pile      []Card // face-down unresolved throws, taken whole by a challenge loser
	Discarded []Card // settled out of play

	Flags    ModifierFlags
	SkipNext bool

	// passCount counts consecutive passes since the last throw, for wrap
	// detection when the last thrower has already left the rotation.
	passCount int

	Winners []string
	Losers  []string
}

func (s *State) Active(player string) bool {
	if _, ok := s.Players[player]; !ok {
		return false
	}
	return !contains(s.Winners, player) && !contains(s.Losers, player)
}

func (s *State) ActiveCount() int {
	n := 0
	for _, id := range s.Order {
		if s.Active(id) {
			n++
		}
	}
	return n
}

func (s *State) CurrentPlayer() string {
	return s.Order[s.Turn]
}

// nextActiveIndex walks Order from idx in the current traversal direction and
// returns the first still-active slot. Callers guarantee at least one exists.
func (s *State) nextActiveIndex(idx int) int {
	n := len(s.Order)
	step := 1
	if s.Flags.Reversed {
		step = n - 1
	}
	for i := 0; i < n; i++ {
		idx = (idx + step) % n
		if s.Active(s.Order[idx]) {
			return idx
		}
	}
	return idx
}

// advance moves the turn pointer one active step, consuming a pending
// five-skip.
func (s *State) advance(idx int) int {
	idx = s.nextActiveIndex(idx)
	if s.SkipNext {
		s.SkipNext = false
		idx = s.nextActiveIndex(idx)
	}
	return idx
}

func (s *State) indexOf(player string) int {
	for i, id := range s.Order {
		if id == player {
			return i
		}
	}
	return -1
}

// declarationInverted reports whether the declared-rank sequence currently
// runs downward. Each active inversion flips it.
func (s *State) declarationInverted() bool {
	return s.Flags.Revolution != (s.Flags.JackBack != s.Flags.NineBack)
}

// NextDeclarableRank is the only legal declaration while a round is under way,
// one step up (or down when inverted) from the round's rank, wrapping at 13/1.
func (s *State) NextDeclarableRank() Rank {
	if s.RoundRank == RankJoker {
		return RankJoker
	}
	if s.declarationInverted() {
		if s.RoundRank == Ace {
			return King
		}
		return s.RoundRank - 1
	}
	if s.RoundRank == King {
		return Ace
	}
	return s.RoundRank + 1
}

// HandOf returns the player's private hand, nil for unknown players.
func (s *State) HandOf(player string) []Card {
	p, ok := s.Players[player]
	if !ok {
		return nil
	}
	return p.Hand
}

func (s *State) LifeOf(player string) int {
	p, ok := s.Players[player]
	if !ok {
		return 0
	}
	return p.Life
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
