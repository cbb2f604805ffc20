package game

import "errors"

var ErrWrongPhase = errors.New("wrong_phase")
var ErrNotYourTurn = errors.New("not_your_turn")
var ErrNotInGame = errors.New("not_in_game")
var ErrCardNotInHand = errors.New("card_not_in_hand")
var ErrIllegalRank = errors.New("illegal_rank")
var ErrEmptyThrow = errors.New("empty_throw")
var ErrSelfDoubt = errors.New("self_doubt")

// RuleSet maps rule name to enabled. The fixed rules are always on; optional
// toggles are negotiated in the lobby before the deal.
type RuleSet map[string]bool

const (
	RuleEightCut   = "8-cut"
	RuleJackBack   = "11-back"
	RuleRevolution = "revolution"

	RuleFourStop           = "4-stop"
	RuleFiveSkip           = "5-skip"
	RuleSevenPass          = "7-pass"
	RuleNineReverse        = "9-reverse"
	RuleTenDiscard         = "10-discard"
	RuleGrandRevolution    = "grand-revolution"
	RuleUnderdogRevolution = "underdog-revolution"
)

var fixedRules = []string{RuleEightCut, RuleJackBack, RuleRevolution}

var optionalRules = []string{
	RuleFourStop,
	RuleFiveSkip,
	RuleSevenPass,
	RuleNineReverse,
	RuleTenDiscard,
	RuleGrandRevolution,
	RuleUnderdogRevolution,
}

// NewRuleSet builds the game-time rule set from lobby toggles. Unknown names
// are dropped; the fixed rules are forced on regardless of the payload.
func NewRuleSet(toggles map[string]bool) RuleSet {
	rs := RuleSet{}
	for _, name := range optionalRules {
		rs[name] = toggles[name]
	}
	for _, name := range fixedRules {
		rs[name] = true
	}
	return rs
}

func (rs RuleSet) Enabled(name string) bool {
	return rs[name]
}
