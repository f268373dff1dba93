package tactics

import "github.com/notnil/chess"

// Phase is the coarse game phase used for depth selection.
type Phase int

const (
	PhaseOpening Phase = iota
	PhaseMiddlegame
	PhaseEndgame
)

func (p Phase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseMiddlegame:
		return "middlegame"
	case PhaseEndgame:
		return "endgame"
	default:
		return "unknown"
	}
}

// PhaseOf classifies a position. Endgame is decided by remaining material,
// opening by move number.
func PhaseOf(pos *chess.Position, plyIndex int) Phase {
	pieces := 0
	queens := 0
	for _, piece := range pos.Board().SquareMap() {
		pieces++
		if piece.Type() == chess.Queen {
			queens++
		}
	}
	if pieces <= 12 || (queens == 0 && pieces <= 16) {
		return PhaseEndgame
	}
	fullMove := plyIndex/2 + 1
	if fullMove <= 10 {
		return PhaseOpening
	}
	return PhaseMiddlegame
}

// Skip reasons reported per ply.
const (
	SkipOpening       = "opening"
	SkipLowComplexity = "low_complexity"
)

// Budget is the analysis intensity chosen for one ply.
type Budget struct {
	Skip       bool
	SkipReason string
	Depth      int
	MultiPV    int
	Shallow    bool
}

// BudgetConfig holds the selector's tuning constants.
type BudgetConfig struct {
	OpeningSkipPlies int
	PretagDepth      int
	OpeningDepth     int
	MiddlegameDepth  int
	EndgameDepth     int
	LowBranching     int
	HighBranching    int
	WideMultiPV      int
}

// BudgetInput is everything the selector is allowed to look at. Selection
// is a pure function of these four values.
type BudgetInput struct {
	PlyIndex  int
	Phase     Phase
	Branching int
	HasPretag bool
}

type budgetRule struct {
	name  string
	apply func(cfg BudgetConfig, in BudgetInput, b *Budget) bool
}

// The rule order is the precedence order: the first rule that returns true
// decides and the rest are never consulted.
var budgetRules = []budgetRule{
	{
		name: "opening-skip",
		apply: func(cfg BudgetConfig, in BudgetInput, b *Budget) bool {
			if in.PlyIndex < cfg.OpeningSkipPlies {
				b.Skip = true
				b.SkipReason = SkipOpening
				return true
			}
			return false
		},
	},
	{
		name: "pretag-shallow",
		apply: func(cfg BudgetConfig, in BudgetInput, b *Budget) bool {
			if in.HasPretag {
				b.Depth = cfg.PretagDepth
				b.MultiPV = 1
				b.Shallow = true
				return true
			}
			return false
		},
	},
	{
		name: "phase-depth",
		apply: func(cfg BudgetConfig, in BudgetInput, b *Budget) bool {
			switch in.Phase {
			case PhaseOpening:
				b.Depth = cfg.OpeningDepth
			case PhaseEndgame:
				b.Depth = cfg.EndgameDepth
			default:
				b.Depth = cfg.MiddlegameDepth
			}
			return false
		},
	},
	{
		name: "low-complexity-skip",
		apply: func(cfg BudgetConfig, in BudgetInput, b *Budget) bool {
			if in.Branching < cfg.LowBranching {
				b.Skip = true
				b.SkipReason = SkipLowComplexity
				return true
			}
			return false
		},
	},
	{
		name: "multipv-width",
		apply: func(cfg BudgetConfig, in BudgetInput, b *Budget) bool {
			if in.Branching > cfg.HighBranching {
				b.MultiPV = cfg.WideMultiPV
			} else {
				b.MultiPV = 1
			}
			return true
		},
	},
}

// Selector chooses search depth and multiPV width per move.
type Selector struct {
	cfg BudgetConfig
}

// NewSelector creates a Selector with the given constants.
func NewSelector(cfg BudgetConfig) *Selector {
	return &Selector{cfg: cfg}
}

// SelectBudget walks the rule list in order and returns the first decision.
func (s *Selector) SelectBudget(in BudgetInput) Budget {
	var b Budget
	for _, rule := range budgetRules {
		if rule.apply(s.cfg, in, &b) {
			return b
		}
	}
	return b
}
