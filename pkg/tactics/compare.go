package tactics

// ErrorLabel is the discrete tactical quality of a played move.
type ErrorLabel int

const (
	LabelGood ErrorLabel = iota
	LabelInaccuracy
	LabelMistake
	LabelBlunder
)

func (l ErrorLabel) String() string {
	switch l {
	case LabelGood:
		return "good"
	case LabelInaccuracy:
		return "inaccuracy"
	case LabelMistake:
		return "mistake"
	case LabelBlunder:
		return "blunder"
	default:
		return "unknown"
	}
}

// mateValue is the centipawn sentinel a mate-in-N collapses to; closer
// mates score higher.
const mateValue = 30000

// ScoreToCentipawns flattens a cp/mate score into a single comparable
// centipawn value from the same perspective.
func ScoreToCentipawns(s Score) int {
	if s.Kind != "mate" {
		return s.Value
	}
	if s.Value >= 0 {
		return mateValue - s.Value
	}
	return -mateValue - s.Value
}

// LabelCutoffs are the signed centipawn thresholds between labels. A diff
// strictly above Good is good, above Inaccuracy an inaccuracy, above
// Mistake a mistake, anything else a blunder.
type LabelCutoffs struct {
	Good       int
	Inaccuracy int
	Mistake    int
}

// Comparison is the outcome of judging a played move against the engine's
// candidate lines.
type Comparison struct {
	ScoreDiff     int
	Label         ErrorLabel
	ThreatensMate bool
	Forced        bool
}

// Comparator derives score differentials and error labels. Alternatives
// are the engine's ranked lines for the pre-move position, so when the
// played move is the engine's first choice the diff is exactly zero.
type Comparator struct {
	cutoffs     LabelCutoffs
	mateHorizon int
}

// NewComparator creates a Comparator with the given cutoffs and mate
// horizon (plies within which a mate counts as imminent).
func NewComparator(cutoffs LabelCutoffs, mateHorizon int) *Comparator {
	if mateHorizon <= 0 {
		mateHorizon = 5
	}
	return &Comparator{cutoffs: cutoffs, mateHorizon: mateHorizon}
}

// Compare scores the played move against the best alternative. All scores
// must already be in the mover's perspective. A forced move returns the
// no-penalty sentinel regardless of evaluations: with no real alternative
// there is nothing to penalize.
func (c *Comparator) Compare(played Score, alternatives []Score, forced bool) Comparison {
	result := Comparison{Forced: forced}
	result.ThreatensMate = c.mateWithinHorizon(played)
	for _, alt := range alternatives {
		if c.mateWithinHorizon(alt) {
			result.ThreatensMate = true
		}
	}
	if forced {
		return result
	}

	best := ScoreToCentipawns(played)
	for _, alt := range alternatives {
		if cp := ScoreToCentipawns(alt); cp > best {
			best = cp
		}
	}
	result.ScoreDiff = ScoreToCentipawns(played) - best
	result.Label = c.label(result.ScoreDiff)

	// Missing a forced mate is a blunder no matter how small the
	// centipawn delta looks.
	if c.missedMate(played, alternatives) {
		result.Label = LabelBlunder
	}
	return result
}

func (c *Comparator) label(diff int) ErrorLabel {
	switch {
	case diff > c.cutoffs.Good:
		return LabelGood
	case diff > c.cutoffs.Inaccuracy:
		return LabelInaccuracy
	case diff > c.cutoffs.Mistake:
		return LabelMistake
	default:
		return LabelBlunder
	}
}

func (c *Comparator) mateWithinHorizon(s Score) bool {
	return s.Kind == "mate" && s.Value != 0 && abs(s.Value) <= c.mateHorizon
}

func (c *Comparator) missedMate(played Score, alternatives []Score) bool {
	hadMate := false
	for _, alt := range alternatives {
		if alt.Kind == "mate" && alt.Value > 0 && alt.Value <= c.mateHorizon {
			hadMate = true
			break
		}
	}
	if !hadMate {
		return false
	}
	return !(played.Kind == "mate" && played.Value > 0)
}
