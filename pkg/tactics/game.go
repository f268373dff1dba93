package tactics

import (
	"context"
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// ErrIllegalMove marks a PGN ply that does not decode to a legal move.
// The ply is skipped and the game continues.
var ErrIllegalMove = errors.New("illegal move in game")

// GameAnalyzer walks a single game move by move: replay, budget selection,
// optional pre-classification, cached engine evaluation, comparison, emit.
// A single bad ply never aborts the game; only a dead engine does.
type GameAnalyzer struct {
	evaluator  EngineEvaluator
	cache      *EvalCache
	selector   *Selector
	comparator *Comparator
}

// NewGameAnalyzer wires the per-worker components together.
func NewGameAnalyzer(evaluator EngineEvaluator, cache *EvalCache, selector *Selector, comparator *Comparator) *GameAnalyzer {
	return &GameAnalyzer{
		evaluator:  evaluator,
		cache:      cache,
		selector:   selector,
		comparator: comparator,
	}
}

// AnalyzeGame produces the ordered tactical records for one game. Skipped
// plies (opening theory, low complexity) and failed plies (illegal move,
// engine failure after retry) emit no record and are counted in the
// report. The returned error is non-nil only when the whole game could not
// be analyzed (bad start position, dead engine, cancellation).
func (a *GameAnalyzer) AnalyzeGame(ctx context.Context, game *SourceGame) (*GameReport, error) {
	replay, err := newReplay(game)
	if err != nil {
		return nil, err
	}
	report := &GameReport{GameID: game.ID, PliesTotal: len(game.Moves)}

	for ply, san := range game.Moves {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pos := replay.Position()
		move, err := chess.AlgebraicNotation{}.Decode(pos, san)
		if err != nil {
			report.PliesFailed++
			continue
		}

		record, skipped, err := a.analyzePly(ctx, game, pos, move, san, ply)
		switch {
		case err == nil && skipped:
			report.PliesSkipped++
		case err == nil:
			report.Records = append(report.Records, record)
		case errors.Is(err, ErrEngineFailure):
			report.PliesFailed++
		default:
			return nil, err
		}

		if err := replay.Move(move); err != nil {
			// Decode already validated the move against this position.
			return nil, fmt.Errorf("replay %s ply %d: %w", game.ID, ply, err)
		}
	}
	return report, nil
}

func (a *GameAnalyzer) analyzePly(ctx context.Context, game *SourceGame, pos *chess.Position, move *chess.Move, san string, ply int) (TacticalRecord, bool, error) {
	branching := len(pos.ValidMoves())
	phase := PhaseOf(pos, ply)
	pattern := ClassifyPattern(pos, move)
	uciMove := chess.UCINotation{}.Encode(pos, move)

	record := TacticalRecord{
		GameID:   game.ID,
		Ply:      int32(ply),
		Color:    colorName(pos.Turn()),
		MoverElo: int32(moverElo(game, pos.Turn())),
		FEN:      pos.String(),
		SAN:      san,
		UCI:      uciMove,
		Pattern:  pattern.String(),
		Phase:    phase.String(),
	}

	// A position with exactly one legal move is always forced and bypasses
	// the engine entirely: there is no alternative to compare against.
	if branching == 1 {
		record.ForcedMove = true
		record.ErrorLabel = LabelGood.String()
		return record, false, nil
	}

	budget := a.selector.SelectBudget(BudgetInput{
		PlyIndex:  ply,
		Phase:     phase,
		Branching: branching,
		HasPretag: pattern != PatternNone,
	})
	if budget.Skip {
		return TacticalRecord{}, true, nil
	}

	eval, err := a.cachedEvaluate(ctx, pos, budget.Depth, budget.MultiPV)
	if err != nil {
		return TacticalRecord{}, false, err
	}
	played, err := a.playedScore(ctx, pos, move, uciMove, eval, budget.Depth)
	if err != nil {
		return TacticalRecord{}, false, err
	}

	alternatives := make([]Score, 0, len(eval.Lines))
	for _, line := range eval.Lines {
		alternatives = append(alternatives, line.Score)
	}
	cmp := a.comparator.Compare(played, alternatives, false)

	record.ScoreCp = int32(ScoreToCentipawns(played))
	record.BestMoveUCI = eval.Best().Move
	record.ScoreDiff = int32(cmp.ScoreDiff)
	record.DepthScoreDiff = int32(cmp.ScoreDiff)
	record.ErrorLabel = cmp.Label.String()
	record.ThreatensMate = cmp.ThreatensMate
	record.Depth = int32(budget.Depth)
	record.MultiPV = int32(budget.MultiPV)
	return record, false, nil
}

// cachedEvaluate routes an evaluation request through the worker's cache.
func (a *GameAnalyzer) cachedEvaluate(ctx context.Context, pos *chess.Position, depth, multiPV int) (Evaluation, error) {
	packed, err := PackPosition(pos)
	if err != nil {
		return a.evaluator.Evaluate(ctx, pos.String(), depth, multiPV)
	}
	key := CacheKey{Pos: packed, Depth: depth, MultiPV: multiPV}
	return a.cache.GetOrCompute(key, func() (Evaluation, error) {
		return a.evaluator.Evaluate(ctx, pos.String(), depth, multiPV)
	})
}

// playedScore returns the played move's score in the mover's perspective.
// When the move appears among the multiPV lines its score is free;
// otherwise the post-move position is evaluated at the same depth and
// negated back to the mover.
func (a *GameAnalyzer) playedScore(ctx context.Context, pos *chess.Position, move *chess.Move, uciMove string, eval Evaluation, depth int) (Score, error) {
	for _, line := range eval.Lines {
		if line.Move == uciMove {
			return line.Score, nil
		}
	}
	post := pos.Update(move)
	postEval, err := a.cachedEvaluate(ctx, post, depth, 1)
	if err != nil {
		return Score{}, err
	}
	return negateScore(postEval.Best().Score), nil
}

func negateScore(s Score) Score {
	s.Value = -s.Value
	return s
}

func newReplay(game *SourceGame) (*chess.Game, error) {
	if fen := game.Tag("FEN"); fen != "" {
		opt, err := chess.FEN(fen)
		if err != nil {
			return nil, fmt.Errorf("game %s: bad FEN tag: %w", game.ID, err)
		}
		return chess.NewGame(opt), nil
	}
	return chess.NewGame(), nil
}

func colorName(c chess.Color) string {
	if c == chess.Black {
		return "black"
	}
	return "white"
}

func moverElo(game *SourceGame, turn chess.Color) int {
	if turn == chess.Black {
		return game.EloOf("BlackElo")
	}
	return game.EloOf("WhiteElo")
}
