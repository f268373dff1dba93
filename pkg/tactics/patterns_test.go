package tactics_test

import (
	"testing"

	"github.com/notnil/chess"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

// positionFromFEN builds a position for pattern fixtures.
func positionFromFEN(t *testing.T, fen string) *chess.Position {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("bad FEN %q: %v", fen, err)
	}
	return chess.NewGame(opt).Position()
}

func decodeSAN(t *testing.T, pos *chess.Position, san string) *chess.Move {
	t.Helper()
	move, err := chess.AlgebraicNotation{}.Decode(pos, san)
	if err != nil {
		t.Fatalf("decode %q: %v", san, err)
	}
	return move
}

func TestClassifyPattern(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		san  string
		want tactics.Pattern
	}{
		{
			name: "rook check",
			fen:  "4k3/8/8/8/8/8/8/4K2R w - - 0 1",
			san:  "Rh8+",
			want: tactics.PatternCheck,
		},
		{
			name: "queen takes queen",
			fen:  "4k3/8/3q4/8/8/3Q4/8/4K3 w - - 0 1",
			san:  "Qxd6",
			want: tactics.PatternWinningCapture,
		},
		{
			name: "knight forks queen and rook",
			fen:  "4k3/2q1r3/8/8/8/2N5/8/4K3 w - - 0 1",
			san:  "Nd5",
			want: tactics.PatternFork,
		},
		{
			name: "rook pins rook to king",
			fen:  "4k3/4r3/8/8/8/8/8/R4K2 w - - 0 1",
			san:  "Re1",
			want: tactics.PatternPin,
		},
		{
			name: "knight move uncovers bishop on queen",
			fen:  "7k/6q1/8/8/3N4/8/8/B3K3 w - - 0 1",
			san:  "Nb5",
			want: tactics.PatternDiscoveredAttack,
		},
		{
			name: "quiet pawn push",
			fen:  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			san:  "e4",
			want: tactics.PatternNone,
		},
		{
			name: "losing capture is not a winning capture",
			fen:  "4k3/8/8/3p4/8/8/8/3QK3 w - - 0 1",
			san:  "Qxd5",
			want: tactics.PatternNone,
		},
	}

	for _, tc := range cases {
		pos := positionFromFEN(t, tc.fen)
		move := decodeSAN(t, pos, tc.san)
		if got := tactics.ClassifyPattern(pos, move); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestClassifyPatternPawnTakesQueen(t *testing.T) {
	pos := positionFromFEN(t, "4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1")
	move := decodeSAN(t, pos, "exd5")
	if got := tactics.ClassifyPattern(pos, move); got != tactics.PatternWinningCapture {
		t.Fatalf("got %q want %q", got, tactics.PatternWinningCapture)
	}
}

func TestPhaseOf(t *testing.T) {
	opening := positionFromFEN(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if got := tactics.PhaseOf(opening, 0); got != tactics.PhaseOpening {
		t.Fatalf("initial position: got %s want opening", got)
	}
	if got := tactics.PhaseOf(opening, 40); got != tactics.PhaseMiddlegame {
		t.Fatalf("full board at move 21: got %s want middlegame", got)
	}
	endgame := positionFromFEN(t, "8/5k2/8/8/3R4/8/5K2/8 w - - 0 1")
	if got := tactics.PhaseOf(endgame, 80); got != tactics.PhaseEndgame {
		t.Fatalf("rook endgame: got %s want endgame", got)
	}
}
