package tactics

import "github.com/notnil/chess"

// Pattern is a closed set of simple tactical motifs recognized without the
// engine. PatternNone means nothing was provable from board geometry alone;
// the budget selector then falls through to engine analysis. The detection
// rules favor precision over recall: a missed motif only costs an engine
// call, a wrong one would mislabel a move.
type Pattern int

const (
	PatternNone Pattern = iota
	PatternCheck
	PatternWinningCapture
	PatternPin
	PatternFork
	PatternDiscoveredAttack
)

func (p Pattern) String() string {
	switch p {
	case PatternCheck:
		return "check"
	case PatternWinningCapture:
		return "winning_capture"
	case PatternPin:
		return "pin"
	case PatternFork:
		return "fork"
	case PatternDiscoveredAttack:
		return "discovered_attack"
	default:
		return ""
	}
}

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   100,
	chess.Knight: 320,
	chess.Bishop: 330,
	chess.Rook:   500,
	chess.Queen:  900,
	chess.King:   20000,
}

// ClassifyPattern inspects a legal move on its pre-move position and
// reports the first motif it can prove. Pure function, no engine calls.
func ClassifyPattern(pos *chess.Position, move *chess.Move) Pattern {
	board := pos.Board()
	mover := board.Piece(move.S1())
	if mover == chess.NoPiece {
		return PatternNone
	}
	post := pos.Update(move)
	postBoard := post.Board()

	if move.HasTag(chess.Check) {
		return PatternCheck
	}
	if isWinningCapture(board, mover, move) {
		return PatternWinningCapture
	}
	if pinsEnemyPiece(postBoard, move.S2()) {
		return PatternPin
	}
	if forksEnemyPieces(postBoard, move.S2()) {
		return PatternFork
	}
	if discoversAttack(board, postBoard, mover.Color(), move) {
		return PatternDiscoveredAttack
	}
	return PatternNone
}

// isWinningCapture reports captures that win material by plain piece-value
// comparison: the captured piece is worth at least as much as the mover.
func isWinningCapture(board *chess.Board, mover chess.Piece, move *chess.Move) bool {
	capturedValue := 0
	if move.HasTag(chess.EnPassant) {
		capturedValue = pieceValues[chess.Pawn]
	} else if move.HasTag(chess.Capture) {
		captured := board.Piece(move.S2())
		if captured == chess.NoPiece {
			return false
		}
		capturedValue = pieceValues[captured.Type()]
	} else {
		return false
	}
	return capturedValue >= pieceValues[mover.Type()]
}

// pinsEnemyPiece reports whether the piece that landed on sq now pins an
// enemy piece (knight or better) against the enemy king along one of its
// slide directions.
func pinsEnemyPiece(board *chess.Board, sq chess.Square) bool {
	piece := board.Piece(sq)
	dirs := sliderDirections(piece.Type())
	if len(dirs) == 0 {
		return false
	}
	for _, dir := range dirs {
		shielding := chess.NoPiece
		file := int(sq.File()) + dir[0]
		rank := int(sq.Rank()) + dir[1]
		for onBoard(file, rank) {
			target := board.Piece(squareAt(file, rank))
			if target != chess.NoPiece {
				if shielding == chess.NoPiece {
					if target.Color() == piece.Color() ||
						target.Type() == chess.King ||
						pieceValues[target.Type()] < pieceValues[chess.Knight] {
						break
					}
					shielding = target
				} else {
					if target.Color() != piece.Color() && target.Type() == chess.King {
						return true
					}
					break
				}
			}
			file += dir[0]
			rank += dir[1]
		}
	}
	return false
}

// forksEnemyPieces reports whether the piece that landed on sq attacks at
// least two enemy pieces, each strictly more valuable than the attacker
// (or the king).
func forksEnemyPieces(board *chess.Board, sq chess.Square) bool {
	piece := board.Piece(sq)
	if piece == chess.NoPiece {
		return false
	}
	targets := 0
	for _, attacked := range attackedSquares(board, sq) {
		victim := board.Piece(attacked)
		if victim == chess.NoPiece || victim.Color() == piece.Color() {
			continue
		}
		if victim.Type() == chess.King || pieceValues[victim.Type()] > pieceValues[piece.Type()] {
			targets++
		}
	}
	return targets >= 2
}

// discoversAttack reports whether the move uncovered a friendly slider's
// line to an enemy rook, queen or king through the vacated square.
func discoversAttack(pre, post *chess.Board, color chess.Color, move *chess.Move) bool {
	for sliderSq, slider := range post.SquareMap() {
		if slider.Color() != color || sliderSq == move.S2() {
			continue
		}
		if len(sliderDirections(slider.Type())) == 0 {
			continue
		}
		for targetSq, target := range post.SquareMap() {
			if target.Color() == color {
				continue
			}
			if target.Type() != chess.King && pieceValues[target.Type()] < pieceValues[chess.Rook] {
				continue
			}
			if !strictlyBetween(sliderSq, targetSq, move.S1()) {
				continue
			}
			if attacksSquare(post, sliderSq, targetSq) && !attacksSquare(pre, sliderSq, targetSq) {
				return true
			}
		}
	}
	return false
}

var (
	rookDirections   = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirections = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allDirections    = append(append([][2]int{}, rookDirections...), bishopDirections...)
	knightOffsets    = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
)

func sliderDirections(t chess.PieceType) [][2]int {
	switch t {
	case chess.Rook:
		return rookDirections
	case chess.Bishop:
		return bishopDirections
	case chess.Queen:
		return allDirections
	default:
		return nil
	}
}

func onBoard(file, rank int) bool {
	return file >= 0 && file < 8 && rank >= 0 && rank < 8
}

func squareAt(file, rank int) chess.Square {
	return chess.Square(rank*8 + file)
}

// attackedSquares returns every square the piece on sq attacks, blockers
// included (the first occupied square ends a slide ray).
func attackedSquares(board *chess.Board, sq chess.Square) []chess.Square {
	piece := board.Piece(sq)
	if piece == chess.NoPiece {
		return nil
	}
	file := int(sq.File())
	rank := int(sq.Rank())
	var result []chess.Square

	switch piece.Type() {
	case chess.Pawn:
		forward := 1
		if piece.Color() == chess.Black {
			forward = -1
		}
		for _, df := range []int{-1, 1} {
			if onBoard(file+df, rank+forward) {
				result = append(result, squareAt(file+df, rank+forward))
			}
		}
	case chess.Knight:
		for _, off := range knightOffsets {
			if onBoard(file+off[0], rank+off[1]) {
				result = append(result, squareAt(file+off[0], rank+off[1]))
			}
		}
	case chess.King:
		for _, dir := range allDirections {
			if onBoard(file+dir[0], rank+dir[1]) {
				result = append(result, squareAt(file+dir[0], rank+dir[1]))
			}
		}
	default:
		for _, dir := range sliderDirections(piece.Type()) {
			f, r := file+dir[0], rank+dir[1]
			for onBoard(f, r) {
				target := squareAt(f, r)
				result = append(result, target)
				if board.Piece(target) != chess.NoPiece {
					break
				}
				f += dir[0]
				r += dir[1]
			}
		}
	}
	return result
}

// attacksSquare reports whether the piece on from attacks to.
func attacksSquare(board *chess.Board, from, to chess.Square) bool {
	for _, sq := range attackedSquares(board, from) {
		if sq == to {
			return true
		}
	}
	return false
}

// strictlyBetween reports whether mid lies strictly between a and b on a
// shared rank, file or diagonal.
func strictlyBetween(a, b, mid chess.Square) bool {
	df := sign(int(b.File()) - int(a.File()))
	dr := sign(int(b.Rank()) - int(a.Rank()))
	if df == 0 && dr == 0 {
		return false
	}
	aligned := int(a.File()) == int(b.File()) || int(a.Rank()) == int(b.Rank()) ||
		abs(int(a.File())-int(b.File())) == abs(int(a.Rank())-int(b.Rank()))
	if !aligned {
		return false
	}
	f, r := int(a.File())+df, int(a.Rank())+dr
	for onBoard(f, r) && squareAt(f, r) != b {
		if squareAt(f, r) == mid {
			return true
		}
		f += df
		r += dr
	}
	return false
}

func sign(v int) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
