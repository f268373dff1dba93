package tactics

import (
	"fmt"

	"github.com/notnil/chess"
)

// Packed256 is a compact, comparable encoding of a chess position: piece
// placement, side to move, castling rights and en-passant file. Move
// counters are deliberately excluded, they do not change what the engine
// sees at a fixed depth, so transpositions that differ only in counters
// share one cache entry.
type Packed256 struct {
	Words [4]uint64
}

type bitWriter256 struct {
	words [4]uint64
	pos   int
}

func (w *bitWriter256) write(bits uint64, bitLen int) error {
	if w.pos+bitLen > 256 {
		return fmt.Errorf("position encoding overflows 256 bits at %d", w.pos)
	}
	for i := 0; i < bitLen; i++ {
		if bits&(1<<uint(i)) != 0 {
			w.words[w.pos/64] |= 1 << uint(w.pos%64)
		}
		w.pos++
	}
	return nil
}

type codeSpec struct {
	bits   uint64
	bitLen int
}

// Prefix-free per-square codes, shortest for the most frequent piece. An
// empty square is the single bit 0; each piece code is followed by one
// color bit.
var pieceCodes = map[chess.PieceType]codeSpec{
	chess.Pawn:   {bits: 0b01, bitLen: 2},
	chess.Knight: {bits: 0b0011, bitLen: 4},
	chess.Bishop: {bits: 0b1011, bitLen: 4},
	chess.Rook:   {bits: 0b0111, bitLen: 4},
	chess.Queen:  {bits: 0b01111, bitLen: 5},
	chess.King:   {bits: 0b11111, bitLen: 5},
}

// PackPosition encodes a position into a Packed256 cache key. Worst-case
// size is 173 bits: 64 board bits plus piece codes, one turn bit, four
// castling bits and the en-passant field.
func PackPosition(pos *chess.Position) (Packed256, error) {
	writer := &bitWriter256{}
	board := pos.Board()

	for sq := chess.A1; sq <= chess.H8; sq++ {
		piece := board.Piece(sq)
		if piece == chess.NoPiece {
			if err := writer.write(0, 1); err != nil {
				return Packed256{}, err
			}
			continue
		}
		code, ok := pieceCodes[piece.Type()]
		if !ok {
			return Packed256{}, fmt.Errorf("unknown piece %v at %v", piece, sq)
		}
		if err := writer.write(code.bits, code.bitLen); err != nil {
			return Packed256{}, err
		}
		colorBit := uint64(0)
		if piece.Color() == chess.Black {
			colorBit = 1
		}
		if err := writer.write(colorBit, 1); err != nil {
			return Packed256{}, err
		}
	}

	turnBit := uint64(0)
	if pos.Turn() == chess.Black {
		turnBit = 1
	}
	if err := writer.write(turnBit, 1); err != nil {
		return Packed256{}, err
	}

	rights := pos.CastleRights()
	castleBits := uint64(0)
	if rights.CanCastle(chess.White, chess.KingSide) {
		castleBits |= 1
	}
	if rights.CanCastle(chess.White, chess.QueenSide) {
		castleBits |= 2
	}
	if rights.CanCastle(chess.Black, chess.KingSide) {
		castleBits |= 4
	}
	if rights.CanCastle(chess.Black, chess.QueenSide) {
		castleBits |= 8
	}
	if err := writer.write(castleBits, 4); err != nil {
		return Packed256{}, err
	}

	ep := pos.EnPassantSquare()
	if ep == chess.NoSquare {
		if err := writer.write(0, 1); err != nil {
			return Packed256{}, err
		}
	} else {
		if err := writer.write(1, 1); err != nil {
			return Packed256{}, err
		}
		if err := writer.write(uint64(ep.File()), 3); err != nil {
			return Packed256{}, err
		}
	}

	return Packed256{Words: writer.words}, nil
}
