package tactics_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

const twoGamePGN = `[Event "Club Night"]
[White "Adams"]
[Black "Baker"]
[WhiteElo "1820"]
[Result "1-0"]

1. e4 e5 2. Nf3 {book} Nc6 3. Bb5 (3. Bc4 Bc5 (3... Nf6)) a6 $2 1-0

[Event "Club Night"]
[White "Clark"]
[Black "Davis"]
[Result "1/2-1/2"]

1. d4 d5! 2. c4?! e6 1/2-1/2
`

func writePGN(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadGamesSplitsAndStrips(t *testing.T) {
	dir := t.TempDir()
	path := writePGN(t, dir, "club.pgn", []byte(twoGamePGN))

	games, err := tactics.LoadGames(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games want 2", len(games))
	}

	first := games[0]
	if first.ID != "club.pgn#0" {
		t.Fatalf("got id %q", first.ID)
	}
	if first.Tag("White") != "Adams" || first.EloOf("WhiteElo") != 1820 {
		t.Fatalf("tags: white=%q elo=%d", first.Tag("White"), first.EloOf("WhiteElo"))
	}
	// Comments, nested variations, NAGs, annotation suffixes and the result
	// token are all stripped from the movetext.
	wantMoves := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}
	if !reflect.DeepEqual(first.Moves, wantMoves) {
		t.Fatalf("got moves %v want %v", first.Moves, wantMoves)
	}

	second := games[1]
	if second.ID != "club.pgn#1" {
		t.Fatalf("got id %q", second.ID)
	}
	wantMoves = []string{"d4", "d5", "c4", "e6"}
	if !reflect.DeepEqual(second.Moves, wantMoves) {
		t.Fatalf("got moves %v want %v", second.Moves, wantMoves)
	}
	if second.EloOf("WhiteElo") != 0 {
		t.Fatalf("missing elo tag must read as 0, got %d", second.EloOf("WhiteElo"))
	}
}

func TestLoadGamesToleratesExtraBlankLines(t *testing.T) {
	dir := t.TempDir()
	// Three blank lines between games: the stray blanks must not produce a
	// tags-only pseudo-game followed by a tagless movetext game.
	raw := "[White \"Adams\"]\n\n1. e4 e5 *\n\n\n\n[White \"Clark\"]\n\n1. d4 d5 *\n"
	path := writePGN(t, dir, "padded.pgn", []byte(raw))

	games, err := tactics.LoadGames(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games want 2", len(games))
	}
	if games[0].Tag("White") != "Adams" || len(games[0].Moves) != 2 {
		t.Fatalf("first game: white=%q moves=%v", games[0].Tag("White"), games[0].Moves)
	}
	if games[1].Tag("White") != "Clark" || len(games[1].Moves) != 2 {
		t.Fatalf("second game: white=%q moves=%v", games[1].Tag("White"), games[1].Moves)
	}
}

func TestLoadGamesDecodesLatin1(t *testing.T) {
	dir := t.TempDir()
	// 0xE9 is é in Latin-1 and invalid UTF-8 on its own.
	raw := []byte("[White \"S\xE9bastien\"]\n\n1. e4 e5 *\n")
	path := writePGN(t, dir, "latin1.pgn", raw)

	games, err := tactics.LoadGames(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d games want 1", len(games))
	}
	if got := games[0].Tag("White"); got != "Sébastien" {
		t.Fatalf("got white %q want Sébastien", got)
	}
}

func TestCollectPGN(t *testing.T) {
	dir := t.TempDir()
	writePGN(t, dir, "b.pgn", []byte("\n"))
	writePGN(t, dir, "a.pgn", []byte("\n"))
	writePGN(t, dir, "notes.txt", []byte("not a pgn"))
	if err := os.Mkdir(filepath.Join(dir, "sub.pgn"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := tactics.CollectPGN(dir)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{filepath.Join(dir, "a.pgn"), filepath.Join(dir, "b.pgn")}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("got %v want %v", files, want)
	}
}
