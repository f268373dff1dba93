package tactics_test

import (
	"testing"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

func filterGame() *tactics.SourceGame {
	return &tactics.SourceGame{
		ID: "club.pgn#3",
		Tags: map[string]string{
			"White":    "Adams",
			"Black":    "Baker",
			"Result":   "1-0",
			"WhiteElo": "1820",
			"BlackElo": "1710",
		},
		Moves: []string{"e4", "e5", "Nf3", "Nc6"},
	}
}

func TestGameFilterMatch(t *testing.T) {
	cases := []struct {
		source string
		want   bool
	}{
		{`WhiteElo >= 1800`, true},
		{`WhiteElo >= 1800 && BlackElo >= 1800`, false},
		{`Result == "1-0"`, true},
		{`PlyCount > 20`, false},
		{`White == "Adams" || Black == "Adams"`, true},
	}
	for _, tc := range cases {
		filter, err := tactics.NewGameFilter(tc.source)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.source, err)
		}
		got, err := filter.Match(filterGame())
		if err != nil {
			t.Fatalf("match %q: %v", tc.source, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.source, got, tc.want)
		}
	}
}

func TestGameFilterEmptyMatchesEverything(t *testing.T) {
	filter, err := tactics.NewGameFilter("")
	if err != nil {
		t.Fatalf("empty filter: %v", err)
	}
	if filter != nil {
		t.Fatal("empty source must yield a nil filter")
	}
	got, err := filter.Match(filterGame())
	if err != nil || !got {
		t.Fatalf("nil filter: got %v err %v", got, err)
	}
}

func TestGameFilterRejectsBadExpressions(t *testing.T) {
	if _, err := tactics.NewGameFilter(`WhiteElo +`); err == nil {
		t.Fatal("expected a compile error for a malformed expression")
	}
	if _, err := tactics.NewGameFilter(`WhiteElo + 1`); err == nil {
		t.Fatal("expected a compile error for a non-boolean expression")
	}
}
