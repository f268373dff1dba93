package tactics_test

import (
	"testing"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

func testCutoffs() tactics.LabelCutoffs {
	return tactics.LabelCutoffs{Good: -50, Inaccuracy: -150, Mistake: -400}
}

func cp(v int) tactics.Score   { return tactics.Score{Kind: "cp", Value: v} }
func mate(v int) tactics.Score { return tactics.Score{Kind: "mate", Value: v} }

func TestCompareForcedMoveIsNeverPenalized(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	got := comparator.Compare(cp(-900), []tactics.Score{cp(300)}, true)
	if !got.Forced {
		t.Fatal("expected forced result")
	}
	if got.ScoreDiff != 0 {
		t.Fatalf("forced move must keep the no-penalty sentinel, got diff %d", got.ScoreDiff)
	}
	if got.Label != tactics.LabelGood {
		t.Fatalf("forced move label: got %s want %s", got.Label, tactics.LabelGood)
	}
}

func TestComparePlayedEqualsBest(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	got := comparator.Compare(cp(30), []tactics.Score{cp(30), cp(10), cp(-40)}, false)
	if got.ScoreDiff != 0 {
		t.Fatalf("playing the engine's own choice must yield diff 0, got %d", got.ScoreDiff)
	}
	if got.Label != tactics.LabelGood {
		t.Fatalf("got %s want %s", got.Label, tactics.LabelGood)
	}
}

func TestCompareLabelThresholds(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	cases := []struct {
		played tactics.Score
		best   tactics.Score
		want   tactics.ErrorLabel
	}{
		{cp(10), cp(20), tactics.LabelGood},
		{cp(-80), cp(20), tactics.LabelInaccuracy},
		{cp(-230), cp(20), tactics.LabelMistake},
		{cp(-480), cp(20), tactics.LabelBlunder},
	}
	for _, tc := range cases {
		got := comparator.Compare(tc.played, []tactics.Score{tc.best}, false)
		if got.Label != tc.want {
			t.Fatalf("played %v vs best %v: got %s want %s", tc.played, tc.best, got.Label, tc.want)
		}
	}
}

func TestCompareSignConvention(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	got := comparator.Compare(cp(-100), []tactics.Score{cp(150)}, false)
	if got.ScoreDiff != -250 {
		t.Fatalf("got diff %d want -250", got.ScoreDiff)
	}
}

func TestCompareMissedMateIsBlunder(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	got := comparator.Compare(cp(50), []tactics.Score{mate(2), cp(120)}, false)
	if got.Label != tactics.LabelBlunder {
		t.Fatalf("missed mate: got %s want %s", got.Label, tactics.LabelBlunder)
	}
	if !got.ThreatensMate {
		t.Fatal("missed mate must set ThreatensMate")
	}
}

func TestCompareDeliveredMateIsNotMissed(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	got := comparator.Compare(mate(3), []tactics.Score{mate(2)}, false)
	if got.Label == tactics.LabelBlunder {
		t.Fatalf("a slower mate is still a mate, got %s", got.Label)
	}
	if !got.ThreatensMate {
		t.Fatal("expected ThreatensMate")
	}
}

func TestCompareMateBeyondHorizonDoesNotThreaten(t *testing.T) {
	comparator := tactics.NewComparator(testCutoffs(), 5)
	got := comparator.Compare(cp(0), []tactics.Score{mate(12)}, false)
	if got.ThreatensMate {
		t.Fatal("mate beyond the horizon must not set ThreatensMate")
	}
}

func TestScoreToCentipawns(t *testing.T) {
	cases := []struct {
		in   tactics.Score
		want int
	}{
		{cp(35), 35},
		{cp(-200), -200},
		{mate(2), 29998},
		{mate(-3), -29997},
	}
	for _, tc := range cases {
		if got := tactics.ScoreToCentipawns(tc.in); got != tc.want {
			t.Fatalf("%v: got %d want %d", tc.in, got, tc.want)
		}
	}
}
