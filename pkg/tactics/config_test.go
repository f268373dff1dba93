package tactics_test

import (
	"os"
	"path/filepath"
	"testing"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"engine": "engines/stockfish"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := tactics.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine != "engines/stockfish" {
		t.Fatalf("got engine %q", cfg.Engine)
	}
	if cfg.Workers != 4 || cfg.EvalTimeoutMs != 15000 || cfg.PageSize != 200 {
		t.Fatalf("runtime defaults: %+v", cfg)
	}
	budget := cfg.BudgetConfig()
	if budget.OpeningSkipPlies != 12 || budget.MiddlegameDepth != 12 || budget.WideMultiPV != 3 {
		t.Fatalf("budget defaults: %+v", budget)
	}
	cutoffs := cfg.LabelCutoffs()
	if cutoffs.Good != -50 || cutoffs.Inaccuracy != -150 || cutoffs.Mistake != -400 {
		t.Fatalf("cutoff defaults: %+v", cutoffs)
	}
	if cfg.MateHorizon != 5 {
		t.Fatalf("mate horizon default: %d", cfg.MateHorizon)
	}
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"engine": "sf", "workers": 2, "endgame_depth": 20, "mistake_cutoff": -300}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := tactics.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workers != 2 || cfg.EndgameDepth != 20 {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
	if cfg.LabelCutoffs().Mistake != -300 {
		t.Fatalf("got mistake cutoff %d", cfg.LabelCutoffs().Mistake)
	}
}

func TestResolveEnginePath(t *testing.T) {
	got, err := tactics.ResolveEnginePath("engines/stockfish", "/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/repo", "engines", "stockfish") {
		t.Fatalf("got %q", got)
	}

	abs := "/usr/bin/stockfish"
	got, err = tactics.ResolveEnginePath(abs, "/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got != abs {
		t.Fatalf("absolute path rewritten to %q", got)
	}

	if _, err := tactics.ResolveEnginePath("", "/repo"); err == nil {
		t.Fatal("expected error for empty engine path")
	}
}
