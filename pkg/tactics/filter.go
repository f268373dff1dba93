package tactics

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// FilterEnv is the environment a filter expression is evaluated against,
// one instance per game.
type FilterEnv struct {
	GameID   string
	White    string
	Black    string
	Result   string
	WhiteElo int
	BlackElo int
	PlyCount int
}

// GameFilter selects which games enter analysis, using a user-supplied
// boolean expression such as `WhiteElo >= 1800 && PlyCount > 20`.
type GameFilter struct {
	source  string
	program *vm.Program
}

// NewGameFilter compiles a filter expression. An empty source returns a
// nil filter, which matches everything.
func NewGameFilter(source string) (*GameFilter, error) {
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", source, err)
	}
	return &GameFilter{source: source, program: program}, nil
}

// Match evaluates the filter for one game.
func (f *GameFilter) Match(game *SourceGame) (bool, error) {
	if f == nil {
		return true, nil
	}
	env := FilterEnv{
		GameID:   game.ID,
		White:    game.Tag("White"),
		Black:    game.Tag("Black"),
		Result:   game.Tag("Result"),
		WhiteElo: game.EloOf("WhiteElo"),
		BlackElo: game.EloOf("BlackElo"),
		PlyCount: len(game.Moves),
	}
	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.source, game.ID, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not return a boolean", f.source)
	}
	return matched, nil
}
