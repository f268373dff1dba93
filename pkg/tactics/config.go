package tactics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the runtime configuration, loaded from config.json. Zero
// values fall back to the documented defaults so a minimal file with just
// the engine path works.
type Config struct {
	Engine        string `json:"engine"`
	Workers       int    `json:"workers"`
	EvalTimeoutMs int    `json:"eval_timeout_ms"`
	PageSize      int    `json:"page_size"`

	OpeningSkipPlies int `json:"opening_skip_plies"`
	PretagDepth      int `json:"pretag_depth"`
	OpeningDepth     int `json:"opening_depth"`
	MiddlegameDepth  int `json:"middlegame_depth"`
	EndgameDepth     int `json:"endgame_depth"`
	LowBranching     int `json:"low_branching"`
	HighBranching    int `json:"high_branching"`
	WideMultiPV      int `json:"wide_multipv"`

	GoodCutoff       int `json:"good_cutoff"`
	InaccuracyCutoff int `json:"inaccuracy_cutoff"`
	MistakeCutoff    int `json:"mistake_cutoff"`
	MateHorizon      int `json:"mate_horizon"`

	CacheCapacity int    `json:"cache_capacity"`
	Filter        string `json:"filter"`
	SchemaPath    string `json:"schema_path"`
}

// FindConfigPath locates config.json, starting from the working directory
// and walking upward. Returns the config path and its directory.
func FindConfigPath() (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	dir := cwd
	for {
		path := filepath.Join(dir, "config.json")
		if _, err := os.Stat(path); err == nil {
			return path, filepath.Dir(path), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("config.json not found from %s", cwd)
}

// LoadConfig reads and decodes a config file and applies defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.EvalTimeoutMs <= 0 {
		c.EvalTimeoutMs = 15000
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.OpeningSkipPlies <= 0 {
		c.OpeningSkipPlies = 12
	}
	if c.PretagDepth <= 0 {
		c.PretagDepth = 6
	}
	if c.OpeningDepth <= 0 {
		c.OpeningDepth = 10
	}
	if c.MiddlegameDepth <= 0 {
		c.MiddlegameDepth = 12
	}
	if c.EndgameDepth <= 0 {
		c.EndgameDepth = 16
	}
	if c.LowBranching <= 0 {
		c.LowBranching = 5
	}
	if c.HighBranching <= 0 {
		c.HighBranching = 10
	}
	if c.WideMultiPV <= 0 {
		c.WideMultiPV = 3
	}
	if c.GoodCutoff == 0 {
		c.GoodCutoff = -50
	}
	if c.InaccuracyCutoff == 0 {
		c.InaccuracyCutoff = -150
	}
	if c.MistakeCutoff == 0 {
		c.MistakeCutoff = -400
	}
	if c.MateHorizon <= 0 {
		c.MateHorizon = 5
	}
	if c.SchemaPath == "" {
		c.SchemaPath = filepath.Join("schema", "parquet_schema.json")
	}
	return c
}

// BudgetConfig extracts the selector constants.
func (c Config) BudgetConfig() BudgetConfig {
	return BudgetConfig{
		OpeningSkipPlies: c.OpeningSkipPlies,
		PretagDepth:      c.PretagDepth,
		OpeningDepth:     c.OpeningDepth,
		MiddlegameDepth:  c.MiddlegameDepth,
		EndgameDepth:     c.EndgameDepth,
		LowBranching:     c.LowBranching,
		HighBranching:    c.HighBranching,
		WideMultiPV:      c.WideMultiPV,
	}
}

// LabelCutoffs extracts the comparator thresholds.
func (c Config) LabelCutoffs() LabelCutoffs {
	return LabelCutoffs{
		Good:       c.GoodCutoff,
		Inaccuracy: c.InaccuracyCutoff,
		Mistake:    c.MistakeCutoff,
	}
}

// ResolveEnginePath makes a relative engine path absolute against the
// directory the config was found in.
func ResolveEnginePath(engine, root string) (string, error) {
	if engine == "" {
		return "", errors.New("engine path is required")
	}
	if filepath.IsAbs(engine) {
		return engine, nil
	}
	return filepath.Join(root, engine), nil
}
