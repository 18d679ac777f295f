package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dealflow-labs/dealflow-go/internal/agent"
	"github.com/dealflow-labs/dealflow-go/internal/fallback"
)

// Duration parses "90s" / "2m" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// StageConfig tunes one stage's retry budget. Zero fields fall back to the
// agent package defaults.
type StageConfig struct {
	MaxRetries  int      `yaml:"max_retries"`
	Timeout     Duration `yaml:"timeout"`
	BackoffBase Duration `yaml:"backoff_base"`
	BackoffMax  Duration `yaml:"backoff_max"`
}

func (s StageConfig) agentConfig() agent.Config {
	return agent.Config{
		MaxRetries:  s.MaxRetries,
		Timeout:     s.Timeout.Std(),
		BackoffBase: s.BackoffBase.Std(),
		BackoffMax:  s.BackoffMax.Std(),
	}
}

type HeuristicsConfig struct {
	RevenueMultiple     float64 `yaml:"revenue_multiple"`
	DefaultValuationM   float64 `yaml:"default_valuation_m"`
	RangeLowMultiplier  float64 `yaml:"range_low_multiplier"`
	RangeHighMultiplier float64 `yaml:"range_high_multiplier"`
}

func (h HeuristicsConfig) heuristics() fallback.Heuristics {
	return fallback.Heuristics{
		RevenueMultiple:     h.RevenueMultiple,
		DefaultValuationM:   h.DefaultValuationM,
		RangeLowMultiplier:  h.RangeLowMultiplier,
		RangeHighMultiplier: h.RangeHighMultiplier,
	}
}

// Config tunes the whole run: the overall deadline, per-stage retry budgets
// and the fallback heuristics.
type Config struct {
	OverallTimeout Duration         `yaml:"overall_timeout"`
	Extraction     StageConfig      `yaml:"extraction"`
	Analysis       StageConfig      `yaml:"analysis"`
	Risk           StageConfig      `yaml:"risk"`
	Valuation      StageConfig      `yaml:"valuation"`
	Fallback       HeuristicsConfig `yaml:"fallback"`
}

func DefaultConfig() Config {
	stage := StageConfig{
		MaxRetries:  3,
		Timeout:     Duration(2 * time.Minute),
		BackoffBase: Duration(time.Second),
		BackoffMax:  Duration(30 * time.Second),
	}
	h := fallback.DefaultHeuristics()
	return Config{
		OverallTimeout: Duration(10 * time.Minute),
		Extraction:     stage,
		Analysis:       stage,
		Risk:           stage,
		Valuation:      stage,
		Fallback: HeuristicsConfig{
			RevenueMultiple:     h.RevenueMultiple,
			DefaultValuationM:   h.DefaultValuationM,
			RangeLowMultiplier:  h.RangeLowMultiplier,
			RangeHighMultiplier: h.RangeHighMultiplier,
		},
	}
}

// LoadConfig reads a YAML tuning file over the defaults. A missing path keeps
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.OverallTimeout.Std() <= 0 {
		return fmt.Errorf("overall_timeout must be positive")
	}
	for _, s := range []struct {
		name string
		cfg  StageConfig
	}{
		{"extraction", c.Extraction},
		{"analysis", c.Analysis},
		{"risk", c.Risk},
		{"valuation", c.Valuation},
	} {
		if s.cfg.MaxRetries < 0 {
			return fmt.Errorf("%s: max_retries must not be negative", s.name)
		}
		if s.cfg.Timeout.Std() < 0 || s.cfg.BackoffBase.Std() < 0 || s.cfg.BackoffMax.Std() < 0 {
			return fmt.Errorf("%s: durations must not be negative", s.name)
		}
	}
	return nil
}
