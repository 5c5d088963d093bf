package config

// This file loads the YAML rules file: thresholds, benchmark/cost tables and
// the cost formula, plus the input-layout settings that tend to travel with
// them. Keys absent from the file leave the current Config values untouched.

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// rulesFile mirrors the YAML layout. Pointers distinguish "absent" from zero.
type rulesFile struct {
	Thresholds struct {
		BumperDuration *float64 `yaml:"bumper_duration"`
		ReachDuration  *float64 `yaml:"reach_duration"`
		ReachViews     *float64 `yaml:"reach_views"`
	} `yaml:"thresholds"`
	Benchmarks    map[string]float64 `yaml:"benchmarks"`
	Costs         map[string]float64 `yaml:"costs"`
	CostFormula   string             `yaml:"cost_formula"`
	Sheet         string             `yaml:"sheet"`
	HeaderOffset  *int               `yaml:"header_offset"`
	LinkMarker    string             `yaml:"link_marker"`
	LookupTimeout string             `yaml:"lookup_timeout"`
}

// LoadRulesFile reads path and applies it on top of cfg.
func LoadRulesFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	if err := ApplyRules(cfg, data); err != nil {
		return fmt.Errorf("rules file %s: %w", path, err)
	}
	cfg.RulesFile = path
	return nil
}

// ApplyRules parses YAML rules and applies them on top of cfg.
func ApplyRules(cfg *Config, data []byte) error {
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parse rules yaml: %w", err)
	}

	if v := rf.Thresholds.BumperDuration; v != nil {
		cfg.Thresholds.BumperDuration = *v
	}
	if v := rf.Thresholds.ReachDuration; v != nil {
		cfg.Thresholds.ReachDuration = *v
	}
	if v := rf.Thresholds.ReachViews; v != nil {
		cfg.Thresholds.ReachViews = *v
	}

	if err := mergeTable(cfg.Pricing.Benchmarks, rf.Benchmarks); err != nil {
		return fmt.Errorf("benchmarks: %w", err)
	}
	if err := mergeTable(cfg.Pricing.Costs, rf.Costs); err != nil {
		return fmt.Errorf("costs: %w", err)
	}

	if rf.CostFormula != "" {
		cfg.CostFormula = rf.CostFormula
	}
	if rf.Sheet != "" {
		cfg.Sheet = rf.Sheet
	}
	if rf.HeaderOffset != nil {
		cfg.HeaderOffset = *rf.HeaderOffset
	}
	if rf.LinkMarker != "" {
		cfg.LinkMarker = rf.LinkMarker
	}
	if rf.LookupTimeout != "" {
		d, err := time.ParseDuration(rf.LookupTimeout)
		if err != nil {
			return fmt.Errorf("lookup_timeout: %w", err)
		}
		cfg.LookupTimeout = d
	}
	return nil
}

func mergeTable(dst map[Category]float64, src map[string]float64) error {
	for name, v := range src {
		cat, err := ParseCategory(name)
		if err != nil {
			return err
		}
		dst[cat] = v
	}
	return nil
}
