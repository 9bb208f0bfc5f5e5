package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/pvtag/pvtag/internal/assign"
	"github.com/pvtag/pvtag/internal/extract"
	"github.com/pvtag/pvtag/internal/logger"
	"github.com/pvtag/pvtag/internal/pipeline"
	"github.com/pvtag/pvtag/internal/review"
	"github.com/pvtag/pvtag/pkg/labelformat"
)

type Config struct {
	Extract ExtractConfig `toml:"extract"`
	Assign  AssignConfig  `toml:"assign"`
	Format  FormatConfig  `toml:"format"`
	Colors  ColorConfig   `toml:"colors"`
	Log     LogConfig     `toml:"log"`
}

type ExtractConfig struct {
	YTolerance       float64 `toml:"y_tolerance"`
	MinimumWidth     float64 `toml:"minimum_width"`
	Merge            bool    `toml:"merge"`
	GapTolerance     float64 `toml:"gap_tolerance"`
	MaxMergeDistance float64 `toml:"max_merge_distance"`
}

type AssignConfig struct {
	Station      string  `toml:"station"`
	Advanced     bool    `toml:"advanced"`
	SearchRadius float64 `toml:"search_radius"`
	Location     string  `toml:"location"`
}

type FormatConfig struct {
	InputPattern  string `toml:"input_pattern"`
	OutputPattern string `toml:"output_pattern"` // empty keeps the label id
}

type ColorConfig struct {
	Assigned   string `toml:"assigned"`
	Unassigned string `toml:"unassigned"`
	Selected   string `toml:"selected"`
	Marked     string `toml:"marked"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func NewDefaultConfig() *Config {
	ex := extract.DefaultOptions()
	mg := extract.DefaultMergeOptions()
	as := assign.DefaultOptions()

	return &Config{
		Extract: ExtractConfig{
			YTolerance:       ex.YTolerance,
			MinimumWidth:     ex.MinimumWidth,
			Merge:            true,
			GapTolerance:     mg.GapTolerance,
			MaxMergeDistance: mg.MaxMergeDistance,
		},
		Assign: AssignConfig{
			SearchRadius: as.SearchRadius,
			Location:     as.Location.String(),
		},
		Format: FormatConfig{
			InputPattern: labelformat.DefaultPattern,
		},
		Colors: ColorConfig{
			Assigned:   "green",
			Unassigned: "red",
			Selected:   "blue",
			Marked:     "yellow",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func LoadConfigFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // no config file, return defaults
	}

	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}
	for _, key := range meta.Undecoded() {
		slog.Warn("unknown config key", "file", path, "key", key.String())
	}

	return config, nil
}

// Params converts the config into pipeline parameters.
func (c *Config) Params() (pipeline.Params, error) {
	loc, err := assign.ParseLocation(c.Assign.Location)
	if err != nil {
		return pipeline.Params{}, err
	}

	return pipeline.Params{
		Extract: extract.Options{
			YTolerance:   c.Extract.YTolerance,
			MinimumWidth: c.Extract.MinimumWidth,
		},
		Merge: c.Extract.Merge,
		MergeOpt: extract.MergeOptions{
			GapTolerance:     c.Extract.GapTolerance,
			MaxMergeDistance: c.Extract.MaxMergeDistance,
		},
		Assign: assign.Options{
			SearchRadius: c.Assign.SearchRadius,
			Location:     loc,
		},
		Station:  c.Assign.Station,
		Advanced: c.Assign.Advanced,
	}, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if params, err := c.Params(); err != nil {
		errs = append(errs, fmt.Errorf("assign: %w", err))
	} else if err := params.Validate(); err != nil {
		errs = append(errs, err)
	}

	input, err := labelformat.Compile(c.Format.InputPattern)
	if err != nil {
		errs = append(errs, fmt.Errorf("format.input_pattern: %w", err))
	}
	if c.Format.OutputPattern != "" {
		var known []string
		if input != nil {
			known = input.Fields()
		}
		if err := labelformat.ValidateWith(c.Format.OutputPattern, known); err != nil {
			errs = append(errs, fmt.Errorf("format.output_pattern: %w", err))
		}
	}

	for _, col := range []struct{ key, name string }{
		{"assigned", c.Colors.Assigned},
		{"unassigned", c.Colors.Unassigned},
		{"selected", c.Colors.Selected},
		{"marked", c.Colors.Marked},
	} {
		if _, err := review.ParseColor(col.name); err != nil {
			errs = append(errs, fmt.Errorf("colors.%s: %w", col.key, err))
		}
	}

	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// ViewColors resolves the review colors. Call Validate first.
func (c *Config) ViewColors() review.ViewColors {
	return review.ViewColors{
		Assigned:   review.GetColor(c.Colors.Assigned),
		Unassigned: review.GetColor(c.Colors.Unassigned),
		Selected:   review.GetColor(c.Colors.Selected),
		Marked:     review.GetColor(c.Colors.Marked),
	}
}
