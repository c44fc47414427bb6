// Package loader turns the raw per-date files discovered by processors into
// batched, training-ready sample files, and owns the dataset manifests that
// describe the generated output.
package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/producer"
)

// Source describes one upstream producer's contribution to a dataset: which
// variables it provides and where each variable's daily files live.
type Source struct {
	// VarFiles maps variable name to the raw daily files backing it.
	VarFiles map[string][]string `json:"var_files"`
	// Dates records the split target dates this source was configured with.
	Dates map[string][]string `json:"dates"`
}

// Config is the persisted loader configuration, loader.<name>.json. It is
// produced from a recipe (see BuildConfig) and consumed by loader
// implementations.
type Config struct {
	Identifier  string            `json:"identifier"`
	Hemisphere  string            `json:"hemisphere"`
	Shape       [2]int            `json:"shape"`
	GroundTruth string            `json:"ground_truth"`
	Sources     map[string]Source `json:"sources"`
}

// ConfigFilename returns the conventional loader config name for a dataset.
func ConfigFilename(name string) string {
	return fmt.Sprintf("loader.%s.json", name)
}

// ReadConfig loads and validates a loader.<name>.json file.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loader config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse loader config %s: %w", path, err)
	}
	if cfg.GroundTruth == "" {
		cfg.GroundTruth = "siconca"
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("loader config %s: no sources", path)
	}
	if cfg.Shape[0] <= 0 || cfg.Shape[1] <= 0 {
		return nil, fmt.Errorf("loader config %s: invalid shape %v", path, cfg.Shape)
	}
	return &cfg, nil
}

// GridShape returns the config's grid shape.
func (c *Config) GridShape() domain.GridShape {
	return domain.GridShape{Height: c.Shape[0], Width: c.Shape[1]}
}

// SplitDates decodes the per-split target dates recorded in the config,
// merged across sources and deduplicated.
func (c *Config) SplitDates() (producer.DateSplits, error) {
	var splits producer.DateSplits
	for _, name := range producer.SplitNames {
		seen := make(map[time.Time]struct{})
		var dates []time.Time
		for srcName, src := range c.Sources {
			for _, s := range src.Dates[name] {
				d, err := time.Parse(domain.ManifestDateFormat, s)
				if err != nil {
					return splits, fmt.Errorf("source %s: bad %s date %q: %w", srcName, name, s, err)
				}
				if _, ok := seen[d]; ok {
					continue
				}
				seen[d] = struct{}{}
				dates = append(dates, d)
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		switch name {
		case "train":
			splits.Train = dates
		case "val":
			splits.Val = dates
		case "test":
			splits.Test = dates
		}
	}
	return splits, nil
}

// Recipe is the YAML description a user writes to configure a dataset:
// which sources and variables feed it and which date ranges make up each
// split. BuildConfig expands it into a concrete loader config by running
// source discovery.
type Recipe struct {
	Identifier  string         `yaml:"identifier"`
	Shape       [2]int         `yaml:"shape"`
	GroundTruth string         `yaml:"ground_truth"`
	Sources     []RecipeSource `yaml:"sources"`
	Splits      RecipeSplits   `yaml:"splits"`
}

// RecipeSource selects variables from one producer tree.
type RecipeSource struct {
	Name        string   `yaml:"name"`
	Vars        []string `yaml:"vars"`
	FileFilters []string `yaml:"file_filters"`
}

// RecipeSplits gives the inclusive target date range per split.
type RecipeSplits struct {
	Train RecipeRange `yaml:"train"`
	Val   RecipeRange `yaml:"val"`
	Test  RecipeRange `yaml:"test"`
}

// RecipeRange is an inclusive calendar date range.
type RecipeRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

func (r RecipeRange) dates() ([]time.Time, error) {
	if r.Start == "" && r.End == "" {
		return nil, nil
	}
	start, err := domain.ParseDate(r.Start)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(r.End)
	if err != nil {
		return nil, err
	}
	return domain.DateRange(start, end), nil
}

// ReadRecipe parses a recipe YAML file.
func ReadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe %s: %w", path, err)
	}
	if r.Identifier == "" {
		return nil, fmt.Errorf("recipe %s: identifier is required", path)
	}
	if len(r.Sources) == 0 {
		return nil, fmt.Errorf("recipe %s: at least one source is required", path)
	}
	return &r, nil
}

// BuildConfig expands a recipe into a loader config: for every source it
// runs Processor discovery over the lag/lead-widened working date set and
// records the matched files per variable. lag and lead widen the windows so
// context dates around each split target are discovered too.
func BuildConfig(recipe *Recipe, hemi domain.Hemisphere, sourcePath, dataPath string, lag, lead int, logger *slog.Logger) (*Config, error) {
	splits, err := recipeSplits(recipe.Splits)
	if err != nil {
		return nil, err
	}
	if splits.Total() == 0 {
		return nil, fmt.Errorf("recipe %s: no split dates configured", recipe.Identifier)
	}

	cfg := &Config{
		Identifier:  recipe.Identifier,
		Hemisphere:  hemi.String(),
		Shape:       recipe.Shape,
		GroundTruth: recipe.GroundTruth,
		Sources:     make(map[string]Source, len(recipe.Sources)),
	}
	if cfg.GroundTruth == "" {
		cfg.GroundTruth = "siconca"
	}

	for _, rs := range recipe.Sources {
		proc, err := producer.NewProcessor(producer.ProcessorConfig{
			Config: producer.Config{
				Identifier: rs.Name,
				Hemisphere: hemi,
				Path:       dataPath,
			},
			SourceData:  sourcePath,
			FileFilters: rs.FileFilters,
			Dates: producer.DateSplits{
				Train: domain.WorkingDates(splits.Train, lag, lead),
				Val:   domain.WorkingDates(splits.Val, lag, lead),
				Test:  domain.WorkingDates(splits.Test, lag, lead),
			},
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := proc.InitSourceData(); err != nil {
			return nil, err
		}

		src := Source{
			VarFiles: make(map[string][]string),
			Dates:    encodeSplits(splits),
		}
		for _, v := range rs.Vars {
			files := proc.VarFiles()[v]
			if len(files) == 0 {
				return nil, fmt.Errorf("source %s: no files discovered for variable %q", rs.Name, v)
			}
			src.VarFiles[v] = files
		}
		cfg.Sources[rs.Name] = src
	}

	return cfg, nil
}

// Write persists the config as loader.<identifier>.json in dir.
func (c *Config) Write(dir string) (string, error) {
	path := filepath.Join(dir, ConfigFilename(c.Identifier))
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode loader config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write loader config: %w", err)
	}
	return path, nil
}

func recipeSplits(rs RecipeSplits) (producer.DateSplits, error) {
	var out producer.DateSplits
	var err error
	if out.Train, err = rs.Train.dates(); err != nil {
		return out, fmt.Errorf("train split: %w", err)
	}
	if out.Val, err = rs.Val.dates(); err != nil {
		return out, fmt.Errorf("val split: %w", err)
	}
	if out.Test, err = rs.Test.dates(); err != nil {
		return out, fmt.Errorf("test split: %w", err)
	}
	return out, nil
}

func encodeSplits(s producer.DateSplits) map[string][]string {
	out := make(map[string][]string, len(producer.SplitNames))
	for _, name := range producer.SplitNames {
		dates := s.ForName(name)
		enc := make([]string, len(dates))
		for i, d := range dates {
			enc[i] = d.Format(domain.ManifestDateFormat)
		}
		out[name] = enc
	}
	return out
}
