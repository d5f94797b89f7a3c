// Package config reads the TOML file describing a premise run: where the
// baseline inventory and the IAM scenario files live, which scenarios to
// build and how.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	premise "github.com/polca/premise-sub000"
	"github.com/polca/premise-sub000/geo"
	"github.com/polca/premise-sub000/iam"
	"github.com/polca/premise-sub000/sector"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	Attributional = "attributional"
	Consequential = "consequential"

	SourceDir = "dir"
	SourceS3  = "s3"
	SourceGCS = "gcs"

	DefaultKeyEnv = "IAM_FILES_KEY"

	minYear = 2005
	maxYear = 2100
)

type InventoryConfig struct {
	Path          string `toml:"path"`
	Database      string `toml:"database"`
	SourceVersion string `toml:"source_version"`
	Clean         bool   `toml:"clean"`
}

type IAMConfig struct {
	Source          string `toml:"source"`
	Path            string `toml:"path"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	PathStyle       bool   `toml:"path_style"`
	CredentialsFile string `toml:"credentials_file"`
	KeyEnv          string `toml:"key_env"`
	Extrapolate     bool   `toml:"extrapolate"`
}

// Key returns the decryption key of the scenario files, empty when they
// are not encrypted.
func (c IAMConfig) Key() string {
	return os.Getenv(c.KeyEnv)
}

type TransformConfig struct {
	Sectors           []string `toml:"sectors"`
	DropUnresolved    bool     `toml:"drop_unresolved"`
	Intersection      bool     `toml:"intersection"`
	CacheSize         int      `toml:"cache_size"`
	Parallel          int      `toml:"parallel"`
	FallbackLocations []string `toml:"fallback_locations"`
}

type OutputConfig struct {
	Directory   string `toml:"directory"`
	AuditDir    string `toml:"audit_dir"`
	MetricsFile string `toml:"metrics_file"`
}

type ScenarioConfig struct {
	Model       string `toml:"model"`
	Pathway     string `toml:"pathway"`
	Year        int    `toml:"year"`
	SystemModel string `toml:"system_model"`
	Horizon     int    `toml:"horizon"`
}

func (sc ScenarioConfig) Consequential() bool {
	return sc.SystemModel == Consequential
}

// Scenario identifies the scenario, model name normalized.
func (sc ScenarioConfig) Scenario() premise.Scenario {
	model, err := iam.NormalizeModel(sc.Model)
	if err != nil {
		model = sc.Model
	}
	return premise.Scenario{Model: model, Pathway: sc.Pathway, Year: sc.Year}
}

type Config struct {
	Inventory InventoryConfig  `toml:"inventory"`
	IAM       IAMConfig        `toml:"iam"`
	Transform TransformConfig  `toml:"transform"`
	Output    OutputConfig     `toml:"output"`
	Scenarios []ScenarioConfig `toml:"scenarios"`
}

// Load reads, completes with defaults and validates the configuration
// file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills the settings left empty.
func (cfg *Config) SetDefaults() {
	if cfg.Inventory.SourceVersion == "" {
		cfg.Inventory.SourceVersion = geo.DefaultSourceVersion
	}
	if cfg.IAM.Source == "" {
		cfg.IAM.Source = SourceDir
	}
	if cfg.IAM.KeyEnv == "" {
		cfg.IAM.KeyEnv = DefaultKeyEnv
	}
	if len(cfg.Transform.Sectors) == 0 {
		cfg.Transform.Sectors = sector.Names()
	}
	if cfg.Transform.Parallel <= 0 {
		cfg.Transform.Parallel = runtime.NumCPU()
	}
	for i := range cfg.Scenarios {
		if cfg.Scenarios[i].SystemModel == "" {
			cfg.Scenarios[i].SystemModel = Attributional
		}
		if cfg.Scenarios[i].Horizon <= 0 {
			cfg.Scenarios[i].Horizon = sector.DefaultHorizon
		}
	}
}

// Validate fails on the first setting that cannot be run. Errors wrap
// ErrInvalid; scenario errors are *premise.ScenarioErr.
func (cfg *Config) Validate() error {
	if cfg.Inventory.Path == "" {
		return fmt.Errorf("%w: inventory path required", ErrInvalid)
	}
	if !slices.Contains(geo.SourceVersions(), cfg.Inventory.SourceVersion) {
		return fmt.Errorf("%w: unknown inventory source version %q (known: %s)", ErrInvalid, cfg.Inventory.SourceVersion, strings.Join(geo.SourceVersions(), ", "))
	}

	switch cfg.IAM.Source {
	case SourceDir:
		if cfg.IAM.Path == "" {
			return fmt.Errorf("%w: iam path required for source %q", ErrInvalid, SourceDir)
		}
	case SourceS3, SourceGCS:
		if cfg.IAM.Bucket == "" {
			return fmt.Errorf("%w: iam bucket required for source %q", ErrInvalid, cfg.IAM.Source)
		}
	default:
		return fmt.Errorf("%w: unknown iam source %q (dir, s3, gcs)", ErrInvalid, cfg.IAM.Source)
	}

	for _, name := range cfg.Transform.Sectors {
		if !slices.Contains(sector.Names(), name) {
			return fmt.Errorf("%w: %w: %s", ErrInvalid, sector.ErrUnknownSector, name)
		}
	}
	if cfg.Transform.CacheSize < 0 {
		return fmt.Errorf("%w: negative cache size", ErrInvalid)
	}

	if len(cfg.Scenarios) == 0 {
		return fmt.Errorf("%w: no scenario", ErrInvalid)
	}
	seen := make(map[premise.Scenario]bool, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		if err := sc.validate(); err != nil {
			return &premise.ScenarioErr{Scenario: sc.Scenario(), Operation: "validate", Err: err}
		}
		if seen[sc.Scenario()] {
			return &premise.ScenarioErr{Scenario: sc.Scenario(), Operation: "validate", Err: fmt.Errorf("%w: duplicate scenario", ErrInvalid)}
		}
		seen[sc.Scenario()] = true
	}
	return nil
}

func (sc ScenarioConfig) validate() error {
	if _, err := iam.NormalizeModel(sc.Model); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if strings.TrimSpace(sc.Pathway) == "" {
		return fmt.Errorf("%w: empty pathway", ErrInvalid)
	}
	if sc.Year < minYear || sc.Year > maxYear {
		return fmt.Errorf("%w: year %d outside %d..%d", ErrInvalid, sc.Year, minYear, maxYear)
	}
	switch sc.SystemModel {
	case Attributional, Consequential:
	default:
		return fmt.Errorf("%w: unknown system model %q", ErrInvalid, sc.SystemModel)
	}
	return nil
}
