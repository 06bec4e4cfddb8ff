package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/nsearch/internal/grid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSupportRadius    = 0.04
	DefaultDomainSize       = 1.0
	DefaultCellCapacity     = 50
	DefaultNeighborCapacity = 60
	DefaultStorage          = "dense"
	DefaultCubeOrigin       = 0.1
	DefaultCubeEdge         = 0.5
	DefaultCubeSpacing      = 0.025
	DefaultOutputDir        = ".nsearch"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Search SearchConfig `yaml:"search"`
	Source SourceConfig `yaml:"source"`
	Output OutputConfig `yaml:"output"`
}

// SearchConfig holds the engine parameters. CellSize 0 means "same as
// SupportRadius".
type SearchConfig struct {
	SupportRadius    float64    `yaml:"support_radius"`
	CellSize         float64    `yaml:"cell_size,omitempty"`
	DomainSize       [3]float64 `yaml:"domain_size,flow"`
	Storage          string     `yaml:"storage"`
	CellCapacity     int        `yaml:"cell_capacity"`
	NeighborCapacity int        `yaml:"neighbor_capacity"`
	Workers          int        `yaml:"workers"`
}

// SourceConfig says where positions come from: a PLY file when PLY is set,
// otherwise a cube lattice.
type SourceConfig struct {
	PLY    string     `yaml:"ply,omitempty"`
	Cube   CubeConfig `yaml:"cube"`
	Jitter float64    `yaml:"jitter"`
	Seed   int64      `yaml:"seed"`
}

type CubeConfig struct {
	Origin  [3]float64 `yaml:"origin,flow"`
	Edge    float64    `yaml:"edge"`
	Spacing float64    `yaml:"spacing"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			SupportRadius:    DefaultSupportRadius,
			DomainSize:       [3]float64{DefaultDomainSize, DefaultDomainSize, DefaultDomainSize},
			Storage:          DefaultStorage,
			CellCapacity:     DefaultCellCapacity,
			NeighborCapacity: DefaultNeighborCapacity,
		},
		Source: SourceConfig{
			Cube: CubeConfig{
				Origin:  [3]float64{DefaultCubeOrigin, DefaultCubeOrigin, DefaultCubeOrigin},
				Edge:    DefaultCubeEdge,
				Spacing: DefaultCubeSpacing,
			},
		},
		Output: OutputConfig{Dir: DefaultOutputDir},
	}
}

// Load reads a YAML file on top of DefaultConfig and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	s := c.Search
	if !(s.SupportRadius > 0) {
		return fmt.Errorf("%w: support_radius must be positive, got %v", ErrInvalidConfig, s.SupportRadius)
	}
	if s.CellSize < 0 {
		return fmt.Errorf("%w: cell_size must not be negative, got %v", ErrInvalidConfig, s.CellSize)
	}
	for axis, d := range s.DomainSize {
		if !(d > 0) {
			return fmt.Errorf("%w: domain_size[%d] must be positive, got %v", ErrInvalidConfig, axis, d)
		}
	}
	if s.CellCapacity <= 0 {
		return fmt.Errorf("%w: cell_capacity must be positive, got %d", ErrInvalidConfig, s.CellCapacity)
	}
	if s.NeighborCapacity <= 0 {
		return fmt.Errorf("%w: neighbor_capacity must be positive, got %d", ErrInvalidConfig, s.NeighborCapacity)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, s.Workers)
	}
	if _, err := grid.ParseKind(s.Storage); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Source.PLY == "" && (!(c.Source.Cube.Edge > 0) || !(c.Source.Cube.Spacing > 0)) {
		return fmt.Errorf("%w: cube edge and spacing must be positive", ErrInvalidConfig)
	}
	if c.Source.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative, got %v", ErrInvalidConfig, c.Source.Jitter)
	}
	return nil
}

// StorageKind returns the parsed storage selector.
func (s SearchConfig) StorageKind() grid.Kind {
	k, _ := grid.ParseKind(s.Storage)
	return k
}

// EffectiveCellSize resolves the CellSize default.
func (s SearchConfig) EffectiveCellSize() float64 {
	if s.CellSize > 0 {
		return s.CellSize
	}
	return s.SupportRadius
}
