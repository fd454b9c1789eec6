package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHeightStart = 0.0
	DefaultHeightStop  = 10000.0
	DefaultHeightStep  = 40.0
	DefaultIterations  = 10
	DefaultStrategy    = "both"
)

type Config struct {
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	Workers     int    `yaml:"workers"`
	LevelsTable string `yaml:"levels_table"`

	// Variables restricts which input variables are loaded. Empty loads
	// everything; the pipeline adds the variables a stage cannot run
	// without.
	Variables []string `yaml:"variables"`

	Domain     DomainConfig     `yaml:"domain"`
	Heights    HeightsConfig    `yaml:"heights"`
	Forcing    ForcingConfig    `yaml:"forcing"`
	Trajectory TrajectoryConfig `yaml:"trajectory"`
}

// DomainConfig bounds the horizontal subset, in degrees. A lon_min above
// lon_max selects a window across the date line.
type DomainConfig struct {
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
}

// HeightsConfig spans the output height grid [start, stop) in metres.
type HeightsConfig struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

type ForcingConfig struct {
	Lat       float64  `yaml:"lat"`
	Lon       float64  `yaml:"lon"`
	Strategy  string   `yaml:"strategy"`
	Mask      string   `yaml:"mask"`
	Variables []string `yaml:"variables"`
	UTraj     float64  `yaml:"u_traj"`
	VTraj     float64  `yaml:"v_traj"`
}

type TrajectoryConfig struct {
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	Start      int     `yaml:"start"`
	Steps      int     `yaml:"steps"`
	Iterations int     `yaml:"iterations"`
}

func DefaultConfig() *Config {
	return &Config{
		Output: "out.nc",
		Domain: DomainConfig{
			LatMin: 11.3,
			LatMax: 15.3,
			LonMin: -59.717,
			LonMax: -55.717,
		},
		Heights: HeightsConfig{
			Start: DefaultHeightStart,
			Stop:  DefaultHeightStop,
			Step:  DefaultHeightStep,
		},
		Forcing: ForcingConfig{
			Lat:       13.3,
			Lon:       -57.717,
			Strategy:  DefaultStrategy,
			Mask:      "ocean",
			Variables: []string{"u", "v", "p_f", "theta"},
			UTraj:     -6,
			VTraj:     0,
		},
		Trajectory: TrajectoryConfig{
			Lat:        13.3,
			Lon:        -57.717,
			Start:      30,
			Steps:      3,
			Iterations: DefaultIterations,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
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

// Levels expands the height grid, [start, stop) spaced by step.
func (h HeightsConfig) Levels() []float64 {
	if h.Step <= 0 {
		return nil
	}
	levels := make([]float64, 0, int((h.Stop-h.Start)/h.Step)+1)
	for v := h.Start; v < h.Stop; v += h.Step {
		levels = append(levels, v)
	}
	return levels
}

func (c *Config) Validate() error {
	if c.Heights.Step <= 0 {
		return fmt.Errorf("config: height step must be positive, have %g", c.Heights.Step)
	}
	if c.Heights.Stop <= c.Heights.Start {
		return fmt.Errorf("config: height range %g..%g is empty", c.Heights.Start, c.Heights.Stop)
	}
	if c.Domain.LatMin > c.Domain.LatMax {
		return fmt.Errorf("config: latitude range %g..%g is empty", c.Domain.LatMin, c.Domain.LatMax)
	}
	if c.Trajectory.Iterations < 0 {
		return fmt.Errorf("config: trajectory iterations must not be negative, have %d", c.Trajectory.Iterations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, have %d", c.Workers)
	}
	return nil
}
