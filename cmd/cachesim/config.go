package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/cache"
)

// LevelConfig describes one node in a cache chain: its geometry string
// (the same "sets:ways:blocksize[:lru]" grammar cache.ParseConfig
// accepts) and its write policy. Each level's miss handler is the next
// level in the slice; the last level has none.
type LevelConfig struct {
	Name      string `json:"name"`
	Geometry  string `json:"geometry"`
	WriteBack bool   `json:"write_back"`
}

// RunConfig describes a full cache hierarchy for the run subcommand to
// build and drive, following the same load/save/validate/clone shape the
// timing configuration in the teacher's latency package uses for its own
// JSON file.
type RunConfig struct {
	Levels []LevelConfig `json:"levels"`
}

// DefaultRunConfig returns a two-level L1/L2 hierarchy, both write-back,
// L1 direct-mapped and L2 4-way set-associative with LRU.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Levels: []LevelConfig{
			{Name: "L1", Geometry: "64:1:64", WriteBack: true},
			{Name: "L2", Geometry: "256:4:64:lru", WriteBack: true},
		},
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config file: %w", err)
	}

	cfg := DefaultRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes a RunConfig to a JSON file.
func (c *RunConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run config file: %w", err)
	}
	return nil
}

// Validate checks that every level has a name, a unique name among its
// siblings, and a geometry string cache.ParseConfig accepts.
func (c *RunConfig) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("run config must declare at least one cache level")
	}

	seen := make(map[string]bool, len(c.Levels))
	for _, lvl := range c.Levels {
		if lvl.Name == "" {
			return fmt.Errorf("every cache level must have a name")
		}
		if seen[lvl.Name] {
			return fmt.Errorf("duplicate cache level name %q", lvl.Name)
		}
		seen[lvl.Name] = true

		if _, err := cache.ParseConfig(lvl.Geometry); err != nil {
			return fmt.Errorf("level %q: %w", lvl.Name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the RunConfig.
func (c *RunConfig) Clone() *RunConfig {
	levels := make([]LevelConfig, len(c.Levels))
	copy(levels, c.Levels)
	return &RunConfig{Levels: levels}
}

// BuildChain constructs one cache.Cache per level, wiring each level's
// miss handler to the next, and returns them outermost-first.
func (rc *RunConfig) BuildChain() ([]*cache.Cache, error) {
	caches := make([]*cache.Cache, len(rc.Levels))
	for i, lvl := range rc.Levels {
		cfg, err := cache.ParseConfig(lvl.Geometry)
		if err != nil {
			return nil, fmt.Errorf("level %q: %w", lvl.Name, err)
		}

		opts := []cache.Option{}
		if !lvl.WriteBack {
			opts = append(opts, cache.WithWritePolicy(cache.WriteThrough))
		}

		node, err := cache.New(lvl.Name, cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("level %q: %w", lvl.Name, err)
		}
		caches[i] = node
	}

	for i := 0; i < len(caches)-1; i++ {
		caches[i].SetMissHandler(caches[i+1])
	}
	return caches, nil
}
