package ebsd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/misorient.report/internal/units"
)

// RunConfig is the JSON run configuration. The schema uses pointer-typed
// optional fields so a partial file merges over the defaults: fields omitted
// from the JSON retain their default values. Flags may override the file
// afterwards.
type RunConfig struct {
	// Symmetry group identifier (see GroupByName).
	Group *string `json:"group,omitempty"`

	// Distance strategy name (see ParseStrategy).
	Strategy *string `json:"strategy,omitempty"`

	// DBSCAN neighborhood radius in degrees. Internal computation is in
	// radians; degrees only appear at this boundary.
	EpsDegrees *float64 `json:"eps_degrees,omitempty"`

	// DBSCAN minimum neighborhood size (includes the point itself).
	MinPts *int `json:"min_pts,omitempty"`

	// Row-at-a-time worker count; 0 means one per CPU.
	Workers *int `json:"workers,omitempty"`

	// Memory budget for the distance working set in MiB.
	MemoryBudgetMB *int `json:"memory_budget_mb,omitempty"`
}

// Helper functions to create pointers.
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// DefaultRunConfig returns the canonical defaults: hexagonal symmetry,
// row-at-a-time strategy, 3° neighborhood, 10-point density threshold.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Group:          ptrString("hexagonal"),
		Strategy:       ptrString("row-at-a-time"),
		EpsDegrees:     ptrFloat64(3.0),
		MinPts:         ptrInt(10),
		Workers:        ptrInt(0),
		MemoryBudgetMB: ptrInt(DefaultMemoryBudgetBytes >> 20),
	}
}

// maxConfigFileSize bounds config reads for safety.
const maxConfigFileSize = 1 << 20 // 1MB

// LoadRunConfig loads a RunConfig from a JSON file and merges it over the
// defaults, so partial configs are safe.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q", ErrInvalidConfig, ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)",
			ErrInvalidConfig, info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded RunConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}

	cfg := DefaultRunConfig()
	cfg.Merge(&loaded)
	return cfg, nil
}

// Merge overlays every non-nil field of o onto c.
func (c *RunConfig) Merge(o *RunConfig) {
	if o == nil {
		return
	}
	if o.Group != nil {
		c.Group = o.Group
	}
	if o.Strategy != nil {
		c.Strategy = o.Strategy
	}
	if o.EpsDegrees != nil {
		c.EpsDegrees = o.EpsDegrees
	}
	if o.MinPts != nil {
		c.MinPts = o.MinPts
	}
	if o.Workers != nil {
		c.Workers = o.Workers
	}
	if o.MemoryBudgetMB != nil {
		c.MemoryBudgetMB = o.MemoryBudgetMB
	}
}

// Resolve validates the configuration and converts it into concrete
// pipeline options. Validation happens here, before any computation.
func (c *RunConfig) Resolve() (PipelineOptions, error) {
	var opts PipelineOptions

	if c.Group == nil || c.Strategy == nil || c.EpsDegrees == nil || c.MinPts == nil {
		return opts, fmt.Errorf("%w: run config missing required fields", ErrInvalidConfig)
	}

	group, err := GroupByName(*c.Group)
	if err != nil {
		return opts, err
	}
	strategy, err := ParseStrategy(*c.Strategy)
	if err != nil {
		return opts, err
	}

	opts.Group = group
	opts.Distance = DistanceParams{Strategy: strategy}
	if c.Workers != nil {
		opts.Distance.Workers = *c.Workers
	}
	if c.MemoryBudgetMB != nil {
		opts.Distance.MemoryBudgetBytes = uint64(*c.MemoryBudgetMB) << 20
	}
	opts.Cluster = DBSCANParams{
		Eps:    units.Radians(*c.EpsDegrees),
		MinPts: *c.MinPts,
	}
	if err := opts.Cluster.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
