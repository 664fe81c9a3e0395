package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// PipelineConfig holds the knobs of a decomposition run. Every field is
// optional; the Get* methods supply the default for anything unset.
type PipelineConfig struct {
	// Voxelization
	VoxelSize *float64 `json:"voxel_size,omitempty"`

	// Decomposition
	ParallelLayers   *int    `json:"parallel_layers,omitempty"`
	RequireUnitShape *bool   `json:"require_unit_shape,omitempty"`
	CatalogPath      *string `json:"catalog_path,omitempty"` // YAML; empty means the built-in catalog

	// Part list ordering
	SortBy    *string `json:"sort_by,omitempty"` // "location" or "type"
	Ascending *bool   `json:"ascending,omitempty"`

	// Outputs
	OutputDir        *string  `json:"output_dir,omitempty"`
	DBPath           *string  `json:"db_path,omitempty"` // empty disables run history
	PlotWidthInches  *float64 `json:"plot_width_inches,omitempty"`
	PlotHeightInches *float64 `json:"plot_height_inches,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields set to nil.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field populated from
// the Get* defaults.
func DefaultPipelineConfig() *PipelineConfig {
	e := EmptyPipelineConfig()
	return &PipelineConfig{
		VoxelSize:        ptrFloat64(e.GetVoxelSize()),
		ParallelLayers:   ptrInt(e.GetParallelLayers()),
		RequireUnitShape: ptrBool(e.GetRequireUnitShape()),
		CatalogPath:      ptrString(e.GetCatalogPath()),
		SortBy:           ptrString(e.GetSortBy()),
		Ascending:        ptrBool(e.GetAscending()),
		OutputDir:        ptrString(e.GetOutputDir()),
		DBPath:           ptrString(e.GetDBPath()),
		PlotWidthInches:  ptrFloat64(e.GetPlotWidthInches()),
		PlotHeightInches: ptrFloat64(e.GetPlotHeightInches()),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file fall back to their defaults.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/plates/
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.VoxelSize != nil {
		if v := *c.VoxelSize; v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("voxel_size must be positive, got %v", v)
		}
	}

	if c.ParallelLayers != nil && *c.ParallelLayers < 0 {
		return fmt.Errorf("parallel_layers must be non-negative, got %d", *c.ParallelLayers)
	}

	if c.SortBy != nil && *c.SortBy != "" {
		switch *c.SortBy {
		case "location", "type":
		default:
			return fmt.Errorf("sort_by must be \"location\" or \"type\", got %q", *c.SortBy)
		}
	}

	if c.PlotWidthInches != nil && *c.PlotWidthInches <= 0 {
		return fmt.Errorf("plot_width_inches must be positive, got %v", *c.PlotWidthInches)
	}
	if c.PlotHeightInches != nil && *c.PlotHeightInches <= 0 {
		return fmt.Errorf("plot_height_inches must be positive, got %v", *c.PlotHeightInches)
	}

	return nil
}

// Merge overlays every field set in o onto c.
func (c *PipelineConfig) Merge(o *PipelineConfig) {
	if o == nil {
		return
	}
	if o.VoxelSize != nil {
		c.VoxelSize = o.VoxelSize
	}
	if o.ParallelLayers != nil {
		c.ParallelLayers = o.ParallelLayers
	}
	if o.RequireUnitShape != nil {
		c.RequireUnitShape = o.RequireUnitShape
	}
	if o.CatalogPath != nil {
		c.CatalogPath = o.CatalogPath
	}
	if o.SortBy != nil {
		c.SortBy = o.SortBy
	}
	if o.Ascending != nil {
		c.Ascending = o.Ascending
	}
	if o.OutputDir != nil {
		c.OutputDir = o.OutputDir
	}
	if o.DBPath != nil {
		c.DBPath = o.DBPath
	}
	if o.PlotWidthInches != nil {
		c.PlotWidthInches = o.PlotWidthInches
	}
	if o.PlotHeightInches != nil {
		c.PlotHeightInches = o.PlotHeightInches
	}
}

// GetVoxelSize returns the voxel_size value or the default.
func (c *PipelineConfig) GetVoxelSize() float64 {
	if c.VoxelSize == nil {
		return 1.0
	}
	return *c.VoxelSize
}

// GetParallelLayers returns the parallel_layers value or the default (1, sequential).
func (c *PipelineConfig) GetParallelLayers() int {
	if c.ParallelLayers == nil || *c.ParallelLayers == 0 {
		return 1
	}
	return *c.ParallelLayers
}

// GetRequireUnitShape returns the require_unit_shape value or the default.
func (c *PipelineConfig) GetRequireUnitShape() bool {
	if c.RequireUnitShape == nil {
		return true
	}
	return *c.RequireUnitShape
}

// GetCatalogPath returns the catalog_path value or the default.
func (c *PipelineConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// GetSortBy returns the sort_by value or the default.
func (c *PipelineConfig) GetSortBy() string {
	if c.SortBy == nil || *c.SortBy == "" {
		return "location"
	}
	return *c.SortBy
}

// GetAscending returns the ascending value or the default.
func (c *PipelineConfig) GetAscending() bool {
	if c.Ascending == nil {
		return true
	}
	return *c.Ascending
}

// GetOutputDir returns the output_dir value or the default.
func (c *PipelineConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "out"
	}
	return *c.OutputDir
}

// GetDBPath returns the db_path value or the default.
func (c *PipelineConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "plates.db"
	}
	return *c.DBPath
}

// GetPlotWidthInches returns the plot_width_inches value or the default.
func (c *PipelineConfig) GetPlotWidthInches() float64 {
	if c.PlotWidthInches == nil {
		return 8
	}
	return *c.PlotWidthInches
}

// GetPlotHeightInches returns the plot_height_inches value or the default.
func (c *PipelineConfig) GetPlotHeightInches() float64 {
	if c.PlotHeightInches == nil {
		return 8
	}
	return *c.PlotHeightInches
}
