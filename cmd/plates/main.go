// Command plates decomposes voxel models into catalog plates and prices
// the resulting bill of materials.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/config"
	"github.com/banshee-data/plate.report/internal/monitoring"
	"github.com/banshee-data/plate.report/internal/pipeline"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Overrides for config fields
	voxelSize   float64
	sortBy      string
	descending  bool
	outputDir   string
	dbPath      string
	catalogPath string
	workers     int
	allowHoles  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "plates",
	Short: "Decompose voxel models into rectangular plates and cost them",
	Long: `plates turns an STL mesh or a voxel CSV into a list of rectangular
plates drawn from a priced catalog, one layer at a time, and writes the parts
list, the bill of materials and optional plots.

Typical use:
  plates run model.stl --voxel-size 2 --render`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = monitoring.NewLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		monitoring.UseZap(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Pipeline config JSON (default: "+config.DefaultConfigPath+" if present)")
	rootCmd.PersistentFlags().Float64Var(&voxelSize, "voxel-size", 1.0, "Voxel edge length in mesh units")
	rootCmd.PersistentFlags().StringVar(&sortBy, "sort", "location", "Parts list order: location or type")
	rootCmd.PersistentFlags().BoolVar(&descending, "descending", false, "Reverse the parts list order")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "out", "o", "out", "Output directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "plates.db", "Run history database (empty disables)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog YAML (default: built-in plate table)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 1, "Layers decomposed concurrently")
	rootCmd.PersistentFlags().BoolVar(&allowHoles, "allow-no-unit", false, "Skip the 1x1 catalog check and let the sweep report uncovered cells")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(voxelizeCmd)
	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(bomCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file (explicit, else the defaults file when
// present) and overlays every flag the user set.
func loadConfig(cmd *cobra.Command) (*config.PipelineConfig, error) {
	cfg := config.EmptyPipelineConfig()
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadPipelineConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	overlay := &config.PipelineConfig{}
	if flags.Changed("voxel-size") {
		overlay.VoxelSize = &voxelSize
	}
	if flags.Changed("sort") {
		overlay.SortBy = &sortBy
	}
	if flags.Changed("descending") {
		asc := !descending
		overlay.Ascending = &asc
	}
	if flags.Changed("out") {
		overlay.OutputDir = &outputDir
	}
	if flags.Changed("db") {
		overlay.DBPath = &dbPath
	}
	if flags.Changed("catalog") {
		overlay.CatalogPath = &catalogPath
	}
	if flags.Changed("workers") {
		overlay.ParallelLayers = &workers
	}
	if flags.Changed("allow-no-unit") {
		requireUnit := !allowHoles
		overlay.RequireUnitShape = &requireUnit
	}
	cfg.Merge(overlay)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadCatalog(cfg *config.PipelineConfig) (*catalog.Catalog, error) {
	if p := cfg.GetCatalogPath(); p != "" {
		return catalog.Load(p)
	}
	return catalog.Default(), nil
}

// newPipeline builds a pipeline from an already loaded config.
func newPipeline(cfg *config.PipelineConfig, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	c, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)
	return pipeline.New(cfg, c, opts...)
}

// stagePipeline loads the config once and builds a pipeline without run
// history.
func stagePipeline(cmd *cobra.Command) (*pipeline.Pipeline, *config.PipelineConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}
