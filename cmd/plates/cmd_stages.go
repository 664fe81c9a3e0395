package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/plate.report/internal/bom"
	"github.com/banshee-data/plate.report/internal/fsutil"
	"github.com/banshee-data/plate.report/internal/pipeline"
	"github.com/banshee-data/plate.report/internal/tabular"
)

var voxelizeCmd = &cobra.Command{
	Use:   "voxelize <model.stl>",
	Short: "Voxelize an STL mesh into a voxel CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoxelize,
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose <voxels.csv|model.stl>",
	Short: "Decompose voxels into catalog plates and write the parts list",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecompose,
}

var bomCmd = &cobra.Command{
	Use:   "bom <parts.csv>",
	Short: "Count and price a parts list",
	Args:  cobra.ExactArgs(1),
	RunE:  runBOM,
}

var renderCmd = &cobra.Command{
	Use:   "render <parts.csv>",
	Short: "Draw layer PNGs, the BOM chart and a 3D scene from a parts list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func runVoxelize(cmd *cobra.Command, args []string) error {
	if !strings.EqualFold(filepath.Ext(args[0]), ".stl") {
		return fmt.Errorf("voxelize expects an .stl file, got %q", args[0])
	}
	p, cfg, err := stagePipeline(cmd)
	if err != nil {
		return err
	}
	g, _, err := p.LoadGrid(args[0])
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.GetOutputDir(), pipeline.Stem(args[0])+"_voxels.csv")
	if err := fsutil.WriteWith(fsutil.OSFileSystem{}, path, func(w io.Writer) error {
		return tabular.WriteVoxels(w, g.Coords())
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Grid %s, %d filled voxels -> %s\n", g.Dims(), g.Count(), path)
	return nil
}

func runDecompose(cmd *cobra.Command, args []string) error {
	p, cfg, err := stagePipeline(cmd)
	if err != nil {
		return err
	}
	g, _, err := p.LoadGrid(args[0])
	if err != nil {
		return err
	}
	placements, err := p.Decompose(g)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.GetOutputDir(), pipeline.Stem(args[0])+"_parts.csv")
	if err := fsutil.WriteWith(fsutil.OSFileSystem{}, path, func(w io.Writer) error {
		return tabular.WriteParts(w, placements)
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cells -> %d parts -> %s\n", g.Count(), len(placements), path)
	return nil
}

func runBOM(cmd *cobra.Command, args []string) error {
	p, cfg, err := stagePipeline(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	counts, err := tabular.CountParts(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	b, err := bom.FromCounts(counts, p.Catalog())
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.GetOutputDir(), pipeline.Stem(args[0])+"_bom.csv")
	if err := fsutil.WriteWith(fsutil.OSFileSystem{}, path, func(w io.Writer) error {
		return tabular.WriteBOM(w, b)
	}); err != nil {
		return err
	}
	printBOM(cmd, b)
	fmt.Fprintf(cmd.OutOrStdout(), "BOM has been written to %s\n", path)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	p, cfg, err := stagePipeline(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	placements, err := tabular.ReadParts(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	if err := bom.CheckFootprints(placements, p.Catalog()); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	b, err := bom.Build(placements, p.Catalog())
	if err != nil {
		return err
	}

	arts, err := p.Render(cfg.GetOutputDir(), pipeline.Stem(args[0]), pipeline.Extent(placements), placements, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d layer images, %s and %s\n", len(arts.Layers), arts.BOMChart, arts.Scene)
	return nil
}
