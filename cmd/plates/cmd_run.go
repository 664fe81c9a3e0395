package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/plate.report/internal/bom"
	"github.com/banshee-data/plate.report/internal/db"
	"github.com/banshee-data/plate.report/internal/pipeline"
)

var renderPlots bool

var runCmd = &cobra.Command{
	Use:   "run <model.stl|voxels.csv>",
	Short: "Run every stage: voxelize, decompose, BOM, render, record",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&renderPlots, "render", false, "Write layer PNGs, BOM chart and 3D scene")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if path := cfg.GetDBPath(); path != "" {
		store, err := db.NewDB(path)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()
		opts = append(opts, pipeline.WithRecorder(store))
	}

	p, err := newPipeline(cfg, opts...)
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context(), args[0], pipeline.RunOptions{Render: renderPlots})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Grid %s, %d cells -> %d parts on %d layers\n",
		res.Dims, res.Cells, len(res.Placements), len(res.Stats.Layers))
	printBOM(cmd, res.BOM)
	fmt.Fprintf(out, "Parts list: %s\nBOM: %s\n", res.Artifacts.Parts, res.Artifacts.BOM)
	if res.Artifacts.Scene != "" {
		fmt.Fprintf(out, "Scene: %s (%d layer images)\n", res.Artifacts.Scene, len(res.Artifacts.Layers))
	}
	if res.Run != nil {
		fmt.Fprintf(out, "Run ID: %s\n", res.Run.RunID)
	}
	return nil
}

func printBOM(cmd *cobra.Command, b *bom.BOM) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Bill of Materials:")
	for _, l := range b.Lines {
		fmt.Fprintf(out, "  %-6s x%-5d @ %6.2f = %8.2f\n", l.PartType, l.Quantity, bom.Round2(l.UnitPrice), bom.Round2(l.LineTotal))
	}
	fmt.Fprintf(out, "  %-6s  %-5d            %8.2f\n", "Total", b.Parts(), bom.Round2(b.Total))
}
