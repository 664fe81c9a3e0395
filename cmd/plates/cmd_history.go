package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/plate.report/internal/bom"
	"github.com/banshee-data/plate.report/internal/db"
	"github.com/banshee-data/plate.report/internal/fsutil"
	"github.com/banshee-data/plate.report/internal/security"
	"github.com/banshee-data/plate.report/internal/tabular"
)

var (
	historyLimit int
	historyJSON  bool
	exportRun    string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or show one run's bill of materials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
	historyCmd.Flags().StringVar(&exportRun, "export", "", "Write the stored parts list of this run ID to the output directory")
}

func openHistory(cmd *cobra.Command) (*db.DB, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	path := cfg.GetDBPath()
	if path == "" {
		return nil, "", fmt.Errorf("run history is disabled (empty db path)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("no run history at %s: %w", path, err)
	}
	store, err := db.NewDB(path)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.GetOutputDir(), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, outDir, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if exportRun != "" {
		parts, err := store.RunParts(ctx, exportRun)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, security.SanitizeFilename(exportRun)+"_parts.csv")
		if err := security.ValidatePathWithinDirectory(path, outDir); err != nil {
			return err
		}
		if err := fsutil.WriteWith(fsutil.OSFileSystem{}, path, func(w io.Writer) error {
			return tabular.WriteParts(w, parts)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d parts to %s\n", len(parts), path)
		return nil
	}

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		b, err := store.RunBOM(ctx, run.RunID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %s from %s at %s\n", run.RunID, run.Source, run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Grid %s, %d cells, sorted by %s\n", run.Dims, run.Cells, run.SortBy)
		printBOM(cmd, b)
		return nil
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSOURCE\tGRID\tCELLS\tPARTS\tTOTAL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%.2f\n",
			r.RunID, r.CreatedAt.Format("2006-01-02 15:04"), r.Source, r.Dims, r.Cells, r.Parts, bom.Round2(r.TotalCost))
	}
	return tw.Flush()
}
