package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/version"
)

var catalogYAML bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the plate catalog in greedy selection order",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogYAML, "yaml", false, "Print the catalog as YAML")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if catalogYAML {
		data, err := catalog.Marshal(c)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPART\tCOLS\tROWS\tAREA\tPRICE")
	for i, s := range c.ByArea() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%.2f\n", i+1, s.Name, s.Cols, s.Rows, s.Area(), s.UnitPrice)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !c.HasUnitShape() {
		fmt.Fprintln(out, "warning: no 1x1 shape, full coverage is not guaranteed")
	}
	fmt.Fprintf(out, "digest %s\n", c.Digest())
	return nil
}
