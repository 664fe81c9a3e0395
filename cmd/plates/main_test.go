package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/config"
	"github.com/banshee-data/plate.report/internal/voxelize"
)

const lShapeCSV = "x,y,z\n0,0,0\n0,1,0\n1,0,0\n"

// execute runs the root command with args after restoring every flag to
// its default, since cobra keeps flag state between Execute calls.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "plates dev")
}

func TestCatalogCmd(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 2)
	assert.Contains(t, lines[0], "RANK")
	assert.Regexp(t, `^1\s+5x5\s+5\s+5\s+25\s+0\.59`, lines[1])
	assert.Contains(t, out, "digest ")
	assert.NotContains(t, out, "warning")

	out, err = execute(t, "catalog", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "shapes:")
	assert.Contains(t, out, "unit_price: 0.07")
}

func TestCatalogCmd_CustomCatalogWithoutUnit(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "cat.yaml", "shapes:\n  - {name: \"2x2\", cols: 2, rows: 2, unit_price: 0.13}\n")

	out, err := execute(t, "catalog", "--catalog", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: no 1x1 shape")
}

func TestRunCmd_AndHistory(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "bracket.csv", lShapeCSV)
	outDir := filepath.Join(dir, "out")
	dbFile := filepath.Join(dir, "plates.db")

	out, err := execute(t, "run", input, "--out", outDir, "--db", dbFile, "--render")
	require.NoError(t, err)
	assert.Contains(t, out, "3 cells -> 2 parts on 1 layers")
	assert.Contains(t, out, "Total")

	for _, name := range []string{"bracket_parts.csv", "bracket_parts_bom.csv", "bracket_layer_000.png", "bracket_bom.png", "bracket_scene.html"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	m := regexp.MustCompile(`Run ID: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	runID := m[1]

	out, err = execute(t, "history", "--db", dbFile)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "bracket.csv")

	out, err = execute(t, "history", runID, "--db", dbFile)
	require.NoError(t, err)
	assert.Contains(t, out, "1x2")
	assert.Contains(t, out, "0.17")

	out, err = execute(t, "history", "--db", dbFile, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id": "`+runID+`"`)

	_, err = execute(t, "history", "--db", dbFile, "--export", runID, "--out", outDir)
	require.NoError(t, err)
	exported, err := os.ReadFile(filepath.Join(outDir, runID+"_parts.csv"))
	require.NoError(t, err)
	original, err := os.ReadFile(filepath.Join(outDir, "bracket_parts.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(original), string(exported))
}

func TestHistoryCmd_NoDatabase(t *testing.T) {
	_, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestStageCommands(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	input := writeInput(t, dir, "l.csv", lShapeCSV)

	out, err := execute(t, "decompose", input, "--out", outDir, "--sort", "type", "--descending")
	require.NoError(t, err)
	assert.Contains(t, out, "3 cells -> 2 parts")
	parts := filepath.Join(outDir, "l_parts.csv")
	require.FileExists(t, parts)

	out, err = execute(t, "bom", parts, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "BOM has been written to")
	bomCSV, err := os.ReadFile(filepath.Join(outDir, "l_parts_bom.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(bomCSV), "Total,2,,0.17\n"), string(bomCSV))

	out, err = execute(t, "render", parts, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 layer images")
	assert.FileExists(t, filepath.Join(outDir, "l_parts_layer_000.png"))
	assert.FileExists(t, filepath.Join(outDir, "l_parts_scene.html"))
}

func TestVoxelizeCmd(t *testing.T) {
	dir := t.TempDir()
	var stl bytes.Buffer
	require.NoError(t, voxelize.WriteASCIISTL(&stl, "tri", []voxelize.Triangle{
		{{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0}},
	}))
	input := writeInput(t, dir, "tri.stl", stl.String())
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "voxelize", input, "--out", outDir, "--voxel-size", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "9 filled voxels")
	assert.FileExists(t, filepath.Join(outDir, "tri_voxels.csv"))

	_, err = execute(t, "voxelize", filepath.Join(dir, "tri.csv"))
	assert.Error(t, err)
}

func TestRunCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "l.csv", lShapeCSV)

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"run", filepath.Join(dir, "nope.csv"), "--db", ""}},
		{"bad sort", []string{"run", input, "--sort", "price", "--db", ""}},
		{"bad voxel size", []string{"run", input, "--voxel-size", "0", "--db", ""}},
		{"missing catalog", []string{"run", input, "--catalog", filepath.Join(dir, "none.yaml"), "--db", ""}},
		{"no args", []string{"run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--out", filepath.Join(dir, "out"))...)
			assert.Error(t, err)
		})
	}
}

func TestRenderCmd_RejectsBadFootprint(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		parts string
		want  string
	}{
		{"empty coordinates", "Part Type,Coordinates\n2x2,[]\n", "no coordinates"},
		{"short footprint", "Part Type,Coordinates\n2x2,\"[(0, 0, 0), (1, 0, 0)]\"\n", "covers 2 cells, want 4"},
		{"unknown shape", "Part Type,Coordinates\n9x9,\"[(0, 0, 0)]\"\n", "unknown part type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := writeInput(t, dir, "p.csv", tt.parts)
			_, err := execute(t, "render", parts, "--out", filepath.Join(dir, "out"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewPipeline_UsesGivenConfig(t *testing.T) {
	saved := configPath
	t.Cleanup(func() { configPath = saved })
	configPath = filepath.Join(t.TempDir(), "missing.json")

	p, err := newPipeline(config.EmptyPipelineConfig())
	require.NoError(t, err)
	assert.Equal(t, catalog.Default().Digest(), p.Catalog().Digest())

	bad := config.EmptyPipelineConfig()
	missing := filepath.Join(t.TempDir(), "none.yaml")
	bad.CatalogPath = &missing
	_, err = newPipeline(bad)
	assert.Error(t, err)
}
