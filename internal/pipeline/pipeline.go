// Package pipeline runs the full plate job: load a mesh or voxel list,
// decompose it into catalog plates, price the parts and write every
// artifact.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/plate.report/internal/bom"
	"github.com/banshee-data/plate.report/internal/catalog"
	"github.com/banshee-data/plate.report/internal/config"
	"github.com/banshee-data/plate.report/internal/db"
	"github.com/banshee-data/plate.report/internal/decompose"
	"github.com/banshee-data/plate.report/internal/fsutil"
	"github.com/banshee-data/plate.report/internal/grid"
	"github.com/banshee-data/plate.report/internal/render"
	"github.com/banshee-data/plate.report/internal/security"
	"github.com/banshee-data/plate.report/internal/tabular"
	"github.com/banshee-data/plate.report/internal/timeutil"
	"github.com/banshee-data/plate.report/internal/voxelize"
)

// RunRecorder persists a finished run. *db.DB satisfies it.
type RunRecorder interface {
	RecordRun(ctx context.Context, in db.RunInput) (*db.Run, error)
}

// Pipeline holds the collaborators shared by every stage.
type Pipeline struct {
	cfg     *config.PipelineConfig
	catalog *catalog.Catalog
	fs      fsutil.FileSystem
	store   RunRecorder
	logger  *zap.Logger
	clock   timeutil.Clock
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFileSystem replaces the OS filesystem.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithRecorder records each completed run.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.store = r }
}

// WithLogger sets the stage logger. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the clock used to time runs.
func WithClock(c timeutil.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New builds a pipeline. A nil cfg uses defaults; a nil catalog uses
// catalog.Default.
func New(cfg *config.PipelineConfig, c *catalog.Catalog, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.EmptyPipelineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c == nil {
		c = catalog.Default()
	}
	p := &Pipeline{
		cfg:     cfg,
		catalog: c,
		fs:      fsutil.OSFileSystem{},
		logger:  zap.NewNop(),
		clock:   timeutil.RealClock{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Catalog returns the catalog the pipeline decomposes against.
func (p *Pipeline) Catalog() *catalog.Catalog { return p.catalog }

// Artifacts lists the files written by a run.
type Artifacts struct {
	Voxels   string   `json:"voxels,omitempty"`
	Parts    string   `json:"parts"`
	BOM      string   `json:"bom"`
	BOMChart string   `json:"bom_chart,omitempty"`
	Layers   []string `json:"layers,omitempty"`
	Scene    string   `json:"scene,omitempty"`
}

// Result is the outcome of Run.
type Result struct {
	Source     string
	Dims       grid.Dims
	Cells      int
	Placements []decompose.Placement
	Stats      decompose.Stats
	BOM        *bom.BOM
	Artifacts  Artifacts
	Run        *db.Run
}

// RunOptions controls which artifacts Run writes.
type RunOptions struct {
	// Render writes layer PNGs, the BOM chart and the 3D scene.
	Render bool
}

// Run executes every stage on inputPath (.stl or voxel .csv) and writes
// artifacts under the configured output directory.
func (p *Pipeline) Run(ctx context.Context, inputPath string, ro RunOptions) (*Result, error) {
	start := p.clock.Now()
	log := p.logger.With(zap.String("input", inputPath))
	outDir := p.cfg.GetOutputDir()
	stem := Stem(inputPath)

	res := &Result{Source: filepath.Base(inputPath)}

	log.Info("Starting load")
	g, fromMesh, err := p.LoadGrid(inputPath)
	if err != nil {
		return nil, err
	}
	res.Dims, res.Cells = g.Dims(), g.Count()
	log.Info("Load completed", zap.Stringer("dims", res.Dims), zap.Int("cells", res.Cells), zap.Bool("voxelized", fromMesh))

	if fromMesh {
		res.Artifacts.Voxels = filepath.Join(outDir, stem+"_voxels.csv")
		if err := fsutil.WriteWith(p.fs, res.Artifacts.Voxels, func(w io.Writer) error {
			return tabular.WriteVoxels(w, g.Coords())
		}); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("Starting decompose", zap.Int("parallel_layers", p.cfg.GetParallelLayers()))
	placements, err := p.Decompose(g)
	if err != nil {
		return nil, err
	}
	res.Placements = placements
	res.Stats = decompose.Summarize(placements)
	for _, ls := range res.Stats.Layers {
		log.Debug("Layer decomposed", zap.Int("z", ls.Z), zap.Int("parts", ls.Placements), zap.Int("cells", ls.Cells))
	}
	log.Info("Decompose completed", zap.Int("parts", len(placements)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Artifacts.Parts = filepath.Join(outDir, stem+"_parts.csv")
	if err := fsutil.WriteWith(p.fs, res.Artifacts.Parts, func(w io.Writer) error {
		return tabular.WriteParts(w, placements)
	}); err != nil {
		return nil, err
	}

	log.Info("Starting BOM")
	b, err := bom.Build(placements, p.catalog)
	if err != nil {
		return nil, err
	}
	res.BOM = b
	res.Artifacts.BOM = filepath.Join(outDir, stem+"_parts_bom.csv")
	if err := fsutil.WriteWith(p.fs, res.Artifacts.BOM, func(w io.Writer) error {
		return tabular.WriteBOM(w, b)
	}); err != nil {
		return nil, err
	}
	log.Info("BOM completed", zap.Int("lines", len(b.Lines)), zap.Int("parts", b.Parts()), zap.Float64("total", bom.Round2(b.Total)))

	if ro.Render {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("Starting render")
		if err := p.renderAll(outDir, stem, res); err != nil {
			return nil, err
		}
		log.Info("Render completed", zap.Int("layers", len(res.Artifacts.Layers)))
	}

	if p.store != nil {
		run, err := p.store.RecordRun(ctx, db.RunInput{
			Source:        res.Source,
			Dims:          res.Dims,
			Cells:         res.Cells,
			CatalogDigest: p.catalog.Digest(),
			Order:         p.order(),
			Placements:    placements,
			BOM:           b,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		res.Run = run
		log.Info("Run recorded", zap.String("run_id", run.RunID))
	}

	log.Info("All stages completed", zap.Duration("elapsed", p.clock.Since(start)))
	return res, nil
}

// LoadGrid reads inputPath into an occupancy grid. STL meshes are
// voxelized at the configured voxel size; anything else is read as a voxel
// CSV. The bool reports whether voxelization ran.
func (p *Pipeline) LoadGrid(inputPath string) (*grid.Grid, bool, error) {
	f, err := p.fs.Open(inputPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(inputPath), ".stl") {
		tris, err := voxelize.ReadSTL(f)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", filepath.Base(inputPath), err)
		}
		vr, err := voxelize.Voxelize(tris, p.cfg.GetVoxelSize())
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", filepath.Base(inputPath), err)
		}
		return vr.Grid, true, nil
	}

	coords, err := tabular.ReadVoxels(f)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", filepath.Base(inputPath), err)
	}
	g, err := grid.FromCoords(coords)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", filepath.Base(inputPath), err)
	}
	return g, false, nil
}

// Decompose checks the catalog, sweeps a copy of g and returns the
// placements in the configured presentation order. g is not modified.
func (p *Pipeline) Decompose(g *grid.Grid) ([]decompose.Placement, error) {
	if p.cfg.GetRequireUnitShape() {
		if err := p.catalog.RequireUnitShape(); err != nil {
			return nil, err
		}
	}
	placements, err := decompose.Decompose(g.Clone(), p.catalog, decompose.WithParallelLayers(p.cfg.GetParallelLayers()))
	if err != nil {
		return nil, err
	}
	return bom.SortPlacements(placements, p.catalog, p.order())
}

func (p *Pipeline) order() bom.Order {
	// Validate has already rejected anything but the two keys.
	by, _ := bom.ParseSortKey(p.cfg.GetSortBy())
	return bom.Order{By: by, Ascending: p.cfg.GetAscending()}
}

// PlotSize is the configured PNG size.
func (p *Pipeline) PlotSize() render.Size {
	return render.Size{
		Width:  vg.Length(p.cfg.GetPlotWidthInches()) * vg.Inch,
		Height: vg.Length(p.cfg.GetPlotHeightInches()) * vg.Inch,
	}
}

// Render writes the layer PNGs, BOM chart and 3D scene for placements and
// returns their paths.
func (p *Pipeline) Render(outDir, stem string, dims grid.Dims, placements []decompose.Placement, b *bom.BOM) (Artifacts, error) {
	res := &Result{Dims: dims, Placements: placements, BOM: b}
	if err := p.renderAll(outDir, stem, res); err != nil {
		return Artifacts{}, err
	}
	return res.Artifacts, nil
}

func (p *Pipeline) renderAll(outDir, stem string, res *Result) error {
	pal := render.NewPalette(res.Placements)
	size := p.PlotSize()

	byLayer := render.ByLayer(res.Placements)
	for z := 0; z < res.Dims.Z; z++ {
		layer, ok := byLayer[z]
		if !ok {
			continue
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_layer_%03d.png", stem, z))
		if err := fsutil.WriteWith(p.fs, path, func(w io.Writer) error {
			return render.WriteLayerPNG(w, z, res.Dims, layer, pal, size)
		}); err != nil {
			return err
		}
		res.Artifacts.Layers = append(res.Artifacts.Layers, path)
	}

	if res.BOM != nil {
		res.Artifacts.BOMChart = filepath.Join(outDir, stem+"_bom.png")
		if err := fsutil.WriteWith(p.fs, res.Artifacts.BOMChart, func(w io.Writer) error {
			return render.WriteBOMPNG(w, res.BOM, size)
		}); err != nil {
			return err
		}
	}

	res.Artifacts.Scene = filepath.Join(outDir, stem+"_scene.html")
	return fsutil.WriteWith(p.fs, res.Artifacts.Scene, func(w io.Writer) error {
		return render.WriteSceneHTML(w, stem, res.Dims, res.Placements, pal)
	})
}

// Stem returns the input file name without directory or extension, sanitized
// for use as an artifact name prefix.
func Stem(path string) string {
	base := filepath.Base(path)
	return security.SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Extent returns the smallest grid dimensions containing every placed cell.
func Extent(placements []decompose.Placement) grid.Dims {
	var d grid.Dims
	for _, pl := range placements {
		for _, c := range pl.Cells {
			d.X = max(d.X, c.X+1)
			d.Y = max(d.Y, c.Y+1)
			d.Z = max(d.Z, c.Z+1)
		}
	}
	return d
}
