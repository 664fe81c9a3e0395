package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/plate.report/internal/bom"
	"github.com/banshee-data/plate.report/internal/decompose"
	"github.com/banshee-data/plate.report/internal/grid"
	"github.com/banshee-data/plate.report/internal/tabular"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded decomposition.
type Run struct {
	RunID         string    `json:"run_id"`
	Source        string    `json:"source"`
	Dims          grid.Dims `json:"dims"`
	Cells         int       `json:"cells"`
	Parts         int       `json:"parts"`
	TotalCost     float64   `json:"total_cost"`
	CatalogDigest string    `json:"catalog_digest"`
	SortBy        string    `json:"sort_by"`
	Ascending     bool      `json:"ascending"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunInput is everything RecordRun persists for one run.
type RunInput struct {
	Source        string
	Dims          grid.Dims
	Cells         int
	CatalogDigest string
	Order         bom.Order
	Placements    []decompose.Placement
	BOM           *bom.BOM
}

// RecordRun stores a run with its placements and BOM lines in one
// transaction and returns the stored row. A RunID is generated.
func (db *DB) RecordRun(ctx context.Context, in RunInput) (*Run, error) {
	if in.BOM == nil {
		return nil, fmt.Errorf("record run: missing BOM")
	}
	run := &Run{
		RunID:         uuid.NewString(),
		Source:        in.Source,
		Dims:          in.Dims,
		Cells:         in.Cells,
		Parts:         len(in.Placements),
		TotalCost:     in.BOM.Total,
		CatalogDigest: in.CatalogDigest,
		SortBy:        string(in.Order.By),
		Ascending:     in.Order.Ascending,
		CreatedAt:     db.clock.Now().UTC(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
			run_id, source, grid_x, grid_y, grid_z, cell_count, part_count,
			total_cost, catalog_digest, sort_by, ascending, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.Dims.X, run.Dims.Y, run.Dims.Z, run.Cells, run.Parts,
		run.TotalCost, run.CatalogDigest, run.SortBy, run.Ascending, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	partStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_parts (run_id, seq, part_type, coordinates) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare part insert: %w", err)
	}
	defer partStmt.Close()
	for i, p := range in.Placements {
		if _, err := partStmt.ExecContext(ctx, run.RunID, i, p.Shape, tabular.FormatCoords(p.Cells)); err != nil {
			return nil, fmt.Errorf("insert part %d: %w", i, err)
		}
	}

	lineStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_bom_lines (run_id, seq, part_type, quantity, unit_price, line_total) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare bom insert: %w", err)
	}
	defer lineStmt.Close()
	for i, l := range in.BOM.Lines {
		if _, err := lineStmt.ExecContext(ctx, run.RunID, i, l.PartType, l.Quantity, l.UnitPrice, l.LineTotal); err != nil {
			return nil, fmt.Errorf("insert bom line %s: %w", l.PartType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}
	return run, nil
}

const runColumns = `run_id, source, grid_x, grid_y, grid_z, cell_count, part_count,
	total_cost, catalog_digest, sort_by, ascending, created_unix_nanos`

func scanRun(s interface{ Scan(...any) error }) (*Run, error) {
	var (
		r     Run
		nanos int64
	)
	if err := s.Scan(&r.RunID, &r.Source, &r.Dims.X, &r.Dims.Y, &r.Dims.Z, &r.Cells, &r.Parts,
		&r.TotalCost, &r.CatalogDigest, &r.SortBy, &r.Ascending, &nanos); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, nanos).UTC()
	return &r, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means 100.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_unix_nanos DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// RunBOM rebuilds the stored BOM of a run.
func (db *DB) RunBOM(ctx context.Context, runID string) (*bom.BOM, error) {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT part_type, quantity, unit_price, line_total FROM run_bom_lines WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	b := &bom.BOM{Total: run.TotalCost}
	for rows.Next() {
		var l bom.Line
		if err := rows.Scan(&l.PartType, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, err
		}
		b.Lines = append(b.Lines, l)
	}
	return b, rows.Err()
}

// RunParts returns the stored placements of a run in their recorded order.
func (db *DB) RunParts(ctx context.Context, runID string) ([]decompose.Placement, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT part_type, coordinates FROM run_parts WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decompose.Placement
	for rows.Next() {
		var shape, coords string
		if err := rows.Scan(&shape, &coords); err != nil {
			return nil, err
		}
		cells, err := tabular.ParseCoords(coords)
		if err != nil {
			return nil, fmt.Errorf("run %s part %q: %w", runID, shape, err)
		}
		out = append(out, decompose.Placement{Shape: shape, Cells: cells})
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its parts and BOM lines.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
