// Package store exports pipeline results to a SQLite database, one
// download_runs row per run plus the rows that run produced.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/gff"
)

// ErrNoRun is returned when no run matches a lookup.
var ErrNoRun = errors.New("store: no matching run")

const insertBatch = 500

type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite file at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time keeps sqlite from reporting busy
	sqldb.SetMaxOpenConns(1)
	s := &Store{db: bun.NewDB(sqldb, sqlitedialect.New()), now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*DownloadRun)(nil),
		(*AssemblyModel)(nil),
		(*SummaryModel)(nil),
		(*FeatureModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new running run and returns it.
func (s *Store) StartRun(ctx context.Context, source, input string) (*DownloadRun, error) {
	run := &DownloadRun{
		RunID:     uuid.NewString(),
		Source:    source,
		Input:     input,
		StartTime: s.now().UTC(),
		Status:    StatusRunning,
	}
	if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun stamps the end time, row count and outcome. A non-nil runErr
// marks the run partial when rows were still produced, failed otherwise.
func (s *Store) FinishRun(ctx context.Context, run *DownloadRun, rows int, runErr error) error {
	end := s.now().UTC()
	run.EndTime = &end
	run.Rows = rows
	switch {
	case runErr == nil:
		run.Status = StatusComplete
	case rows > 0:
		run.Status = StatusPartial
	default:
		run.Status = StatusFailed
	}
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorLog = &msg
	}
	_, err := s.db.NewUpdate().Model(run).
		Column("end_time", "rows", "status", "error_log").
		WherePK().
		Exec(ctx)
	return err
}

// SaveAssemblies stores rows under run, keeping their order.
func (s *Store) SaveAssemblies(ctx context.Context, run *DownloadRun, rows []assembly.Row) error {
	models := make([]AssemblyModel, len(rows))
	for i, r := range rows {
		models[i] = newAssemblyModel(run.RunID, i, r)
	}
	return insertAll(ctx, s.db, models)
}

// SaveSummaries stores data report rows under run.
func (s *Store) SaveSummaries(ctx context.Context, run *DownloadRun, rows []assembly.SummaryRow) error {
	models := make([]SummaryModel, len(rows))
	for i, r := range rows {
		models[i] = newSummaryModel(run.RunID, i, r)
	}
	return insertAll(ctx, s.db, models)
}

// SaveFeatures stores gene features under run.
func (s *Store) SaveFeatures(ctx context.Context, run *DownloadRun, features []gff.Feature) error {
	models := make([]FeatureModel, len(features))
	for i, f := range features {
		models[i] = newFeatureModel(run.RunID, i, f)
	}
	return insertAll(ctx, s.db, models)
}

func insertAll[T any](ctx context.Context, db *bun.DB, models []T) error {
	if len(models) == 0 {
		return nil
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := 0; i < len(models); i += insertBatch {
			end := i + insertBatch
			if end > len(models) {
				end = len(models)
			}
			batch := models[i:end]
			if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// LatestRun returns the most recently started run for source.
func (s *Store) LatestRun(ctx context.Context, source string) (*DownloadRun, error) {
	run := new(DownloadRun)
	err := s.db.NewSelect().Model(run).
		Where("source = ?", source).
		OrderExpr("start_time DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LoadAssemblies returns the assemblies stored for runID in fetch order.
func (s *Store) LoadAssemblies(ctx context.Context, runID string) ([]assembly.Row, error) {
	var models []AssemblyModel
	if err := s.db.NewSelect().Model(&models).
		Where("run_id = ?", runID).
		Order("position ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	rows := make([]assembly.Row, len(models))
	for i, m := range models {
		rows[i] = m.Row()
	}
	return rows, nil
}

// LoadFeatures returns the gene features stored for runID in file order.
func (s *Store) LoadFeatures(ctx context.Context, runID string) ([]gff.Feature, error) {
	var models []FeatureModel
	if err := s.db.NewSelect().Model(&models).
		Where("run_id = ?", runID).
		Order("position ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]gff.Feature, len(models))
	for i, m := range models {
		out[i] = m.Feature()
	}
	return out, nil
}

// CountSummaries returns how many data report rows runID stored.
func (s *Store) CountSummaries(ctx context.Context, runID string) (int, error) {
	return s.db.NewSelect().Model((*SummaryModel)(nil)).Where("run_id = ?", runID).Count(ctx)
}
