// Package history persists optimization runs and imported sales history to
// an embedded SQLite database. The optimizer itself never touches storage;
// callers thread results here after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/schollz/progressbar/v3"

	"github.com/operato/eoq-planner/internal/demand"
	"github.com/operato/eoq-planner/internal/eoq"
	"github.com/operato/eoq-planner/pkg/constants"
)

// Run is one recorded optimization invocation.
type Run struct {
	ID                 string                `json:"id"`
	CreatedAt          time.Time             `json:"createdAt"`
	Demand             float64               `json:"demand"`
	Policy             string                `json:"policy"`
	TotalCost          float64               `json:"totalCost"`
	SetupCostTotal     float64               `json:"setupCostTotal"`
	HoldingCostAverage float64               `json:"holdingCostAverage"`
	Echelons           []eoq.EchelonSolution `json:"echelons"`
}

// Store wraps the SQLite database holding run and sales history tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			demand REAL NOT NULL,
			policy TEXT NOT NULL,
			total_cost REAL NOT NULL,
			setup_cost_total REAL NOT NULL,
			holding_cost_average REAL NOT NULL,
			detail TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS demand_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			store_id TEXT,
			price REAL NOT NULL,
			promotions TEXT,
			seasonality TEXT,
			external_factors TEXT,
			customer_segment TEXT,
			sales_quantity REAL NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply history schema: %w", err)
		}
	}
	return nil
}

// RecordRun persists one optimization result and returns the stored run,
// including its generated ID and timestamp.
func (s *Store) RecordRun(ctx context.Context, result eoq.Result) (Run, error) {
	detail, err := json.Marshal(result.Echelons)
	if err != nil {
		return Run{}, fmt.Errorf("failed to encode echelon detail: %w", err)
	}

	run := Run{
		ID:                 uuid.NewString(),
		CreatedAt:          time.Now().UTC(),
		Demand:             result.Demand,
		Policy:             string(result.Policy),
		TotalCost:          result.TotalCost,
		SetupCostTotal:     result.SetupCostTotal,
		HoldingCostAverage: result.HoldingCostAverage,
		Echelons:           result.Echelons,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, demand, policy, total_cost, setup_cost_total, holding_cost_average, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Demand, run.Policy, run.TotalCost,
		run.SetupCostTotal, run.HoldingCostAverage, string(detail),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// takes the default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, demand, policy, total_cost, setup_cost_total, holding_cost_average, detail
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var detail string
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Demand, &run.Policy,
			&run.TotalCost, &run.SetupCostTotal, &run.HoldingCostAverage, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(detail), &run.Echelons); err != nil {
			return nil, fmt.Errorf("failed to decode echelon detail for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ImportSalesHistory replaces the demand_history table with the provided
// records inside a single transaction. When showProgress is set a progress
// bar tracks the insert loop, which dominates large CSV imports.
func (s *Store) ImportSalesHistory(ctx context.Context, records []demand.Record, showProgress bool) error {
	if len(records) == 0 {
		return fmt.Errorf("no sales history records to import")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM demand_history`); err != nil {
		return fmt.Errorf("failed to clear previous sales history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO demand_history (date, store_id, price, promotions, seasonality, external_factors, customer_segment, sales_quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sales history insert: %w", err)
	}
	defer stmt.Close()

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(records)))
	}

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			record.Date.Format(constants.DateTimeLayout), record.StoreID, record.Price,
			record.Promotions, record.Seasonality, record.ExternalFactors,
			record.CustomerSegment, record.SalesQuantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sales record: %w", err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sales history import: %w", err)
	}
	return nil
}

// LoadSalesHistory reads all imported sales records back, oldest first.
func (s *Store) LoadSalesHistory(ctx context.Context) ([]demand.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, store_id, price, promotions, seasonality, external_factors, customer_segment, sales_quantity
		 FROM demand_history ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales history: %w", err)
	}
	defer rows.Close()

	var records []demand.Record
	for rows.Next() {
		var record demand.Record
		var date string
		if err := rows.Scan(&date, &record.StoreID, &record.Price, &record.Promotions,
			&record.Seasonality, &record.ExternalFactors, &record.CustomerSegment,
			&record.SalesQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan sales record: %w", err)
		}
		parsed, err := time.Parse(constants.DateTimeLayout, date)
		if err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		record.Date = parsed
		records = append(records, record)
	}
	return records, rows.Err()
}
