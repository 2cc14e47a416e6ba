package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// IngestRun is one row in the ingest_runs log, written after every
// pipeline run regardless of outcome.
type IngestRun struct {
	ID          uuid.UUID `json:"id"`
	Trigger     string    `json:"trigger"`
	Region      string    `json:"region"`
	Keywords    []string  `json:"keywords"`
	Searched    int32     `json:"searched"`
	Hydrated    int32     `json:"hydrated"`
	Upserted    int32     `json:"upserted"`
	Failed      int32     `json:"failed"`
	Error       string    `json:"error"`
	Started_At  time.Time `json:"started_at"`
	Duration_MS int64     `json:"duration_ms"`
}

type RunStore interface {
	RecordRun(ctx context.Context, run IngestRun) error
	RecentRuns(ctx context.Context, limit int) ([]IngestRun, error)
}

type ClickhouseRunStore struct {
	conn driver.Conn
}

func NewClickhouseRunStore(conn driver.Conn) *ClickhouseRunStore {
	return &ClickhouseRunStore{conn: conn}
}

func (c *ClickhouseRunStore) RecordRun(ctx context.Context, run IngestRun) error {

	query := `
		INSERT INTO default.ingest_runs
			(id, trigger, region, keywords, searched, hydrated, upserted, failed, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		run.ID,
		run.Trigger,
		run.Region,
		run.Keywords,
		run.Searched,
		run.Hydrated,
		run.Upserted,
		run.Failed,
		run.Error,
		run.Started_At,
		run.Duration_MS,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}

	return nil
}

func (c *ClickhouseRunStore) RecentRuns(ctx context.Context, limit int) ([]IngestRun, error) {

	query := `
		SELECT id, trigger, region, keywords, searched, hydrated, upserted, failed, error, started_at, duration_ms
		FROM default.ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []IngestRun

	for rows.Next() {
		var run IngestRun

		err := rows.Scan(
			&run.ID,
			&run.Trigger,
			&run.Region,
			&run.Keywords,
			&run.Searched,
			&run.Hydrated,
			&run.Upserted,
			&run.Failed,
			&run.Error,
			&run.Started_At,
			&run.Duration_MS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest run: %w", err)
		}

		runs = append(runs, run)
	}

	return runs, nil
}
