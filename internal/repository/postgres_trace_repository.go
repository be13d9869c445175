package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

type traceRepository struct {
	pool *pgxpool.Pool
}

// NewTraceRepository instantiates the Postgres trace repository.
func NewTraceRepository(pool *pgxpool.Pool) TraceRepository {
	return &traceRepository{pool: pool}
}

func (r *traceRepository) Create(ctx context.Context, trace domain.TraceData) error {
	const query = `
        INSERT INTO trace_data (trace_id, hashed_trace_id, location_name, check_in_at, check_out_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.pool.Exec(ctx, query,
		trace.TraceID,
		trace.HashedTraceID,
		trace.LocationName,
		trace.CheckInTimestamp,
		trace.CheckOutTimestamp,
	)
	return err
}

func (r *traceRepository) FinalizeCheckOut(ctx context.Context, traceID string, at time.Time) error {
	const query = `UPDATE trace_data SET check_out_at=$1 WHERE trace_id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, traceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *traceRepository) MarkAccessed(ctx context.Context, access domain.AccessedTraceData) error {
	const query = `
        UPDATE trace_data SET health_department_id=$1, health_department_name=$2, access_at=$3
        WHERE hashed_trace_id=$4`
	_, err := r.pool.Exec(ctx, query,
		access.HealthDepartmentID,
		access.HealthDepartmentName,
		access.AccessTimestamp,
		access.HashedTraceID,
	)
	return err
}

func (r *traceRepository) ListSince(ctx context.Context, cutoff time.Time) ([]domain.TraceData, error) {
	const query = `
        SELECT trace_id, hashed_trace_id, location_name, check_in_at, check_out_at,
               COALESCE(health_department_id, ''), COALESCE(health_department_name, ''), access_at
        FROM trace_data WHERE check_in_at >= $1 ORDER BY check_in_at`
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	traces := []domain.TraceData{}
	for rows.Next() {
		var t domain.TraceData
		if err := rows.Scan(
			&t.TraceID,
			&t.HashedTraceID,
			&t.LocationName,
			&t.CheckInTimestamp,
			&t.CheckOutTimestamp,
			&t.HealthDepartmentID,
			&t.HealthDepartmentName,
			&t.AccessTimestamp,
		); err != nil {
			return nil, err
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}

func (r *traceRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM trace_data WHERE check_in_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type accessedTraceRepository struct {
	pool *pgxpool.Pool
}

// NewAccessedTraceRepository instantiates the Postgres accessed-data repository.
func NewAccessedTraceRepository(pool *pgxpool.Pool) AccessedTraceRepository {
	return &accessedTraceRepository{pool: pool}
}

func (r *accessedTraceRepository) SaveNew(ctx context.Context, records []domain.AccessedTraceData) ([]domain.AccessedTraceData, error) {
	const query = `
        INSERT INTO accessed_trace_data (hashed_trace_id, trace_id, location_name, health_department_id,
            health_department_name, access_at, check_in_at, check_out_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (hashed_trace_id, health_department_id, access_at) DO NOTHING`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var added []domain.AccessedTraceData
	for _, a := range records {
		cmd, err := tx.Exec(ctx, query,
			a.HashedTraceID,
			a.TraceID,
			a.LocationName,
			a.HealthDepartmentID,
			a.HealthDepartmentName,
			a.AccessTimestamp,
			a.CheckInTimestamp,
			a.CheckOutTimestamp,
		)
		if err != nil {
			return nil, err
		}
		if cmd.RowsAffected() > 0 {
			added = append(added, a)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return added, nil
}

func (r *accessedTraceRepository) List(ctx context.Context) ([]domain.AccessedTraceData, error) {
	const query = `
        SELECT hashed_trace_id, trace_id, location_name, health_department_id, health_department_name,
               access_at, check_in_at, check_out_at
        FROM accessed_trace_data ORDER BY access_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AccessedTraceData{}
	for rows.Next() {
		var a domain.AccessedTraceData
		if err := rows.Scan(
			&a.HashedTraceID,
			&a.TraceID,
			&a.LocationName,
			&a.HealthDepartmentID,
			&a.HealthDepartmentName,
			&a.AccessTimestamp,
			&a.CheckInTimestamp,
			&a.CheckOutTimestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
