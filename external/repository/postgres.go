// Package repository implements the recording history store on Postgres.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oliverbhull/memo-stt/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) InsertRecording(ctx context.Context, input repository.InsertRecordingInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recordings (id, source, device_name, started_at, ended_at, duration_ms, sample_count, status, transcript)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		input.ID, input.Source, input.DeviceName, input.StartedAt, input.EndedAt,
		input.DurationMS, input.SampleCount, input.Status, input.Transcript)
	return err
}

func (r *PostgresRepository) ListRecentRecordings(ctx context.Context, limit int) ([]repository.Recording, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, source, device_name, started_at, ended_at, duration_ms, sample_count, status, transcript, created_at
		 FROM recordings ORDER BY started_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Recording
	for rows.Next() {
		var rec repository.Recording
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.DeviceName, &rec.StartedAt, &rec.EndedAt,
			&rec.DurationMS, &rec.SampleCount, &rec.Status, &rec.Transcript, &rec.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
