package postgres

import (
	"context"
	"database/sql"

	"vet-clinic-web/internal/domain/submissions"
)

type SubmissionsRepo struct {
	db *sql.DB
}

func NewSubmissionsRepo(db *sql.DB) *SubmissionsRepo {
	return &SubmissionsRepo{db: db}
}

func (r *SubmissionsRepo) Create(ctx context.Context, rec submissions.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO form_submissions (
			id, kind, reference, status, message, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		rec.ID,
		string(rec.Kind),
		rec.Reference,
		string(rec.Status),
		rec.Message,
		rec.CreatedAt,
	)
	return err
}

func (r *SubmissionsRepo) ListRecent(ctx context.Context, limit int) ([]submissions.Record, error) {
	if limit <= 0 {
		limit = submissions.DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, reference, status, message, created_at
		FROM form_submissions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]submissions.Record, 0)
	for rows.Next() {
		var rec submissions.Record
		var kind, status string
		if err := rows.Scan(
			&rec.ID,
			&kind,
			&rec.Reference,
			&status,
			&rec.Message,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Kind = submissions.Kind(kind)
		rec.Status = submissions.Status(status)
		out = append(out, rec)
	}

	return out, rows.Err()
}
