package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// ActivityRepository stores audit entries.
type ActivityRepository interface {
	Append(ctx context.Context, entry *domain.LogEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.LogEntry, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.LogEntry) error {
	const query = `
        INSERT INTO logs (usuario, acao)
        VALUES ($1, $2)
        RETURNING id, data_hora`
	return r.pool.QueryRow(ctx, query, entry.Username, entry.Action).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	const query = `
        SELECT id, COALESCE(usuario, ''), acao, data_hora
        FROM logs ORDER BY id DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.LogEntry{}
	for rows.Next() {
		var entry domain.LogEntry
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.Action, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
