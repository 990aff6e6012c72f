package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// ClientFilter scopes a client listing.
type ClientFilter struct {
	Owner *string
	Limit int
}

// ClientRepository encapsulates client persistence.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	// Update writes every mutable field. A non-nil expectedUpdatedAt turns the write into a
	// compare-and-set and yields ErrStale when the row changed in between.
	Update(ctx context.Context, client *domain.Client, expectedUpdatedAt *time.Time) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
	Delete(ctx context.Context, id string) error
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates repository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

const clientColumns = `id, nome, telefone, COALESCE(cpf, ''), COALESCE(banco, ''), COALESCE(tipo_contrato, ''),
               status, COALESCE(observacoes, ''), usuario, prioridade, created_at, updated_at, last_contact_at`

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clientes (nome, telefone, cpf, banco, tipo_contrato, status, observacoes, usuario, prioridade, last_contact_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, $10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		client.Name,
		client.Phone,
		client.Document,
		client.Bank,
		client.ContractType,
		client.Status,
		client.Notes,
		client.Owner,
		client.Priority,
		client.LastContactAt,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client, expectedUpdatedAt *time.Time) error {
	if _, err := uuid.Parse(client.ID); err != nil {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE clientes SET nome=$1, telefone=$2, cpf=NULLIF($3, ''), banco=NULLIF($4, ''), tipo_contrato=NULLIF($5, ''),
            status=$6, observacoes=NULLIF($7, ''), prioridade=$8, last_contact_at=$9, updated_at=NOW()
        WHERE id=$10 AND ($11::timestamptz IS NULL OR updated_at=$11)
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		client.Name,
		client.Phone,
		client.Document,
		client.Bank,
		client.ContractType,
		client.Status,
		client.Notes,
		client.Priority,
		client.LastContactAt,
		client.ID,
		expectedUpdatedAt,
	).Scan(&client.UpdatedAt)
	if !needsExistenceCheck(err, expectedUpdatedAt) {
		return err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clientes WHERE id=$1)`, client.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStale
	}
	return pgx.ErrNoRows
}

// needsExistenceCheck reports whether a missed conditional update must be told apart as stale or missing.
func needsExistenceCheck(err error, expectedUpdatedAt *time.Time) bool {
	return expectedUpdatedAt != nil && errors.Is(err, pgx.ErrNoRows)
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + clientColumns + ` FROM clientes WHERE id=$1`
	var client domain.Client
	if err := scanClient(r.pool.QueryRow(ctx, query, id), &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clientes`
	args := []any{}

	if filter.Owner != nil {
		args = append(args, *filter.Owner)
		query += fmt.Sprintf(" WHERE usuario=$%d", len(args))
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Client{}
	for rows.Next() {
		var client domain.Client
		if err := scanClient(rows, &client); err != nil {
			return nil, err
		}
		result = append(result, client)
	}
	return result, rows.Err()
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM clientes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanClient(row pgx.Row, client *domain.Client) error {
	return row.Scan(
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.Document,
		&client.Bank,
		&client.ContractType,
		&client.Status,
		&client.Notes,
		&client.Owner,
		&client.Priority,
		&client.CreatedAt,
		&client.UpdatedAt,
		&client.LastContactAt,
	)
}
