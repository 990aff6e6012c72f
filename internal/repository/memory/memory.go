// Package memory implements the repository contracts in process memory.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/repository"
)

// OperatorRepository is a map-backed repository.OperatorRepository.
type OperatorRepository struct {
	mu        sync.RWMutex
	operators map[string]domain.Operator
}

// NewOperatorRepository builds an empty repository.
func NewOperatorRepository() *OperatorRepository {
	return &OperatorRepository{operators: make(map[string]domain.Operator)}
}

func (r *OperatorRepository) Create(_ context.Context, op *domain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operators[op.Username]; exists {
		return repository.ErrDuplicate
	}
	op.ID = uuid.NewString()
	op.CreatedAt = time.Now().UTC()
	r.operators[op.Username] = *op
	return nil
}

func (r *OperatorRepository) Update(_ context.Context, op *domain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.operators[op.Username]
	if !ok {
		return pgx.ErrNoRows
	}
	current.PasswordHash = op.PasswordHash
	current.Role = op.Role
	current.Active = op.Active
	r.operators[op.Username] = current
	*op = current
	return nil
}

func (r *OperatorRepository) GetByUsername(_ context.Context, username string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operators[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &op, nil
}

func (r *OperatorRepository) List(_ context.Context) ([]domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Operator, 0, len(r.operators))
	for _, op := range r.operators {
		result = append(result, op)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (r *OperatorRepository) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.operators[username]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.operators, username)
	return nil
}

func (r *OperatorRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operators), nil
}

// ClientRepository is a map-backed repository.ClientRepository.
type ClientRepository struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
	now     func() time.Time
}

// NewClientRepository builds an empty repository.
func NewClientRepository() *ClientRepository {
	return &ClientRepository{clients: make(map[string]domain.Client), now: monotonicClock()}
}

func (r *ClientRepository) Create(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	client.ID = uuid.NewString()
	client.CreatedAt = now
	client.UpdatedAt = now
	r.clients[client.ID] = cloneClient(*client)
	return nil
}

func (r *ClientRepository) Update(_ context.Context, client *domain.Client, expectedUpdatedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.clients[client.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if expectedUpdatedAt != nil && !current.UpdatedAt.Equal(*expectedUpdatedAt) {
		return repository.ErrStale
	}
	client.Owner = current.Owner
	client.CreatedAt = current.CreatedAt
	client.UpdatedAt = r.now()
	r.clients[client.ID] = cloneClient(*client)
	return nil
}

func (r *ClientRepository) GetByID(_ context.Context, id string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneClient(client)
	return &out, nil
}

func (r *ClientRepository) List(_ context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.Client{}
	for _, client := range r.clients {
		if filter.Owner != nil && client.Owner != *filter.Owner {
			continue
		}
		result = append(result, cloneClient(client))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *ClientRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.clients, id)
	return nil
}

// Len returns the number of stored clients.
func (r *ClientRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ActivityRepository is a slice-backed repository.ActivityRepository.
type ActivityRepository struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
	// Fail makes Append return the error, for exercising failure paths.
	Fail error
}

// NewActivityRepository builds an empty log.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Append(_ context.Context, entry *domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *ActivityRepository) ListRecent(_ context.Context, limit int) ([]domain.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.LogEntry{}
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		result = append(result, r.entries[i])
	}
	return result, nil
}

// Actions returns the action text of every entry, oldest first.
func (r *ActivityRepository) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func cloneClient(c domain.Client) domain.Client {
	if c.Priority != nil {
		p := *c.Priority
		c.Priority = &p
	}
	if c.LastContactAt != nil {
		t := *c.LastContactAt
		c.LastContactAt = &t
	}
	return c
}

// monotonicClock returns strictly increasing timestamps so ordering by creation time is total.
func monotonicClock() func() time.Time {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now().UTC().Truncate(time.Microsecond)
		if !now.After(last) {
			now = last.Add(time.Microsecond)
		}
		last = now
		return now
	}
}

var (
	_ repository.OperatorRepository = (*OperatorRepository)(nil)
	_ repository.ClientRepository   = (*ClientRepository)(nil)
	_ repository.ActivityRepository = (*ActivityRepository)(nil)
)
