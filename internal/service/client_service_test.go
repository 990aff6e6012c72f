package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-whatsapp/crm-service/internal/domain"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

func TestCreate_DefaultsAndOwnership(t *testing.T) {
	f := newFixture(t)

	c, err := f.clientSvc.Create(context.Background(), ana, ClientCreateInput{
		Name: "  Maria Silva ", Phone: "11 98765-4321", Bank: "Itaú", Priority: ptr(2),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Maria Silva", c.Name)
	assert.Equal(t, domain.StatusEmAnalise, c.Status)
	assert.Equal(t, "ana", c.Owner)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, []string{"Adicionou cliente Maria Silva"}, f.activity.Actions())
}

func TestCreate_ValidationDoesNotPersistOrLog(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		input ClientCreateInput
		field string
	}{
		{"blank name", ClientCreateInput{Name: "   ", Phone: "11"}, "name"},
		{"blank phone", ClientCreateInput{Name: "Maria"}, "phone"},
		{"unknown status", ClientCreateInput{Name: "Maria", Phone: "11", Status: "perdido"}, "status"},
		{"priority out of range", ClientCreateInput{Name: "Maria", Phone: "11", Priority: ptr(4)}, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.clientSvc.Create(context.Background(), ana, tc.input)
			require.Error(t, err)
			de := apperrors.ToDomainError(err)
			assert.Equal(t, apperrors.CodeValidation, de.Code)
			assert.Contains(t, de.Details, tc.field)
		})
	}
	assert.Zero(t, f.clients.Len())
	assert.Empty(t, f.activity.Actions())
}

func TestList_OwnershipScopingAndAdminVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addClient(t, ana, "Maria", "11 1111-1111")
	f.addClient(t, ana, "João", "11 2222-2222")
	f.addClient(t, bia, "Pedro", "21 3333-3333")

	anaList, err := f.clientSvc.List(ctx, ana, domain.ClientQuery{})
	require.NoError(t, err)
	assert.Len(t, anaList, 2)
	for _, c := range anaList {
		assert.Equal(t, "ana", c.Owner)
	}

	// An explicit owner filter never widens an operator's scope.
	biaAsAna, err := f.clientSvc.List(ctx, ana, domain.ClientQuery{Owner: "bia"})
	require.NoError(t, err)
	assert.Empty(t, biaAsAna)

	all, err := f.clientSvc.List(ctx, admin, domain.ClientQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyBia, err := f.clientSvc.List(ctx, admin, domain.ClientQuery{Owner: "bia"})
	require.NoError(t, err)
	require.Len(t, onlyBia, 1)
	assert.Equal(t, "Pedro", onlyBia[0].Name)
}

func TestList_CacheIsInvalidatedByMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addClient(t, ana, "Maria", "11 1111-1111")

	first, err := f.clientSvc.List(ctx, ana, domain.ClientQuery{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A write that bypasses the service is not visible while the entry is cached.
	require.NoError(t, f.clients.Create(ctx, &domain.Client{Name: "Oculto", Phone: "1", Owner: "ana", Status: domain.StatusEmAnalise}))
	cached, err := f.clientSvc.List(ctx, ana, domain.ClientQuery{})
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Status: ptr(domain.StatusFechado)})
	require.NoError(t, err)

	fresh, err := f.clientSvc.List(ctx, ana, domain.ClientQuery{Status: string(domain.StatusFechado)})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, domain.StatusFechado, fresh[0].Status)

	everything, err := f.clientSvc.List(ctx, ana, domain.ClientQuery{})
	require.NoError(t, err)
	assert.Len(t, everything, 2)
}

func TestList_DegradesWhenCacheIsDown(t *testing.T) {
	f := newFixture(t)
	f.addClient(t, ana, "Maria", "11 1111-1111")
	f.redis.Close()

	got, err := f.clientSvc.List(context.Background(), ana, domain.ClientQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addClient(t, ana, "Maria", "11 1111-1111")

	t.Run("owner merges patch", func(t *testing.T) {
		got, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{
			Notes:  ptr("ligar amanhã"),
			Status: ptr(domain.StatusSolicitarFatura),
		})
		require.NoError(t, err)
		assert.Equal(t, "ligar amanhã", got.Notes)
		assert.Equal(t, domain.StatusSolicitarFatura, got.Status)
		assert.Equal(t, "Maria", got.Name)
		assert.Contains(t, f.activity.Actions(), "Atualizou cliente Maria (status, notes)")
	})

	t.Run("other operator is forbidden", func(t *testing.T) {
		_, err := f.clientSvc.Update(ctx, bia, c.ID, ClientPatch{Notes: ptr("x")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("admin may edit", func(t *testing.T) {
		got, err := f.clientSvc.Update(ctx, admin, c.ID, ClientPatch{Priority: ptr(1)})
		require.NoError(t, err)
		require.NotNil(t, got.Priority)
		assert.Equal(t, 1, *got.Priority)
		assert.Equal(t, "ana", got.Owner)
	})

	t.Run("invalid status leaves record untouched", func(t *testing.T) {
		_, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Status: ptr(domain.ClientStatus("perdido"))})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		stored, err := f.clients.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSolicitarFatura, stored.Status)
	})

	t.Run("name cannot be blanked", func(t *testing.T) {
		_, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Name: ptr("  ")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := f.clientSvc.Update(ctx, admin, "nope", ClientPatch{Notes: ptr("x")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	t.Run("stale expected timestamp conflicts", func(t *testing.T) {
		stale := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Notes: ptr("y"), ExpectedUpdatedAt: &stale})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})

	t.Run("stale expected timestamp conflicts on a no-op patch", func(t *testing.T) {
		stale := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{ExpectedUpdatedAt: &stale})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})

	t.Run("matching expected timestamp succeeds", func(t *testing.T) {
		current, err := f.clients.GetByID(ctx, c.ID)
		require.NoError(t, err)
		_, err = f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Notes: ptr("z"), ExpectedUpdatedAt: &current.UpdatedAt})
		assert.NoError(t, err)
	})

	t.Run("clear priority", func(t *testing.T) {
		got, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{ClearPriority: true})
		require.NoError(t, err)
		assert.Nil(t, got.Priority)
	})
}

func TestStatusTransitionsAreUnrestricted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addClient(t, ana, "Maria", "11")

	for _, from := range []domain.ClientStatus{domain.StatusCancelado, domain.StatusFechado} {
		for _, to := range domain.Statuses {
			_, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Status: ptr(from)})
			require.NoError(t, err)
			got, err := f.clientSvc.Update(ctx, ana, c.ID, ClientPatch{Status: ptr(to)})
			require.NoError(t, err)
			assert.Equal(t, to, got.Status)
		}
	}
}

func TestMarkContacted(t *testing.T) {
	f := newFixture(t)
	c := f.addClient(t, ana, "Maria", "11")

	got, err := f.clientSvc.MarkContacted(context.Background(), ana, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastContactAt)
	assert.WithinDuration(t, time.Now(), *got.LastContactAt, time.Minute)
	assert.Contains(t, f.activity.Actions(), "Registrou contato com cliente Maria")
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addClient(t, ana, "Maria", "11")

	err := f.clientSvc.Delete(ctx, bia, c.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	require.NoError(t, f.clientSvc.Delete(ctx, ana, c.ID))
	_, err = f.clientSvc.Get(ctx, ana, c.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Contains(t, f.activity.Actions(), "Excluiu cliente Maria")

	list, err := f.clientSvc.List(ctx, admin, domain.ClientQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestActivityFailureDoesNotBreakMutation(t *testing.T) {
	f := newFixture(t)
	f.activity.Fail = errors.New("disk full")

	c, err := f.clientSvc.Create(context.Background(), ana, ClientCreateInput{Name: "Maria", Phone: "11"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, f.clients.Len())
}
