package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}

type mockPriorityRepo struct {
	mock.Mock
}

func (m *mockPriorityRepo) FindByScopeAndCategory(ctx context.Context, scope vendor.Scope, category string) ([]vendor.PriorityEntry, error) {
	args := m.Called(ctx, scope, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.PriorityEntry), args.Error(1)
}

func (m *mockPriorityRepo) ReplaceForScopeAndCategory(ctx context.Context, scope vendor.Scope, category string, entries []vendor.PriorityEntry) error {
	args := m.Called(ctx, scope, category, entries)
	return args.Error(0)
}

func TestInMemoryPriorityCache_ReadThrough(t *testing.T) {
	repo := new(mockPriorityRepo)
	scope := vendor.AdminScope()
	repo.On("FindByScopeAndCategory", mock.Anything, scope, "parts").
		Return([]vendor.PriorityEntry{
			{Scope: scope, Category: "parts", VendorCode: "acme", Rank: 2},
			{Scope: scope, Category: "parts", VendorCode: "globex", Rank: 1},
		}, nil).Once()

	c := NewInMemoryPriorityCache(repo, zap.NewNop())

	list, err := c.Get(context.Background(), scope, "parts")
	require.NoError(t, err)
	assert.Equal(t, 2, list.RankOf("acme"))
	assert.Equal(t, 1, list.RankOf("globex"))
	assert.Equal(t, 0, list.RankOf("unranked"))

	// second read must hit the cache, not the repository
	_, err = c.Get(context.Background(), scope, "parts")
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "FindByScopeAndCategory", 1)
}

func TestInMemoryPriorityCache_InvalidateReloads(t *testing.T) {
	repo := new(mockPriorityRepo)
	scope := vendor.AdminScope()
	repo.On("FindByScopeAndCategory", mock.Anything, scope, "parts").
		Return([]vendor.PriorityEntry{{Scope: scope, Category: "parts", VendorCode: "acme", Rank: 1}}, nil).Once()
	repo.On("FindByScopeAndCategory", mock.Anything, scope, "parts").
		Return([]vendor.PriorityEntry{{Scope: scope, Category: "parts", VendorCode: "acme", Rank: 5}}, nil).Once()

	c := NewInMemoryPriorityCache(repo, zap.NewNop())
	ctx := context.Background()

	list, err := c.Get(ctx, scope, "parts")
	require.NoError(t, err)
	assert.Equal(t, 1, list.RankOf("acme"))

	require.NoError(t, c.Invalidate(ctx, scope, "parts"))

	list, err = c.Get(ctx, scope, "parts")
	require.NoError(t, err)
	assert.Equal(t, 5, list.RankOf("acme"))
}

func TestInMemoryPriorityCache_ScopesAreIsolated(t *testing.T) {
	repo := new(mockPriorityRepo)
	admin := vendor.AdminScope()
	tenant := vendor.TenantScope(mustUUID(t))

	repo.On("FindByScopeAndCategory", mock.Anything, admin, "parts").
		Return([]vendor.PriorityEntry{{VendorCode: "acme", Rank: 9}}, nil).Once()
	repo.On("FindByScopeAndCategory", mock.Anything, tenant, "parts").
		Return([]vendor.PriorityEntry{{VendorCode: "acme", Rank: 1}}, nil).Once()

	c := NewInMemoryPriorityCache(repo, zap.NewNop())
	ctx := context.Background()

	adminList, err := c.Get(ctx, admin, "parts")
	require.NoError(t, err)
	tenantList, err := c.Get(ctx, tenant, "parts")
	require.NoError(t, err)

	assert.Equal(t, 9, adminList.RankOf("acme"))
	assert.Equal(t, 1, tenantList.RankOf("acme"))
}

func TestInMemoryPriorityCache_InvalidateAll(t *testing.T) {
	repo := new(mockPriorityRepo)
	scope := vendor.AdminScope()
	repo.On("FindByScopeAndCategory", mock.Anything, scope, "parts").
		Return([]vendor.PriorityEntry{}, nil).Twice()

	c := NewInMemoryPriorityCache(repo, zap.NewNop())
	ctx := context.Background()

	_, err := c.Get(ctx, scope, "parts")
	require.NoError(t, err)
	require.NoError(t, c.InvalidateAll(ctx))
	_, err = c.Get(ctx, scope, "parts")
	require.NoError(t, err)

	repo.AssertNumberOfCalls(t, "FindByScopeAndCategory", 2)
}
