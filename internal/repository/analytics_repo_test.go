package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify_mirror/internal/model"
)

func seedAnalytics(t *testing.T, repo ReconcileRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{ExternalID: 1, TenantID: 1, FirstName: strPtr("Ana"), LastName: strPtr("Diaz")}))
	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{ExternalID: 2, TenantID: 1, Email: strPtr("bo@b.com")}))
	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{ExternalID: 3, TenantID: 2}))

	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orders := []struct {
		ext, customer, cents int64
		tenant             int64
		status             string
		at                 time.Time
	}{
		{100, 1, 5000, 1, "paid", day},
		{101, 1, 2500, 1, "paid", day.AddDate(0, 0, 2)},
		{102, 2, 9000, 1, "paid", day.AddDate(0, 0, 2)},
		{103, 2, 7000, 1, "refunded", day},
		{104, 3, 8000, 2, "paid", day},
	}
	for _, o := range orders {
		require.NoError(t, repo.UpsertOrder(ctx, &model.Order{
			ExternalID: int64Ptr(o.ext), TenantID: o.tenant, OrderNumber: "#x",
			TotalPriceCents: o.cents, Status: o.status, CreatedAt: o.at,
		}, int64Ptr(o.customer)))
	}
}

func TestAnalyticsRepo_Summary(t *testing.T) {
	db := setupRepoTestDB(t)
	seedAnalytics(t, NewReconcileRepository(db))
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	count, err := repo.CountCustomers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	stats, err := repo.PaidOrderStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Orders)
	assert.Equal(t, int64(16500), stats.RevenueCents)

	stats, err = repo.PaidOrderStats(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Orders)
	assert.Equal(t, int64(0), stats.RevenueCents)
}

func TestAnalyticsRepo_PaidOrdersBetween(t *testing.T) {
	db := setupRepoTestDB(t)
	seedAnalytics(t, NewReconcileRepository(db))
	repo := NewAnalyticsRepository(db)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	points, err := repo.PaidOrdersBetween(context.Background(), 1, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(5000), points[0].TotalPriceCents)
}

func TestAnalyticsRepo_TopCustomers(t *testing.T) {
	db := setupRepoTestDB(t)
	seedAnalytics(t, NewReconcileRepository(db))
	repo := NewAnalyticsRepository(db)

	top, err := repo.TopCustomers(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bo@b.com", top[0].DisplayName())
	assert.Equal(t, int64(9000), top[0].RevenueCents)
	assert.Equal(t, "Ana Diaz", top[1].DisplayName())
	assert.Equal(t, int64(7500), top[1].RevenueCents)
	assert.Equal(t, int64(2), top[1].Orders)
}
