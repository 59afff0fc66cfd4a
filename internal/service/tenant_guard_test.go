package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopify_mirror/internal/metrics"
	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
)

func TestTenantGuard_Dedupe(t *testing.T) {
	db := setupServiceTestDB(t)
	keep := seedTenant(t, db, "first", "https://demo.myshopify.com")
	seedTenant(t, db, "second", "demo.myshopify.com/")
	seedTenant(t, db, "third", "http://demo.myshopify.com/")
	other := seedTenant(t, db, "other", "other.myshopify.com")

	guard := NewTenantGuard(repository.NewTenantRepository(db), "", zap.NewNop())
	reg := metrics.NewRegistry()
	guard.SetMetrics(reg)

	survivors, err := guard.Dedupe(context.Background())
	require.NoError(t, err)
	require.Len(t, survivors, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.TenantsDeduped))
	assert.Equal(t, keep.ID, survivors[0].ID)
	assert.Equal(t, other.ID, survivors[1].ID)

	var count int64
	db.Model(&model.Tenant{}).Count(&count)
	assert.Equal(t, int64(2), count)

	// 再次执行不产生变化
	again, err := guard.Dedupe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, survivors, again)
}

func TestTenantGuard_OnlyDomain(t *testing.T) {
	db := setupServiceTestDB(t)
	seedTenant(t, db, "a", "a.myshopify.com")
	b := seedTenant(t, db, "b", "https://b.myshopify.com/")

	guard := NewTenantGuard(repository.NewTenantRepository(db), "b.myshopify.com", zap.NewNop())
	survivors, err := guard.Dedupe(context.Background())
	require.NoError(t, err)
	require.Len(t, survivors, 1)
	assert.Equal(t, b.ID, survivors[0].ID)
}
