package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
	"shopify_mirror/internal/service"
	"shopify_mirror/pkg/shopify"
)

// ==================== 辅助函数 ====================

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

type stubUpstream struct {
	mu       sync.Mutex
	failures int
	calls    int
	orders   string
}

func (s *stubUpstream) ListCustomers(ctx context.Context) ([]shopify.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, shopify.ErrUpstreamUnavailable
	}
	return nil, nil
}

func (s *stubUpstream) ListProducts(ctx context.Context) ([]shopify.Product, error) {
	return nil, nil
}

func (s *stubUpstream) ListOrders(ctx context.Context, status string) ([]shopify.Order, error) {
	var out []shopify.Order
	if s.orders == "" {
		return out, nil
	}
	return out, json.Unmarshal([]byte(s.orders), &out)
}

type taskFixture struct {
	db       *gorm.DB
	task     *SyncTask
	upstream *stubUpstream
	waits    []time.Duration
}

func newTaskFixture(t *testing.T, upstream *stubUpstream) *taskFixture {
	f := &taskFixture{db: setupTaskTestDB(t), upstream: upstream}
	tenantRepo := repository.NewTenantRepository(f.db)
	syncSvc := service.NewSyncService(
		tenantRepo,
		repository.NewReconcileRepository(f.db),
		func(*model.Tenant) service.UpstreamClient { return upstream },
		nil,
		zap.NewNop(),
	)
	retry := service.NewRetryController(service.DefaultRetryPolicy(), func(_ context.Context, d time.Duration) error {
		f.waits = append(f.waits, d)
		return nil
	}, zap.NewNop())

	f.task = NewSyncTask(service.NewTenantGuard(tenantRepo, "", zap.NewNop()), syncSvc, retry, "", zap.NewNop())
	return f
}

func (f *taskFixture) seedTenant(t *testing.T, domain string) *model.Tenant {
	tenant := &model.Tenant{Name: domain, ShopDomain: domain, AccessToken: "tok"}
	if err := f.db.Create(tenant).Error; err != nil {
		t.Fatalf("创建租户失败: %v", err)
	}
	return tenant
}

// ==================== SyncTask ====================

func TestSyncTask_RunPass_DedupesThenSyncs(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{orders: `[{"id": 1, "total_price": "2.00"}]`})
	f.seedTenant(t, "https://demo.myshopify.com")
	f.seedTenant(t, "demo.myshopify.com/")

	n, err := f.task.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var tenants int64
	f.db.Model(&model.Tenant{}).Count(&tenants)
	assert.Equal(t, int64(1), tenants)

	var orders int64
	f.db.Model(&model.Order{}).Count(&orders)
	assert.Equal(t, int64(1), orders)
}

func TestSyncTask_RunPass_RetriesWithBackoff(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{failures: 2})
	f.seedTenant(t, "demo.myshopify.com")

	_, err := f.task.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.upstream.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, f.waits)
}

func TestSyncTask_RunPass_Exhausted(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{failures: 10})
	f.seedTenant(t, "demo.myshopify.com")

	_, err := f.task.RunPass(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRetriesExhausted))
	assert.Equal(t, 3, f.upstream.calls)
}

func TestSyncTask_RunPass_NoTenants(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{})
	n, err := f.task.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.upstream.calls)
}

func TestSyncTask_SyncTenantNow(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{})
	tenant := f.seedTenant(t, "demo.myshopify.com")

	n, err := f.task.SyncTenantNow(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.task.SyncTenantNow(context.Background(), 999)
	assert.True(t, errors.Is(err, service.ErrTenantNotFound))
	assert.Empty(t, f.waits, "租户不存在时不重试")
}

func TestSyncTask_StartStop(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{})
	f.seedTenant(t, "demo.myshopify.com")

	require.NoError(t, f.task.Start(false))
	assert.Len(t, f.task.cron.Entries(), 1)
	f.task.Stop()
	assert.Error(t, f.task.ctx.Err(), "停止后上下文已取消")
}

func TestSyncTask_InvalidSpec(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{})
	f.task.spec = "not a cron spec"
	assert.Error(t, f.task.Start(false))
}

// ==================== TaskManager ====================

func TestTaskManager_Disabled(t *testing.T) {
	tm := NewTaskManager(nil, &TaskManagerConfig{SyncEnabled: false}, zap.NewNop())

	_, err := tm.TriggerAllSync(context.Background())
	assert.Equal(t, ErrTaskDisabled, err)
	_, err = tm.TriggerTenantSync(context.Background(), 1)
	assert.Equal(t, ErrTaskDisabled, err)
	assert.NoError(t, tm.Start())
	tm.Stop()
	assert.False(t, tm.Status()["sync"])
}

func TestTaskManager_Triggers(t *testing.T) {
	f := newTaskFixture(t, &stubUpstream{})
	f.seedTenant(t, "a.myshopify.com")
	f.seedTenant(t, "b.myshopify.com")

	tm := NewTaskManager(f.task, nil, zap.NewNop())
	n, err := tm.TriggerAllSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, tm.Status()["sync"])
}
