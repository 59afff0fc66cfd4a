package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopify_mirror/internal/model"
	"shopify_mirror/internal/service"
)

// DefaultSyncSpec 每分钟整点执行
const DefaultSyncSpec = "0 * * * * *"

// ==================== SyncTask 全量同步任务 ====================

// SyncTask 定时拉取所有租户
// 每轮：租户去重 -> 重试控制 -> 轮询同步
// 轮次之间不加锁，重叠执行依赖 upsert 的幂等性
type SyncTask struct {
	guard   *service.TenantGuard
	syncSvc *service.SyncService
	retry   *service.RetryController
	cron    *cron.Cron
	spec    string
	log     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewSyncTask 创建同步任务，spec 为空时每分钟执行
func NewSyncTask(
	guard *service.TenantGuard,
	syncSvc *service.SyncService,
	retry *service.RetryController,
	spec string,
	log *zap.Logger,
) *SyncTask {
	if spec == "" {
		spec = DefaultSyncSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncTask{
		guard:   guard,
		syncSvc: syncSvc,
		retry:   retry,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		log:     log.Named("sync_task"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动定时任务，runOnStart 为 true 时先异步执行一轮
func (t *SyncTask) Start(runOnStart bool) error {
	if _, err := t.cron.AddFunc(t.spec, t.runScheduled); err != nil {
		return fmt.Errorf("注册定时任务失败: %w", err)
	}

	if runOnStart {
		t.running.Add(1)
		go func() {
			defer t.running.Done()
			t.log.Info("执行首次同步")
			if _, err := t.RunPass(t.ctx); err != nil {
				t.log.Error("首次同步失败", zap.Error(err))
			}
		}()
	}

	t.cron.Start()
	t.log.Info("已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止调度并取消进行中的轮次
func (t *SyncTask) Stop() {
	t.cancel()
	<-t.cron.Stop().Done()
	t.running.Wait()
	t.log.Info("已停止")
}

func (t *SyncTask) runScheduled() {
	t.running.Add(1)
	defer t.running.Done()
	if _, err := t.RunPass(t.ctx); err != nil {
		t.log.Error("定时同步失败", zap.Error(err))
	}
}

// RunPass 执行一轮全量同步，返回参与同步的租户数
func (t *SyncTask) RunPass(ctx context.Context) (int, error) {
	tenants, err := t.guard.Dedupe(ctx)
	if err != nil {
		return 0, err
	}
	if len(tenants) == 0 {
		t.log.Info("没有需要同步的租户")
		return 0, nil
	}

	err = t.retry.Run(ctx, "sync_all", func(ctx context.Context) error {
		_, err := t.syncSvc.PullAll(ctx, tenants)
		return err
	})
	return len(tenants), err
}

// SyncTenantNow 立即同步单个租户
func (t *SyncTask) SyncTenantNow(ctx context.Context, tenantID int64) (int, error) {
	if _, err := t.guard.Dedupe(ctx); err != nil {
		return 0, err
	}
	tenant, err := t.syncSvc.Tenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	err = t.retry.Run(ctx, fmt.Sprintf("sync_tenant_%d", tenantID), func(ctx context.Context) error {
		_, err := t.syncSvc.PullTenant(ctx, tenant)
		return err
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// SyncAllNow 立即执行一轮全量同步
func (t *SyncTask) SyncAllNow(ctx context.Context) (int, error) {
	return t.RunPass(ctx)
}

// Tenants 当前参与同步的租户（已去重）
func (t *SyncTask) Tenants(ctx context.Context) ([]model.Tenant, error) {
	return t.guard.Dedupe(ctx)
}
