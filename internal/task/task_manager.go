package task

import (
	"context"

	"go.uber.org/zap"
)

// ==================== TaskManager 同步任务管理器 ====================

// TaskManager 统一管理同步任务的生命周期与手动触发
type TaskManager struct {
	syncTask   *SyncTask
	runOnStart bool
	log        *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	SyncEnabled bool
	RunOnStart  bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		SyncEnabled: true,
		RunOnStart:  true,
	}
}

// NewTaskManager 创建任务管理器；禁用时手动触发返回 ErrTaskDisabled
func NewTaskManager(syncTask *SyncTask, cfg *TaskManagerConfig, log *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	tm := &TaskManager{runOnStart: cfg.RunOnStart, log: log.Named("task_manager")}
	if cfg.SyncEnabled {
		tm.syncTask = syncTask
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.syncTask == nil {
		tm.log.Info("同步任务未启用")
		return nil
	}
	return tm.syncTask.Start(tm.runOnStart)
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.syncTask != nil {
		tm.syncTask.Stop()
	}
	tm.log.Info("同步任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerTenantSync 触发单个租户同步，返回同步的租户数
func (tm *TaskManager) TriggerTenantSync(ctx context.Context, tenantID int64) (int, error) {
	if tm.syncTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.syncTask.SyncTenantNow(ctx, tenantID)
}

// TriggerAllSync 触发全量同步，返回同步的租户数
func (tm *TaskManager) TriggerAllSync(ctx context.Context) (int, error) {
	if tm.syncTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.syncTask.SyncAllNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"sync": tm.syncTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
