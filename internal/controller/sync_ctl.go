package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopify_mirror/internal/middleware"
	"shopify_mirror/internal/service"
	"shopify_mirror/internal/task"
)

// SyncController 手动同步控制器
type SyncController struct {
	taskManager *task.TaskManager
}

// NewSyncController 创建同步控制器
func NewSyncController(taskManager *task.TaskManager) *SyncController {
	return &SyncController{taskManager: taskManager}
}

// ==================== Handler 实现 ====================

// SyncMe 同步当前登录租户
// @Summary 手动同步当前租户
// @Tags Sync
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{} "冷却中"
// @Router /api/sync/me [post]
func (c *SyncController) SyncMe(ctx *gin.Context) {
	c.syncTenant(ctx, middleware.GetTenantID(ctx))
}

// SyncTenant 同步单个租户
// @Summary 手动同步单个租户
// @Tags Sync
// @Param id path int true "租户 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "租户不存在"
// @Failure 429 {object} map[string]interface{} "冷却中"
// @Router /api/sync/tenants/{id} [post]
func (c *SyncController) SyncTenant(ctx *gin.Context) {
	tenantID := parseID(ctx, "id")
	if tenantID == 0 {
		return
	}
	c.syncTenant(ctx, tenantID)
}

func (c *SyncController) syncTenant(ctx *gin.Context, tenantID int64) {
	n, err := c.taskManager.TriggerTenantSync(ctx.Request.Context(), tenantID)
	if err != nil {
		writeSyncError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "租户同步完成",
		"data":    gin.H{"tenants": n, "tenant_id": tenantID},
	})
}

// SyncAll 同步所有租户
// @Summary 手动同步所有租户
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{} "冷却中"
// @Router /api/sync/all [post]
func (c *SyncController) SyncAll(ctx *gin.Context) {
	n, err := c.taskManager.TriggerAllSync(ctx.Request.Context())
	if err != nil {
		writeSyncError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "全量同步完成",
		"data":    gin.H{"tenants": n},
	})
}

func writeSyncError(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	switch {
	case errors.Is(err, service.ErrTenantNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": err.Error()})
	case errors.Is(err, task.ErrTaskDisabled):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
	}
}

// ==================== 辅助函数 ====================

// parseID 解析路径参数，失败时写入 400 并返回 0
func parseID(ctx *gin.Context, key string) int64 {
	id, err := strconv.ParseInt(ctx.Param(key), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的 ID"})
		return 0
	}
	return id
}
