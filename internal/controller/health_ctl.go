package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shopify_mirror/internal/task"
	"shopify_mirror/pkg/database"
)

// HealthController 健康检查
type HealthController struct {
	db          *gorm.DB
	taskManager *task.TaskManager
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, taskManager *task.TaskManager) *HealthController {
	return &HealthController{db: db, taskManager: taskManager}
}

// Check 健康检查
// @Summary 数据库连通性与任务状态
// @Tags System
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	tasks := c.taskManager.Status()
	if err := database.Ping(ctx.Request.Context(), c.db); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    503,
			"message": "数据库不可用",
			"data":    gin.H{"database": false, "tasks": tasks},
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "ok",
		"data":    gin.H{"database": true, "tasks": tasks},
	})
}
