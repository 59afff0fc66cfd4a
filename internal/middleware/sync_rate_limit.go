package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultSyncCooldown 手动同步默认冷却时间
const DefaultSyncCooldown = 30 * time.Second

// KeyFunc 从请求中取冷却 Key，ok=false 时已写入响应
type KeyFunc func(c *gin.Context) (key string, ok bool)

// TenantParamKey 按路径参数 :id 的租户冷却
func TenantParamKey(c *gin.Context) (string, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的租户 ID",
		})
		return "", false
	}
	return TenantSyncKey(id), true
}

// TenantClaimKey 按 JWT 中的租户冷却，需挂在 JWTAuth 之后
func TenantClaimKey(c *gin.Context) (string, bool) {
	id := GetTenantID(c)
	if id == 0 {
		abortUnauthorized(c, "未获取到租户信息")
		return "", false
	}
	return TenantSyncKey(id), true
}

// GlobalKey 全量同步共用一个冷却
func GlobalKey(*gin.Context) (string, bool) {
	return GlobalSyncKey, true
}

// SyncRateLimit 手动同步冷却中间件
// 处理失败（非 2xx）时释放冷却，允许立即重试
//
// 使用示例:
//
//	router.POST("/api/sync/tenants/:id",
//	    middleware.SyncRateLimit(limiter, middleware.TenantParamKey, 0),
//	    syncCtl.SyncTenant,
//	)
func SyncRateLimit(limiter *SyncRateLimiter, keyFn KeyFunc, interval time.Duration) gin.HandlerFunc {
	if interval <= 0 {
		interval = DefaultSyncCooldown
	}

	return func(c *gin.Context) {
		key, ok := keyFn(c)
		if !ok {
			return
		}

		result := limiter.Check(key, interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data":    gin.H{"retry_after": retryAfter},
			})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusMultipleChoices {
			limiter.Reset(key)
		}
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}
	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
