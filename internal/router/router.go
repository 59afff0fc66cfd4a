package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopify_mirror/internal/controller"
	"shopify_mirror/internal/metrics"
	"shopify_mirror/internal/middleware"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Webhook   *controller.WebhookController
	Sync      *controller.SyncController
	Dashboard *controller.DashboardController
	Health    *controller.HealthController
}

// Options 路由配置
type Options struct {
	JWT          *middleware.JWTConfig
	AdminKey     string
	SyncCooldown time.Duration
	Metrics      *metrics.Registry
	Logger       *zap.Logger
}

// NewEngine 创建 gin 引擎并注册中间件与路由
func NewEngine(ctls *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(opts.Logger))
	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers, opts Options) {
	limiter := middleware.NewSyncRateLimiter()
	cooldown := opts.SyncCooldown

	// 1. 上游推送，签名在服务层校验
	// POST /webhooks/shopify
	r.POST("/webhooks/shopify", ctls.Webhook.Receive)

	// 2. Prometheus 指标
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// 3. API 路由组
	api := r.Group("/api")
	{
		// GET /api/health
		api.GET("/health", ctls.Health.Check)

		// sync 手动同步
		sync := api.Group("/sync")
		{
			// POST /api/sync/me
			sync.POST("/me",
				middleware.JWTAuth(opts.JWT),
				middleware.SyncRateLimit(limiter, middleware.TenantClaimKey, cooldown),
				ctls.Sync.SyncMe,
			)
			// POST /api/sync/tenants/:id
			sync.POST("/tenants/:id",
				middleware.AdminKeyAuth(opts.AdminKey),
				middleware.SyncRateLimit(limiter, middleware.TenantParamKey, cooldown),
				ctls.Sync.SyncTenant,
			)
			// POST /api/sync/all
			sync.POST("/all",
				middleware.AdminKeyAuth(opts.AdminKey),
				middleware.SyncRateLimit(limiter, middleware.GlobalKey, cooldown),
				ctls.Sync.SyncAll,
			)
		}

		// metrics 租户看板
		dashboard := api.Group("/metrics", middleware.JWTAuth(opts.JWT))
		{
			dashboard.GET("/summary", ctls.Dashboard.Summary)
			dashboard.GET("/orders-by-date", ctls.Dashboard.OrdersByDate)
			dashboard.GET("/top-customers", ctls.Dashboard.TopCustomers)
		}
	}
}
