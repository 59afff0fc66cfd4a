package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopify_mirror/internal/config"
	"shopify_mirror/internal/controller"
	"shopify_mirror/internal/metrics"
	"shopify_mirror/internal/middleware"
	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
	"shopify_mirror/internal/router"
	"shopify_mirror/internal/service"
	"shopify_mirror/internal/task"
	"shopify_mirror/pkg/database"
	"shopify_mirror/pkg/logger"
	"shopify_mirror/pkg/shopify"
)

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config   *config.Config
	Log      *zap.Logger
	JWT      *middleware.JWTConfig
	DB       *gorm.DB
	Metrics  *metrics.Registry
	Repos    *Repositories
	Services *Services
	Tasks    *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Tenant    repository.TenantRepository
	Reconcile repository.ReconcileRepository
	Analytics repository.AnalyticsRepository
}

// Services 服务集合
type Services struct {
	Tenant    *service.TenantService
	Guard     *service.TenantGuard
	Sync      *service.SyncService
	Retry     *service.RetryController
	Webhook   *service.WebhookService
	Dashboard *service.DashboardService
}

// ==================== 初始化函数 ====================

// initLogger 按配置创建日志
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "shopify-mirror")
}

// initDatabase 连接数据库、建表并补齐增量结构
// 结构补齐在任何读写之前完成
func initDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.InitDB(database.Options{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log, model.AllModels()...)
	if err != nil {
		return nil, err
	}

	report, err := database.NewSchemaGuard(db, log).
		Column(&model.Customer{}, "Phone").
		Column(&model.Product{}, "Handle").
		Column(&model.Order{}, "Currency").
		Column(&model.Order{}, "ShopUpdatedAt").
		Index(&model.Customer{}, "uniq_customer_per_tenant").
		Index(&model.Product{}, "uniq_product_per_tenant").
		Index(&model.Order{}, "uniq_order_per_tenant").
		Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("结构校正失败: %w", err)
	}
	if report.Changed() {
		log.Info("结构校正完成",
			zap.Strings("columns", report.AddedColumns),
			zap.Strings("indexes", report.CreatedIndexes))
	}
	return db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, log *zap.Logger, db *gorm.DB, jwtCfg *middleware.JWTConfig) *Dependencies {
	reg := metrics.NewRegistry()

	// -------- Repo 层 --------
	repos := &Repositories{
		Tenant:    repository.NewTenantRepository(db),
		Reconcile: repository.NewReconcileRepository(db),
		Analytics: repository.NewAnalyticsRepository(db),
	}

	// -------- 服务层 --------
	clientFactory := service.ShopifyClientFactory(shopify.ClientConfig{
		APIVersion: cfg.Shopify.APIVersion,
		Scheme:     cfg.Shopify.Scheme,
		Timeout:    cfg.Shopify.Timeout,
		RateLimit:  cfg.Shopify.RateLimit,
		RateBurst:  cfg.Shopify.RateBurst,
		PageSize:   cfg.Shopify.PageSize,
		MaxPages:   cfg.Shopify.MaxPages,
	})
	guard := service.NewTenantGuard(repos.Tenant, cfg.Sync.OnlyDomain, log)
	guard.SetMetrics(reg)

	services := &Services{
		Tenant: service.NewTenantService(repos.Tenant, log),
		Guard:  guard,
		Sync:   service.NewSyncService(repos.Tenant, repos.Reconcile, clientFactory, reg, log),
		Retry: service.NewRetryController(service.RetryPolicy{
			MaxAttempts: cfg.Sync.MaxAttempts,
			BaseDelay:   cfg.Sync.BaseDelay,
			MaxDelay:    cfg.Sync.MaxDelay,
		}, nil, log),
		Webhook: service.NewWebhookService(repos.Tenant, repos.Reconcile, service.WebhookOptions{
			Secret:                 cfg.Webhook.Secret,
			UpsertEmbeddedCustomer: cfg.Webhook.UpsertEmbeddedCustomer,
		}, reg, log),
		Dashboard: service.NewDashboardService(repos.Analytics),
	}

	// -------- 任务层 --------
	syncTask := task.NewSyncTask(services.Guard, services.Sync, services.Retry, cfg.Sync.Cron, log)
	tasks := task.NewTaskManager(syncTask, &task.TaskManagerConfig{
		SyncEnabled: cfg.Sync.Enabled,
		RunOnStart:  cfg.Sync.RunOnStart,
	}, log)

	return &Dependencies{
		Config:   cfg,
		Log:      log,
		JWT:      jwtCfg,
		DB:       db,
		Metrics:  reg,
		Repos:    repos,
		Services: services,
		Tasks:    tasks,
	}
}

// initJWT 使用配置中的密钥签发与校验租户 Token
func initJWT(cfg *config.Config) (*middleware.JWTConfig, error) {
	return middleware.NewJWTConfig(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
}

// initHTTP 创建 HTTP 服务
func initHTTP(deps *Dependencies) *http.Server {
	gin.SetMode(deps.Config.Server.Mode)

	ctls := &router.Controllers{
		Webhook:   controller.NewWebhookController(deps.Services.Webhook),
		Sync:      controller.NewSyncController(deps.Tasks),
		Dashboard: controller.NewDashboardController(deps.Services.Dashboard),
		Health:    controller.NewHealthController(deps.DB, deps.Tasks),
	}
	engine := router.NewEngine(ctls, router.Options{
		JWT:          deps.JWT,
		AdminKey:     deps.Config.Server.AdminKey,
		SyncCooldown: deps.Config.Sync.Cooldown,
		Metrics:      deps.Metrics,
		Logger:       deps.Log,
	})

	return &http.Server{
		Addr:    ":" + deps.Config.Server.Port,
		Handler: engine,
	}
}
