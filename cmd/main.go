package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"shopify_mirror/internal/config"
	"shopify_mirror/internal/middleware"
	"shopify_mirror/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "shopify-mirror",
		Usage: "多租户 Shopify 数据镜像：定时拉取 + Webhook 推送",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径，缺省时查找 ./config.yaml",
				EnvVars: []string{"MIRROR_CONFIG"},
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "启动 HTTP 服务与定时同步",
				Action: serveAction,
			},
			{
				Name:   "migrate",
				Usage:  "建表并补齐增量结构后退出",
				Action: migrateAction,
			},
			{
				Name:  "sync",
				Usage: "立即执行一轮同步后退出",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "tenant", Usage: "只同步指定租户 ID"},
				},
				Action: syncAction,
			},
			{
				Name:  "tenant",
				Usage: "租户管理",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "注册租户并签发访问 Token",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Required: true},
							&cli.StringFlag{Name: "domain", Required: true, Usage: "例如 demo.myshopify.com"},
							&cli.StringFlag{Name: "token", Required: true, Usage: "Admin API access token"},
						},
						Action: tenantAddAction,
					},
					{
						Name:  "token",
						Usage: "为已有租户签发访问 Token",
						Flags: []cli.Flag{
							&cli.Int64Flag{Name: "id", Required: true},
						},
						Action: tenantTokenAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ==================== 启动 ====================

// bootstrap 读取配置、初始化日志与数据库
func bootstrap(c *cli.Context) (*Dependencies, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	log, err := initLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	jwtCfg, err := initJWT(cfg)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("初始化 JWT 失败: %w", err)
	}

	db, err := initDatabase(c.Context, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	deps := initDependencies(cfg, log, db, jwtCfg)
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = log.Sync()
	}
	return deps, cleanup, nil
}

// ==================== 命令实现 ====================

func serveAction(c *cli.Context) error {
	deps, cleanup, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer cleanup()
	log := deps.Log

	if deps.Config.Webhook.Secret == "" {
		log.Warn("未配置 webhook.secret，所有推送都将被拒绝")
	}
	if deps.Config.Server.AdminKey == "" {
		log.Warn("未配置 server.admin_key，手动同步运维接口已关闭")
	}

	// 1. 首次启动引导默认租户
	if _, err := deps.Services.Tenant.EnsureDefaultTenant(c.Context, service.TenantInput{
		Name:        deps.Config.Tenant.DefaultName,
		ShopDomain:  deps.Config.Tenant.DefaultDomain,
		AccessToken: deps.Config.Tenant.DefaultToken,
	}); err != nil {
		return fmt.Errorf("初始化默认租户失败: %w", err)
	}

	// 2. 启动定时任务
	if err := deps.Tasks.Start(); err != nil {
		return fmt.Errorf("启动定时任务失败: %w", err)
	}
	defer deps.Tasks.Stop()

	// 3. 启动服务
	srv := initHTTP(deps)
	errCh := make(chan error, 1)
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("正在关闭服务...", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务强制关闭: %w", err)
	}

	log.Info("服务已退出")
	return nil
}

func migrateAction(c *cli.Context) error {
	deps, cleanup, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer cleanup()

	deps.Log.Info("数据库结构已是最新")
	return nil
}

func syncAction(c *cli.Context) error {
	deps, cleanup, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var n int
	if id := c.Int64("tenant"); id > 0 {
		n, err = deps.Tasks.TriggerTenantSync(ctx, id)
	} else {
		n, err = deps.Tasks.TriggerAllSync(ctx)
	}
	if err != nil {
		return err
	}

	deps.Log.Info("同步完成", zap.Int("tenants", n), zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(c.App.Writer, "synced %d tenant(s)\n", n)
	return nil
}

func tenantAddAction(c *cli.Context) error {
	deps, cleanup, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer cleanup()

	tenant, created, err := deps.Services.Tenant.Register(c.Context, service.TenantInput{
		Name:        c.String("name"),
		ShopDomain:  c.String("domain"),
		AccessToken: c.String("token"),
	})
	if err != nil {
		return err
	}

	token, err := middleware.GenerateAccessToken(deps.JWT, tenant.ID)
	if err != nil {
		return fmt.Errorf("签发 Token 失败: %w", err)
	}

	status := "created"
	if !created {
		status = "exists"
	}
	fmt.Fprintf(c.App.Writer, "tenant %d (%s) %s\ntoken: %s\n", tenant.ID, tenant.ShopDomain, status, token)
	return nil
}

func tenantTokenAction(c *cli.Context) error {
	deps, cleanup, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer cleanup()

	tenant, err := deps.Services.Tenant.Get(c.Context, c.Int64("id"))
	if err != nil {
		return fmt.Errorf("查询租户失败: %w", err)
	}

	token, err := middleware.GenerateAccessToken(deps.JWT, tenant.ID)
	if err != nil {
		return fmt.Errorf("签发 Token 失败: %w", err)
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}
