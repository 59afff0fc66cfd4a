package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopify_mirror/internal/metrics"
	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
	"shopify_mirror/pkg/shopify"
)

// ==================== 依赖接口 ====================

// UpstreamClient 单个店铺的上游读取接口
type UpstreamClient interface {
	ListCustomers(ctx context.Context) ([]shopify.Customer, error)
	ListProducts(ctx context.Context) ([]shopify.Product, error)
	ListOrders(ctx context.Context, status string) ([]shopify.Order, error)
}

// ClientFactory 按租户创建上游客户端
type ClientFactory func(tenant *model.Tenant) UpstreamClient

// ShopifyClientFactory 使用真实 Admin API 的客户端工厂
// 同一店铺的客户端共用限流器，定时与手动同步重叠时配额不叠加
func ShopifyClientFactory(cfg shopify.ClientConfig) ClientFactory {
	if cfg.Limiters == nil {
		cfg.Limiters = shopify.NewLimiterPool(cfg.RateLimit, cfg.RateBurst)
	}
	return func(tenant *model.Tenant) UpstreamClient {
		return shopify.NewClient(cfg, tenant.ShopDomain, tenant.AccessToken)
	}
}

// PullResult 单个租户一次拉取的结果
type PullResult struct {
	TenantID       int64         `json:"tenant_id"`
	Customers      int           `json:"customers"`
	Products       int           `json:"products"`
	Orders         int           `json:"orders"`
	OrdersUnlinked int           `json:"orders_unlinked"`
	Elapsed        time.Duration `json:"elapsed"`
}

// ==================== SyncService ====================

// SyncService 轮询同步
// 单个租户内按 客户 -> 商品 -> 订单 顺序逐条写入，任一步失败即中止该租户
type SyncService struct {
	tenantRepo repository.TenantRepository
	store      repository.ReconcileRepository
	newClient  ClientFactory
	metrics    *metrics.Registry
	now        func() time.Time
	log        *zap.Logger
}

// NewSyncService 创建同步服务，reg 可为 nil
func NewSyncService(
	tenantRepo repository.TenantRepository,
	store repository.ReconcileRepository,
	newClient ClientFactory,
	reg *metrics.Registry,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		tenantRepo: tenantRepo,
		store:      store,
		newClient:  newClient,
		metrics:    reg,
		now:        time.Now,
		log:        log.Named("sync"),
	}
}

// PullAll 依次拉取所有租户，遇到第一个失败即返回，由重试控制器整体重跑
func (s *SyncService) PullAll(ctx context.Context, tenants []model.Tenant) ([]PullResult, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.SyncTenants.Set(float64(len(tenants)))
	}

	results := make([]PullResult, 0, len(tenants))
	for i := range tenants {
		result, err := s.PullTenant(ctx, &tenants[i])
		if err != nil {
			s.observePass("failed", start)
			return results, err
		}
		results = append(results, *result)
	}

	s.observePass("succeeded", start)
	s.log.Info("同步轮次完成", zap.Int("tenants", len(tenants)), zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Tenant 加载租户，不存在时返回 ErrTenantNotFound
func (s *SyncService) Tenant(ctx context.Context, tenantID int64) (*model.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrTenantNotFound, tenantID)
		}
		return nil, fmt.Errorf("加载租户失败: %w", err)
	}
	return tenant, nil
}

// PullTenantByID 拉取指定租户
func (s *SyncService) PullTenantByID(ctx context.Context, tenantID int64) (*PullResult, error) {
	tenant, err := s.Tenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.PullTenant(ctx, tenant)
}

// PullTenant 完整拉取一个租户
func (s *SyncService) PullTenant(ctx context.Context, tenant *model.Tenant) (*PullResult, error) {
	start := time.Now()
	log := s.log.With(zap.Int64("tenant_id", tenant.ID), zap.String("domain", tenant.ShopDomain))
	client := s.newClient(tenant)
	result := &PullResult{TenantID: tenant.ID}

	log.Info("开始拉取")

	if err := s.pullCustomers(ctx, client, tenant.ID, result); err != nil {
		log.Error("拉取客户失败", zap.Error(err))
		return nil, fmt.Errorf("租户 %d 客户同步失败: %w", tenant.ID, err)
	}
	if err := s.pullProducts(ctx, client, tenant.ID, result); err != nil {
		log.Error("拉取商品失败", zap.Error(err))
		return nil, fmt.Errorf("租户 %d 商品同步失败: %w", tenant.ID, err)
	}
	if err := s.pullOrders(ctx, client, tenant.ID, result); err != nil {
		log.Error("拉取订单失败", zap.Error(err))
		return nil, fmt.Errorf("租户 %d 订单同步失败: %w", tenant.ID, err)
	}

	result.Elapsed = time.Since(start)
	log.Info("拉取完成",
		zap.Int("customers", result.Customers),
		zap.Int("products", result.Products),
		zap.Int("orders", result.Orders),
		zap.Int("orders_unlinked", result.OrdersUnlinked),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (s *SyncService) pullCustomers(ctx context.Context, client UpstreamClient, tenantID int64, result *PullResult) error {
	customers, err := client.ListCustomers(ctx)
	if err != nil {
		return err
	}
	for i := range customers {
		c, err := NormalizeCustomer(tenantID, &customers[i])
		if err != nil {
			return err
		}
		if err := s.store.UpsertCustomer(ctx, c); err != nil {
			return err
		}
		result.Customers++
	}
	s.countRecords("customers", result.Customers)
	return nil
}

func (s *SyncService) pullProducts(ctx context.Context, client UpstreamClient, tenantID int64, result *PullResult) error {
	products, err := client.ListProducts(ctx)
	if err != nil {
		return err
	}
	for i := range products {
		p, err := NormalizeProduct(tenantID, &products[i])
		if err != nil {
			return err
		}
		if err := s.store.UpsertProduct(ctx, p); err != nil {
			return err
		}
		result.Products++
	}
	s.countRecords("products", result.Products)
	return nil
}

func (s *SyncService) pullOrders(ctx context.Context, client UpstreamClient, tenantID int64, result *PullResult) error {
	orders, err := client.ListOrders(ctx, "any")
	if err != nil {
		return err
	}
	for i := range orders {
		o, customerExternalID, err := NormalizeOrder(tenantID, &orders[i], SourcePoll, s.now())
		if err != nil {
			return err
		}
		if err := s.store.UpsertOrder(ctx, o, customerExternalID); err != nil {
			return err
		}
		result.Orders++
		if customerExternalID != nil && o.CustomerID == nil {
			result.OrdersUnlinked++
		}
	}
	s.countRecords("orders", result.Orders)
	return nil
}

func (s *SyncService) countRecords(entity string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.SyncRecords.WithLabelValues(entity).Add(float64(n))
	}
}

func (s *SyncService) observePass(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncPasses.WithLabelValues(outcome).Inc()
	s.metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
}
