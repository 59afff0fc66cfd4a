package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopify_mirror/internal/metrics"
	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
	"shopify_mirror/pkg/shopify"
)

// TenantGuard 同步前的租户去重
// 按规范化域名分组，每组保留 id 最小的一条，其余物理删除
type TenantGuard struct {
	tenantRepo repository.TenantRepository
	onlyDomain string
	metrics    *metrics.Registry
	log        *zap.Logger
}

// NewTenantGuard 创建租户守卫，onlyDomain 非空时只返回该店铺
func NewTenantGuard(tenantRepo repository.TenantRepository, onlyDomain string, log *zap.Logger) *TenantGuard {
	return &TenantGuard{
		tenantRepo: tenantRepo,
		onlyDomain: shopify.NormalizeDomain(onlyDomain),
		log:        log.Named("tenant_guard"),
	}
}

// SetMetrics 记录删除的重复租户数
func (g *TenantGuard) SetMetrics(reg *metrics.Registry) {
	g.metrics = reg
}

// Dedupe 去重并返回存活租户，重复执行无副作用
func (g *TenantGuard) Dedupe(ctx context.Context) ([]model.Tenant, error) {
	tenants, err := g.tenantRepo.ListOrderByID(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载租户失败: %w", err)
	}

	seen := make(map[string]int64, len(tenants))
	survivors := make([]model.Tenant, 0, len(tenants))
	var duplicates []int64
	for _, t := range tenants {
		domain := shopify.NormalizeDomain(t.ShopDomain)
		if keeper, ok := seen[domain]; ok {
			g.log.Warn("发现重复租户",
				zap.String("domain", domain),
				zap.Int64("keep_id", keeper),
				zap.Int64("drop_id", t.ID))
			duplicates = append(duplicates, t.ID)
			continue
		}
		seen[domain] = t.ID
		survivors = append(survivors, t)
	}

	if len(duplicates) > 0 {
		deleted, err := g.tenantRepo.DeleteByIDs(ctx, duplicates)
		if err != nil {
			return nil, fmt.Errorf("删除重复租户失败: %w", err)
		}
		g.log.Info("已删除重复租户", zap.Int64("count", deleted))
		if g.metrics != nil {
			g.metrics.TenantsDeduped.Add(float64(deleted))
		}
	}

	if g.onlyDomain == "" {
		return survivors, nil
	}
	filtered := survivors[:0]
	for _, t := range survivors {
		if shopify.NormalizeDomain(t.ShopDomain) == g.onlyDomain {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}
