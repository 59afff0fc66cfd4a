package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
	"shopify_mirror/pkg/shopify"
)

// ErrInvalidTenant 注册参数不完整
var ErrInvalidTenant = errors.New("tenant: name, domain and token are required")

// TenantInput 注册参数
type TenantInput struct {
	Name        string
	ShopDomain  string
	AccessToken string
}

// TenantService 租户注册与首次启动引导
type TenantService struct {
	tenantRepo repository.TenantRepository
	log        *zap.Logger
}

// NewTenantService 创建租户服务
func NewTenantService(tenantRepo repository.TenantRepository, log *zap.Logger) *TenantService {
	return &TenantService{tenantRepo: tenantRepo, log: log.Named("tenant")}
}

// Register 按规范化域名创建租户，已存在时返回已有租户
func (s *TenantService) Register(ctx context.Context, in TenantInput) (*model.Tenant, bool, error) {
	domain := shopify.NormalizeDomain(in.ShopDomain)
	if strings.TrimSpace(in.Name) == "" || domain == "" || in.AccessToken == "" {
		return nil, false, ErrInvalidTenant
	}

	tenant := &model.Tenant{
		Name:        strings.TrimSpace(in.Name),
		ShopDomain:  domain,
		AccessToken: in.AccessToken,
	}
	created, err := s.tenantRepo.FirstOrCreate(ctx, tenant)
	if err != nil {
		return nil, false, fmt.Errorf("注册租户失败: %w", err)
	}
	if created {
		s.log.Info("租户已创建", zap.Int64("tenant_id", tenant.ID), zap.String("domain", domain))
	}
	return tenant, created, nil
}

// EnsureDefaultTenant 首次启动时创建默认租户，未配置时跳过
func (s *TenantService) EnsureDefaultTenant(ctx context.Context, in TenantInput) (*model.Tenant, error) {
	if in.ShopDomain == "" || in.AccessToken == "" {
		s.log.Debug("未配置默认租户，跳过引导")
		return nil, nil
	}
	if in.Name == "" {
		in.Name = shopify.NormalizeDomain(in.ShopDomain)
	}
	tenant, _, err := s.Register(ctx, in)
	return tenant, err
}

// Get 按 id 查询
func (s *TenantService) Get(ctx context.Context, id int64) (*model.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}
