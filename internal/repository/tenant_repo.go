package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopify_mirror/internal/model"
	"shopify_mirror/pkg/shopify"
)

// ==================== 接口定义 ====================

// TenantRepository 租户仓储接口
type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id int64) (*model.Tenant, error)
	// GetByDomain 按规范化域名查找，兼容带协议或尾斜杠的历史写法
	GetByDomain(ctx context.Context, domain string) (*model.Tenant, error)
	// ListOrderByID 按 id 升序返回全部租户
	ListOrderByID(ctx context.Context) ([]model.Tenant, error)
	// DeleteByIDs 物理删除租户及其客户、商品、订单
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	// FirstOrCreate 按域名查找，不存在则创建
	FirstOrCreate(ctx context.Context, tenant *model.Tenant) (bool, error)
}

// ==================== 仓储实现 ====================

type tenantRepo struct {
	db *gorm.DB
}

// NewTenantRepository 创建租户仓储
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *tenantRepo) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) GetByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).
		Where("shop_domain IN ?", shopify.DomainVariants(domain)).
		Order("id ASC").
		First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) ListOrderByID(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := r.db.WithContext(ctx).Order("id ASC").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&model.Order{}, &model.Product{}, &model.Customer{}} {
			if err := tx.Where("tenant_id IN ?", ids).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id IN ?", ids).Delete(&model.Tenant{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *tenantRepo) FirstOrCreate(ctx context.Context, tenant *model.Tenant) (bool, error) {
	existing, err := r.GetByDomain(ctx, tenant.ShopDomain)
	if err == nil {
		*tenant = *existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := r.Create(ctx, tenant); err != nil {
		return false, err
	}
	return true, nil
}
