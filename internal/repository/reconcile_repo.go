package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopify_mirror/internal/model"
)

// ==================== 接口定义 ====================

// ReconcileRepository 镜像表写入
// 所有写入都是按 (external_id, tenant_id) 的单条 upsert，重复执行结果不变
type ReconcileRepository interface {
	UpsertCustomer(ctx context.Context, customer *model.Customer) error
	// UpsertEmbeddedCustomer 订单内嵌的客户，冲突时只刷新累计消费
	UpsertEmbeddedCustomer(ctx context.Context, customer *model.Customer) error
	UpsertProduct(ctx context.Context, product *model.Product) error
	// UpsertOrder 写入订单，customerExternalID 非空时在写入时解析为本地客户 id
	// 找不到客户时 customer_id 为空，不报错
	UpsertOrder(ctx context.Context, order *model.Order, customerExternalID *int64) error
	// FindCustomerID 按租户和上游 id 查本地客户 id，不存在返回 nil
	FindCustomerID(ctx context.Context, tenantID, externalID int64) (*int64, error)
}

var naturalKey = []clause.Column{{Name: "external_id"}, {Name: "tenant_id"}}

// ==================== 仓储实现 ====================

type reconcileRepo struct {
	db *gorm.DB
}

// NewReconcileRepository 创建镜像仓储
func NewReconcileRepository(db *gorm.DB) ReconcileRepository {
	return &reconcileRepo{db: db}
}

func (r *reconcileRepo) UpsertCustomer(ctx context.Context, customer *model.Customer) error {
	row := *customer
	row.ID = 0
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: naturalKey,
		DoUpdates: clause.Set{
			keepOld("customers", "first_name"),
			keepOld("customers", "last_name"),
			{Column: clause.Column{Name: "email"}, Value: gorm.Expr("COALESCE(NULLIF(excluded.email, ''), customers.email)")},
			keepOld("customers", "phone"),
			refresh("total_spent_cents"),
			refresh("orders_count"),
			keepOld("customers", "shop_created_at"),
			keepOld("customers", "shop_updated_at"),
			keepOld("customers", "metadata"),
		},
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: 写入客户 %d 失败: %w", ErrStoreWrite, customer.ExternalID, err)
	}
	customer.ID = row.ID
	return nil
}

func (r *reconcileRepo) UpsertEmbeddedCustomer(ctx context.Context, customer *model.Customer) error {
	row := *customer
	row.ID = 0
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   naturalKey,
		DoUpdates: clause.Set{refresh("total_spent_cents")},
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: 写入内嵌客户 %d 失败: %w", ErrStoreWrite, customer.ExternalID, err)
	}
	customer.ID = row.ID
	return nil
}

func (r *reconcileRepo) UpsertProduct(ctx context.Context, product *model.Product) error {
	row := *product
	row.ID = 0
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: naturalKey,
		DoUpdates: clause.Set{
			refresh("title"),
			keepOld("products", "handle"),
			keepOld("products", "price_cents"),
			keepOld("products", "sku"),
			refresh("tags"),
			keepOld("products", "shop_created_at"),
			keepOld("products", "shop_updated_at"),
			keepOld("products", "metadata"),
		},
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: 写入商品 %d 失败: %w", ErrStoreWrite, product.ExternalID, err)
	}
	product.ID = row.ID
	return nil
}

func (r *reconcileRepo) UpsertOrder(ctx context.Context, order *model.Order, customerExternalID *int64) error {
	row := *order
	row.ID = 0
	row.Customer = nil
	if customerExternalID != nil {
		customerID, err := r.FindCustomerID(ctx, order.TenantID, *customerExternalID)
		if err != nil {
			return err
		}
		row.CustomerID = customerID
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: naturalKey,
		DoUpdates: clause.Set{
			refresh("order_number"),
			refresh("total_price_cents"),
			refresh("status"),
			keepOld("orders", "customer_id"),
			keepOld("orders", "currency"),
			keepOld("orders", "shop_updated_at"),
		},
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: 写入订单失败: %w", ErrStoreWrite, err)
	}
	order.ID = row.ID
	order.CustomerID = row.CustomerID
	return nil
}

func (r *reconcileRepo) FindCustomerID(ctx context.Context, tenantID, externalID int64) (*int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: 查询客户 %d 失败: %w", ErrStoreWrite, externalID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

// refresh 冲突时总是使用新值
func refresh(column string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: column},
		Value:  gorm.Expr("excluded." + column),
	}
}

// keepOld 冲突时新值为空则保留旧值
func keepOld(table, column string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: column},
		Value:  gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, %s.%s)", column, table, column)),
	}
}
