package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopify_mirror/internal/model"
)

// ==================== 接口定义 ====================

// AnalyticsRepository 看板只读查询，全部限定在单个租户内
type AnalyticsRepository interface {
	CountCustomers(ctx context.Context, tenantID int64) (int64, error)
	PaidOrderStats(ctx context.Context, tenantID int64) (*OrderStats, error)
	// PaidOrdersBetween 返回 [start, end) 区间内已支付订单的创建时间与金额
	PaidOrdersBetween(ctx context.Context, tenantID int64, start, end time.Time) ([]OrderPoint, error)
	TopCustomers(ctx context.Context, tenantID int64, limit int) ([]CustomerSpend, error)
}

// OrderStats 订单汇总
type OrderStats struct {
	Orders       int64
	RevenueCents int64
}

// OrderPoint 单笔订单的时间与金额
type OrderPoint struct {
	CreatedAt       time.Time
	TotalPriceCents int64
}

// CustomerSpend 客户消费汇总
type CustomerSpend struct {
	CustomerID   int64
	ExternalID   int64
	FirstName    *string
	LastName     *string
	Email        *string
	Orders       int64
	RevenueCents int64
}

// DisplayName 展示名
func (c *CustomerSpend) DisplayName() string {
	return model.CustomerDisplayName(c.FirstName, c.LastName, c.Email, c.ExternalID)
}

// ==================== 仓储实现 ====================

type analyticsRepo struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建看板仓储
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepo{db: db}
}

func (r *analyticsRepo) CountCustomers(ctx context.Context, tenantID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

func (r *analyticsRepo) PaidOrderStats(ctx context.Context, tenantID int64) (*OrderStats, error) {
	var stats OrderStats
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COUNT(*) AS orders, COALESCE(SUM(total_price_cents), 0) AS revenue_cents").
		Where("tenant_id = ? AND status = ?", tenantID, model.OrderStatusPaid).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *analyticsRepo) PaidOrdersBetween(ctx context.Context, tenantID int64, start, end time.Time) ([]OrderPoint, error) {
	var points []OrderPoint
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("created_at, total_price_cents").
		Where("tenant_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			tenantID, model.OrderStatusPaid, start, end).
		Order("created_at ASC").
		Scan(&points).Error
	return points, err
}

func (r *analyticsRepo) TopCustomers(ctx context.Context, tenantID int64, limit int) ([]CustomerSpend, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []CustomerSpend
	err := r.db.WithContext(ctx).Table("orders AS o").
		Select(`c.id AS customer_id, c.external_id, c.first_name, c.last_name, c.email,
			COUNT(o.id) AS orders, COALESCE(SUM(o.total_price_cents), 0) AS revenue_cents`).
		Joins("JOIN customers AS c ON c.id = o.customer_id AND c.tenant_id = o.tenant_id").
		Where("o.tenant_id = ? AND o.status = ?", tenantID, model.OrderStatusPaid).
		Group("c.id, c.external_id, c.first_name, c.last_name, c.email").
		Order("revenue_cents DESC, c.id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
