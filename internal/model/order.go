package model

import (
	"strconv"
	"time"
)

// 上游订单状态
const (
	OrderStatusPaid    = "paid"
	OrderStatusPending = "pending" // Webhook 推送且无状态
	OrderStatusUnknown = "unknown" // 轮询拉取且无状态
)

// Order 租户下的上游订单镜像
// CustomerID 指向同租户的 Customer，客户尚未同步时为空
type Order struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID *int64 `gorm:"uniqueIndex:uniq_order_per_tenant,priority:1" json:"external_id"`
	TenantID   int64  `gorm:"not null;uniqueIndex:uniq_order_per_tenant,priority:2;index" json:"tenant_id"`

	CustomerID *int64    `gorm:"index" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL" json:"-"`

	OrderNumber string `gorm:"size:64;not null" json:"order_number"`

	// 金额（分为单位存储）
	TotalPriceCents int64   `gorm:"not null" json:"-"`
	Currency        *string `gorm:"size:10" json:"currency"`
	Status          string  `gorm:"size:32;not null;index" json:"status"`

	// 上游创建时间，缺失时为写入时刻
	CreatedAt     time.Time  `gorm:"not null;index" json:"created_at"`
	ShopUpdatedAt *time.Time `json:"shop_updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// GetTotalPrice 订单金额（元）
func (o *Order) GetTotalPrice() float64 {
	return CentsToAmount(o.TotalPriceCents)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
