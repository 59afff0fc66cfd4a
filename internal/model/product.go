package model

import (
	"time"

	"gorm.io/datatypes"
)

// Product 租户下的上游商品镜像
type Product struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID int64 `gorm:"not null;uniqueIndex:uniq_product_per_tenant,priority:1" json:"external_id"`
	TenantID   int64 `gorm:"not null;uniqueIndex:uniq_product_per_tenant,priority:2;index" json:"tenant_id"`

	Title  string  `gorm:"size:512;not null" json:"title"`
	Handle *string `gorm:"size:255" json:"handle"`

	// 首个规格的价格（分），没有规格时为空
	PriceCents *int64      `json:"-"`
	SKU        *string     `gorm:"column:sku;size:128" json:"sku"`
	Tags       StringArray `json:"tags"`

	ShopCreatedAt *time.Time     `json:"shop_created_at"`
	ShopUpdatedAt *time.Time     `json:"shop_updated_at"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// GetPrice 价格（元），没有规格时返回 nil
func (p *Product) GetPrice() *float64 {
	if p.PriceCents == nil {
		return nil
	}
	v := CentsToAmount(*p.PriceCents)
	return &v
}
