package model

import (
	"time"

	"gorm.io/datatypes"
)

// Customer 租户下的上游客户镜像
// (external_id, tenant_id) 为业务主键，ID 仅为代理键
type Customer struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID int64 `gorm:"not null;uniqueIndex:uniq_customer_per_tenant,priority:1" json:"external_id"`
	TenantID   int64 `gorm:"not null;uniqueIndex:uniq_customer_per_tenant,priority:2;index" json:"tenant_id"`

	FirstName *string `gorm:"size:255" json:"first_name"`
	LastName  *string `gorm:"size:255" json:"last_name"`
	Email     *string `gorm:"size:255" json:"email"`
	Phone     *string `gorm:"size:64" json:"phone"`

	// 金额（分为单位存储）
	TotalSpentCents int64 `gorm:"not null" json:"-"`
	OrdersCount     int   `gorm:"not null" json:"orders_count"`

	ShopCreatedAt *time.Time     `json:"shop_created_at"`
	ShopUpdatedAt *time.Time     `json:"shop_updated_at"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

// GetTotalSpent 累计消费（元）
func (c *Customer) GetTotalSpent() float64 {
	return CentsToAmount(c.TotalSpentCents)
}

// DisplayName 展示名：姓名 -> 邮箱 -> "Customer <external_id>"
func (c *Customer) DisplayName() string {
	return CustomerDisplayName(c.FirstName, c.LastName, c.Email, c.ExternalID)
}

// CustomerDisplayName 固定的展示名规则，查询结果也复用这一规则
func CustomerDisplayName(first, last, email *string, externalID int64) string {
	name := ""
	if first != nil {
		name = *first
	}
	if last != nil && *last != "" {
		if name != "" {
			name += " "
		}
		name += *last
	}
	if name != "" {
		return name
	}
	if email != nil && *email != "" {
		return *email
	}
	return "Customer " + itoa(externalID)
}
