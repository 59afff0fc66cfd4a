package model

import "time"

// Tenant 租户，一个租户对应一个上游店铺
// 同步流程不会修改租户，只有去重会删除重复行
type Tenant struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	ShopDomain  string    `gorm:"size:255;not null;uniqueIndex" json:"shop_domain"`
	AccessToken string    `gorm:"size:255;not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}
