package model

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// AllModels 需要 AutoMigrate 的全部模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{&Tenant{}, &Customer{}, &Product{}, &Order{}}
}

// CentsToAmount 分转元
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// StringArray 字符串数组列，PostgreSQL 下为 text[]，其他方言退化为 text
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

func (StringArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
