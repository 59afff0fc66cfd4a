package service

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopify_mirror/internal/model"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func seedTenant(t *testing.T, db *gorm.DB, name, domain string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{Name: name, ShopDomain: domain, AccessToken: "shpat_" + name}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("创建租户失败: %v", err)
	}
	return tenant
}

func strPtr(s string) *string { return &s }
