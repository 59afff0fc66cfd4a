package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"shopify_mirror/internal/model"
)

func TestReconcileRepo_UpsertCustomer_Idempotent(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	newCustomer := func() *model.Customer {
		return &model.Customer{
			ExternalID:      5,
			TenantID:        1,
			FirstName:       strPtr("Ana"),
			Email:           strPtr("a@b.com"),
			TotalSpentCents: 1050,
			OrdersCount:     2,
			ShopCreatedAt:   &created,
			Metadata:        datatypes.JSON(`{"id":5}`),
		}
	}

	require.NoError(t, repo.UpsertCustomer(ctx, newCustomer()))
	var first model.Customer
	require.NoError(t, db.First(&first).Error)

	require.NoError(t, repo.UpsertCustomer(ctx, newCustomer()))
	var rows []model.Customer
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, first, rows[0])
}

func TestReconcileRepo_UpsertCustomer_KeepsMeaningfulFields(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{
		ExternalID: 5, TenantID: 1,
		FirstName: strPtr("Ana"), Email: strPtr("a@b.com"), Phone: strPtr("+100"),
		TotalSpentCents: 1000, OrdersCount: 1,
	}))
	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{
		ExternalID: 5, TenantID: 1,
		Email:           strPtr(""),
		TotalSpentCents: 0, OrdersCount: 3,
	}))

	var c model.Customer
	require.NoError(t, db.Where("external_id = ? AND tenant_id = ?", 5, 1).First(&c).Error)
	assert.Equal(t, "Ana", *c.FirstName)
	assert.Equal(t, "a@b.com", *c.Email)
	assert.Equal(t, "+100", *c.Phone)
	assert.Equal(t, int64(0), c.TotalSpentCents, "累计消费总是刷新")
	assert.Equal(t, 3, c.OrdersCount)
}

func TestReconcileRepo_TenantIsolation(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{ExternalID: 5, TenantID: 1}))
	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{ExternalID: 5, TenantID: 2}))

	var count int64
	db.Model(&model.Customer{}).Count(&count)
	assert.Equal(t, int64(2), count)

	// 租户 3 没有客户 5，不能引用其他租户的客户
	order := &model.Order{ExternalID: int64Ptr(1), TenantID: 3, OrderNumber: "#1", Status: "paid", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.UpsertOrder(ctx, order, int64Ptr(5)))
	assert.Nil(t, order.CustomerID)
}

func TestReconcileRepo_UpsertEmbeddedCustomer(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCustomer(ctx, &model.Customer{
		ExternalID: 5, TenantID: 1, FirstName: strPtr("Ana"), TotalSpentCents: 100, OrdersCount: 4,
	}))
	require.NoError(t, repo.UpsertEmbeddedCustomer(ctx, &model.Customer{
		ExternalID: 5, TenantID: 1, FirstName: strPtr("Other"), TotalSpentCents: 900,
	}))

	var c model.Customer
	require.NoError(t, db.First(&c).Error)
	assert.Equal(t, "Ana", *c.FirstName)
	assert.Equal(t, int64(900), c.TotalSpentCents)
	assert.Equal(t, 4, c.OrdersCount)
}

func TestReconcileRepo_UpsertOrder_CustomerResolution(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// 客户尚未同步
	order := &model.Order{ExternalID: int64Ptr(900), TenantID: 1, OrderNumber: "#900", TotalPriceCents: 4999, Status: "pending", CreatedAt: created}
	require.NoError(t, repo.UpsertOrder(ctx, order, int64Ptr(5)))
	assert.Nil(t, order.CustomerID)

	// 客户同步后不会回填已有订单
	customer := &model.Customer{ExternalID: 5, TenantID: 1}
	require.NoError(t, repo.UpsertCustomer(ctx, customer))
	var stored model.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Nil(t, stored.CustomerID)

	// 下一次订单写入时解析成功
	order = &model.Order{ExternalID: int64Ptr(900), TenantID: 1, OrderNumber: "#900", TotalPriceCents: 4999, Status: "paid", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.UpsertOrder(ctx, order, int64Ptr(5)))
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, customer.ID, *order.CustomerID)

	// 无客户信息的重放保留已解析的引用
	order = &model.Order{ExternalID: int64Ptr(900), TenantID: 1, OrderNumber: "#900", TotalPriceCents: 4999, Status: "paid", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.UpsertOrder(ctx, order, nil))

	var rows []model.Order
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CustomerID)
	assert.Equal(t, customer.ID, *rows[0].CustomerID)
	assert.Equal(t, "paid", rows[0].Status)
	assert.True(t, created.Equal(rows[0].CreatedAt), "created_at 只在插入时写入")
}

func TestReconcileRepo_UpsertProduct_Idempotent(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	newProduct := func() *model.Product {
		return &model.Product{
			ExternalID: 77, TenantID: 1, Title: "Mug",
			Handle: strPtr("mug"), PriceCents: int64Ptr(1299), SKU: strPtr("MUG-1"),
			Tags: model.StringArray{"kitchen", "gift"},
		}
	}
	require.NoError(t, repo.UpsertProduct(ctx, newProduct()))
	var first model.Product
	require.NoError(t, db.First(&first).Error)

	require.NoError(t, repo.UpsertProduct(ctx, newProduct()))
	var rows []model.Product
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, first, rows[0])
	assert.Equal(t, model.StringArray{"kitchen", "gift"}, rows[0].Tags)

	// 新记录没有规格时保留旧价格
	update := &model.Product{ExternalID: 77, TenantID: 1, Title: "Mug v2"}
	require.NoError(t, repo.UpsertProduct(ctx, update))
	var p model.Product
	require.NoError(t, db.First(&p).Error)
	assert.Equal(t, "Mug v2", p.Title)
	require.NotNil(t, p.PriceCents)
	assert.Equal(t, int64(1299), *p.PriceCents)
}

func TestReconcileRepo_FindCustomerID(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	id, err := repo.FindCustomerID(ctx, 1, 5)
	require.NoError(t, err)
	assert.Nil(t, id)

	c := &model.Customer{ExternalID: 5, TenantID: 1}
	require.NoError(t, repo.UpsertCustomer(ctx, c))
	id, err = repo.FindCustomerID(ctx, 1, 5)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, c.ID, *id)
}
