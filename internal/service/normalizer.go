package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"shopify_mirror/internal/model"
	"shopify_mirror/pkg/shopify"
)

// Source 记录来源，决定订单缺省状态
type Source int

const (
	SourcePoll Source = iota
	SourceWebhook
)

func (s Source) String() string {
	if s == SourceWebhook {
		return "webhook"
	}
	return "poll"
}

// defaultOrderStatus 缺少支付与履约状态时的缺省值
func (s Source) defaultOrderStatus() string {
	if s == SourceWebhook {
		return model.OrderStatusPending
	}
	return model.OrderStatusUnknown
}

// NormalizeCustomer 上游客户 -> 镜像记录
// 姓名、邮箱、电话优先取直接字段，其次默认地址，都没有则为空
func NormalizeCustomer(tenantID int64, c *shopify.Customer) (*model.Customer, error) {
	if c == nil || c.ID == 0 {
		return nil, fmt.Errorf("%w: 客户缺少 id", shopify.ErrMalformedPayload)
	}

	var addr shopify.Address
	if a := c.PrimaryAddress(); a != nil {
		addr = *a
	}

	ordersCount := 0
	if c.OrdersCount != nil {
		ordersCount = *c.OrdersCount
	}

	return &model.Customer{
		ExternalID:      c.ID,
		TenantID:        tenantID,
		FirstName:       firstNonEmpty(c.FirstName, addr.FirstName),
		LastName:        firstNonEmpty(c.LastName, addr.LastName),
		Email:           firstNonEmpty(c.Email, addr.Email),
		Phone:           firstNonEmpty(c.Phone, addr.Phone),
		TotalSpentCents: ParseCents(string(c.TotalSpent)),
		OrdersCount:     ordersCount,
		ShopCreatedAt:   ParseTimestamp(c.CreatedAt),
		ShopUpdatedAt:   ParseTimestamp(c.UpdatedAt),
		Metadata:        rawJSON(c.Raw),
	}, nil
}

// NormalizeEmbeddedCustomer 订单内嵌的客户信息，只用于补建客户
// 邮箱缺失时写空串，展示层需要非空值
func NormalizeEmbeddedCustomer(tenantID int64, c *shopify.Customer) (*model.Customer, error) {
	if c == nil || c.ID == 0 {
		return nil, fmt.Errorf("%w: 内嵌客户缺少 id", shopify.ErrMalformedPayload)
	}
	email := ""
	if c.Email != nil {
		email = *c.Email
	}
	return &model.Customer{
		ExternalID:      c.ID,
		TenantID:        tenantID,
		FirstName:       firstNonEmpty(c.FirstName),
		LastName:        firstNonEmpty(c.LastName),
		Email:           &email,
		TotalSpentCents: ParseCents(string(c.TotalSpent)),
	}, nil
}

// NormalizeProduct 上游商品 -> 镜像记录，价格与 SKU 取首个规格
func NormalizeProduct(tenantID int64, p *shopify.Product) (*model.Product, error) {
	if p == nil || p.ID == 0 {
		return nil, fmt.Errorf("%w: 商品缺少 id", shopify.ErrMalformedPayload)
	}

	product := &model.Product{
		ExternalID:    p.ID,
		TenantID:      tenantID,
		Title:         p.Title,
		Handle:        firstNonEmpty(p.Handle),
		Tags:          splitTags(p.Tags),
		ShopCreatedAt: ParseTimestamp(p.CreatedAt),
		ShopUpdatedAt: ParseTimestamp(p.UpdatedAt),
		Metadata:      rawJSON(p.Raw),
	}
	if len(p.Variants) > 0 {
		price := ParseCents(string(p.Variants[0].Price))
		product.PriceCents = &price
		product.SKU = firstNonEmpty(p.Variants[0].SKU)
	}
	return product, nil
}

// NormalizeOrder 上游订单 -> 镜像记录
// 返回的 customerExternalID 由仓储在写入时解析为本地客户 id
func NormalizeOrder(tenantID int64, o *shopify.Order, src Source, now time.Time) (*model.Order, *int64, error) {
	if o == nil || o.ID == nil {
		return nil, nil, fmt.Errorf("%w: 订单缺少 id", shopify.ErrMalformedPayload)
	}

	status := src.defaultOrderStatus()
	if s := firstNonEmpty(o.FinancialStatus, o.FulfillmentStatus); s != nil {
		status = *s
	}

	createdAt := now.UTC()
	if t := ParseTimestamp(o.CreatedAt); t != nil {
		createdAt = *t
	}

	order := &model.Order{
		ExternalID:      o.ID,
		TenantID:        tenantID,
		OrderNumber:     orderDisplayID(o),
		TotalPriceCents: ParseCents(string(o.TotalPrice)),
		Currency:        firstNonEmpty(o.Currency),
		Status:          status,
		CreatedAt:       createdAt,
		ShopUpdatedAt:   ParseTimestamp(o.UpdatedAt),
	}

	var customerExternalID *int64
	if o.Customer != nil && o.Customer.ID != 0 {
		id := o.Customer.ID
		customerExternalID = &id
	}
	return order, customerExternalID, nil
}

// orderDisplayID 订单号 -> 名称 -> "#<id>"
func orderDisplayID(o *shopify.Order) string {
	if n := strings.TrimSpace(string(o.OrderNumber)); n != "" {
		return n
	}
	if o.Name != nil && strings.TrimSpace(*o.Name) != "" {
		return strings.TrimSpace(*o.Name)
	}
	return fmt.Sprintf("#%d", *o.ID)
}

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ParseCents 金额字符串 -> 分，两位小数四舍五入
// 空值、非数字、NaN 以及超出 int64 范围的金额一律为 0
func ParseCents(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0
	}
	return cents.IntPart()
}

// ParseTimestamp ISO-8601 -> UTC 时间，缺失或无法解析时为 nil
func ParseTimestamp(raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			s := *v
			return &s
		}
	}
	return nil
}

func splitTags(raw string) model.StringArray {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags model.StringArray
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func rawJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(append([]byte(nil), raw...))
}
