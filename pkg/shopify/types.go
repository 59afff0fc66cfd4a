package shopify

import (
	"bytes"
	"encoding/json"
)

// Decimal 兼容 JSON 字符串和数字两种写法，例如 "49.99" 与 49.99
type Decimal string

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}
	*d = Decimal(b)
	return nil
}

func (d Decimal) String() string { return string(d) }

// Address 客户地址
type Address struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Default   bool    `json:"default"`
}

// Customer 上游客户记录（列表接口与 Webhook 共用）
type Customer struct {
	ID             int64     `json:"id"`
	FirstName      *string   `json:"first_name"`
	LastName       *string   `json:"last_name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	TotalSpent     Decimal   `json:"total_spent"`
	OrdersCount    *int      `json:"orders_count"`
	CreatedAt      *string   `json:"created_at"`
	UpdatedAt      *string   `json:"updated_at"`
	DefaultAddress *Address  `json:"default_address"`
	Addresses      []Address `json:"addresses"`

	Raw json.RawMessage `json:"-"`
}

func (c *Customer) UnmarshalJSON(b []byte) error {
	type alias Customer
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = Customer(a)
	c.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// PrimaryAddress 返回默认地址，没有则返回 nil
func (c *Customer) PrimaryAddress() *Address {
	if c.DefaultAddress != nil {
		return c.DefaultAddress
	}
	for i := range c.Addresses {
		if c.Addresses[i].Default {
			return &c.Addresses[i]
		}
	}
	return nil
}

// Variant 商品规格
type Variant struct {
	ID    int64   `json:"id"`
	Price Decimal `json:"price"`
	SKU   *string `json:"sku"`
}

// Product 上游商品记录
type Product struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Handle    *string   `json:"handle"`
	Tags      string    `json:"tags"`
	Variants  []Variant `json:"variants"`
	CreatedAt *string   `json:"created_at"`
	UpdatedAt *string   `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

func (p *Product) UnmarshalJSON(b []byte) error {
	type alias Product
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*p = Product(a)
	p.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Order 上游订单记录，Webhook 推送时缺少部分列表字段
type Order struct {
	ID                *int64    `json:"id"`
	OrderNumber       Decimal   `json:"order_number"`
	Name              *string   `json:"name"`
	TotalPrice        Decimal   `json:"total_price"`
	Currency          *string   `json:"currency"`
	FinancialStatus   *string   `json:"financial_status"`
	FulfillmentStatus *string   `json:"fulfillment_status"`
	CreatedAt         *string   `json:"created_at"`
	UpdatedAt         *string   `json:"updated_at"`
	Customer          *Customer `json:"customer"`

	Raw json.RawMessage `json:"-"`
}

func (o *Order) UnmarshalJSON(b []byte) error {
	type alias Order
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*o = Order(a)
	o.Raw = append(json.RawMessage(nil), b...)
	return nil
}
