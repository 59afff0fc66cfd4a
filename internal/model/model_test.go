package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCustomerDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		c      Customer
		expect string
	}{
		{"完整姓名", Customer{FirstName: strPtr("Ana"), LastName: strPtr("Diaz"), ExternalID: 1}, "Ana Diaz"},
		{"只有名", Customer{FirstName: strPtr("Ana"), ExternalID: 1}, "Ana"},
		{"只有姓", Customer{LastName: strPtr("Diaz"), ExternalID: 1}, "Diaz"},
		{"回退邮箱", Customer{FirstName: strPtr(""), Email: strPtr("a@b.com"), ExternalID: 1}, "a@b.com"},
		{"回退编号", Customer{Email: strPtr(""), ExternalID: 42}, "Customer 42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.c.DisplayName())
		})
	}
}

func TestAmounts(t *testing.T) {
	o := Order{TotalPriceCents: 4999}
	assert.InDelta(t, 49.99, o.GetTotalPrice(), 0.0001)

	p := Product{}
	assert.Nil(t, p.GetPrice())
	cents := int64(1250)
	p.PriceCents = &cents
	require.NotNil(t, p.GetPrice())
	assert.InDelta(t, 12.5, *p.GetPrice(), 0.0001)
}

func TestStringArray_ValueScan(t *testing.T) {
	v, err := StringArray{"summer", "sale"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"summer","sale"}`, v)

	var tags StringArray
	require.NoError(t, tags.Scan([]byte(`{summer,sale}`)))
	assert.Equal(t, StringArray{"summer", "sale"}, tags)
}
