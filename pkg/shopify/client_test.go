package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		Scheme:  "http",
		Timeout: 2 * time.Second,
	}, srv.URL+"/", "shpat_test")
	return client, srv
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"纯域名", "demo.myshopify.com", "demo.myshopify.com"},
		{"https 前缀", "https://demo.myshopify.com", "demo.myshopify.com"},
		{"http 前缀加斜杠", "http://demo.myshopify.com/", "demo.myshopify.com"},
		{"大写协议", "HTTPS://demo.myshopify.com/", "demo.myshopify.com"},
		{"首尾空白", "  demo.myshopify.com/ ", "demo.myshopify.com"},
		{"空字符串", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, NormalizeDomain(tt.input))
		})
	}
}

func TestDomainVariants(t *testing.T) {
	variants := DomainVariants("https://demo.myshopify.com/")
	assert.Contains(t, variants, "demo.myshopify.com")
	assert.Contains(t, variants, "http://demo.myshopify.com/")
	for _, v := range variants {
		assert.Equal(t, "demo.myshopify.com", NormalizeDomain(v))
	}
}

func TestClient_ListCustomers_RequestShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-04/customers.json", r.URL.Path)
		assert.Equal(t, "250", r.URL.Query().Get("limit"))
		assert.Equal(t, "shpat_test", r.Header.Get(HeaderAccessToken))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"customers":[{"id":5,"email":"a@b.com","total_spent":"10.50","orders_count":2}]}`)
	})

	customers, err := client.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, int64(5), customers[0].ID)
	assert.Equal(t, Decimal("10.50"), customers[0].TotalSpent)
	assert.JSONEq(t, `{"id":5,"email":"a@b.com","total_spent":"10.50","orders_count":2}`, string(customers[0].Raw))
}

func TestClient_ListOrders_Pagination(t *testing.T) {
	var srvURL string
	calls := 0
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page_info") {
		case "":
			assert.Equal(t, "any", r.URL.Query().Get("status"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-04/orders.json?limit=250&page_info=p2>; rel="next"`, srvURL))
			fmt.Fprint(w, `{"orders":[{"id":1,"total_price":"1.00"}]}`)
		case "p2":
			assert.Empty(t, r.URL.Query().Get("status"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-04/orders.json?limit=250&page_info=p1>; rel="previous"`, srvURL))
			fmt.Fprint(w, `{"orders":[{"id":2,"total_price":3.5}]}`)
		default:
			t.Errorf("unexpected page_info %q", r.URL.Query().Get("page_info"))
		}
	})
	srvURL = srv.URL

	orders, err := client.ListOrders(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), *orders[1].ID)
	assert.Equal(t, Decimal("3.5"), orders[1].TotalPrice)
}

func TestClient_MaxPages(t *testing.T) {
	var srvURL string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-04/products.json?page_info=next>; rel="next"`, srvURL))
		fmt.Fprint(w, `{"products":[{"id":1,"title":"x"}]}`)
	}))
	defer srv.Close()
	srvURL = srv.URL

	client := NewClient(ClientConfig{Scheme: "http", MaxPages: 3}, srv.URL, "tok")
	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.Equal(t, 3, calls)
}

func TestClient_ForeignNextPage(t *testing.T) {
	foreignHits := 0
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignHits++
		assert.Empty(t, r.Header.Get(HeaderAccessToken))
		fmt.Fprint(w, `{"orders":[]}`)
	}))
	defer foreign.Close()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-04/orders.json?page_info=p2>; rel="next"`, foreign.URL))
		fmt.Fprint(w, `{"orders":[{"id":1}]}`)
	})

	_, err := client.ListOrders(context.Background(), "any")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.Equal(t, 0, foreignHits)
}

func TestLimiterPool_SharedPerDomain(t *testing.T) {
	pool := NewLimiterPool(2, 4)
	a := pool.Get("https://demo.myshopify.com/")
	b := pool.Get("demo.myshopify.com")
	c := pool.Get("other.myshopify.com")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 4, a.Burst())

	cfg := ClientConfig{Limiters: pool}
	first := NewClient(cfg, "demo.myshopify.com", "t1")
	second := NewClient(cfg, "https://demo.myshopify.com", "t2")
	assert.Same(t, first.limiter, second.limiter)
}

func TestClient_Rejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":"[API] Invalid API key or access token"}`)
	})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamRejected))
	assert.False(t, errors.Is(err, ErrUpstreamUnavailable))

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	assert.Contains(t, rejected.Body, "Invalid API key")
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{Scheme: "http", Timeout: time.Second}, addr, "tok")
	_, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
}

func TestClient_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	})

	_, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestNextPageURL(t *testing.T) {
	link := `<https://s.myshopify.com/admin/api/2024-04/orders.json?page_info=a>; rel="previous", <https://s.myshopify.com/admin/api/2024-04/orders.json?page_info=b>; rel="next"`
	assert.Equal(t, "https://s.myshopify.com/admin/api/2024-04/orders.json?page_info=b", nextPageURL(link))
	assert.Equal(t, "", nextPageURL(`<https://x/a>; rel="previous"`))
	assert.Equal(t, "", nextPageURL(""))
}

func TestDecimal_UnmarshalJSON(t *testing.T) {
	var o Order
	require.NoError(t, o.UnmarshalJSON([]byte(`{"id":900,"order_number":1001,"total_price":"49.99"}`)))
	assert.Equal(t, Decimal("1001"), o.OrderNumber)
	assert.Equal(t, Decimal("49.99"), o.TotalPrice)

	require.NoError(t, o.UnmarshalJSON([]byte(`{"id":901,"total_price":null}`)))
	assert.Equal(t, Decimal(""), o.TotalPrice)
}

func TestCustomer_PrimaryAddress(t *testing.T) {
	first := "Ana"
	c := Customer{Addresses: []Address{{}, {FirstName: &first, Default: true}}}
	require.NotNil(t, c.PrimaryAddress())
	assert.Equal(t, "Ana", *c.PrimaryAddress().FirstName)

	c = Customer{}
	assert.Nil(t, c.PrimaryAddress())
}
