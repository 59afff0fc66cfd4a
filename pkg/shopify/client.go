package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIVersion = "2024-04"
	DefaultPageSize   = 250

	// HeaderAccessToken 上游凭证请求头
	HeaderAccessToken = "X-Shopify-Access-Token"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	APIVersion string
	Scheme     string // 默认 https，测试时可用 http
	Timeout    time.Duration
	RateLimit  float64 // 每秒请求数，<=0 表示不限速
	RateBurst  int
	PageSize   int
	MaxPages   int // 0 表示翻到最后一页
	// Limiters 非空时同一店铺的所有客户端共用一个限流器
	Limiters *LimiterPool
}

// LimiterPool 按规范化域名缓存限流器，跨多轮同步保持同一配额
type LimiterPool struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewLimiterPool 创建限流器池，参数含义同 ClientConfig
func NewLimiterPool(ratePerSecond float64, burst int) *LimiterPool {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimiterPool{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

// Get 返回店铺的限流器，不存在则创建
func (p *LimiterPool) Get(domain string) *rate.Limiter {
	domain = NormalizeDomain(domain)
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[domain]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[domain] = l
	}
	return l
}

// Client 单个店铺的 Admin REST 客户端
// 只负责 I/O，不做任何重试
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	domain   string
	pageSize int
	maxPages int
}

// NewClient 创建客户端，domain 会先规范化
func NewClient(cfg ClientConfig, domain, accessToken string) *Client {
	domain = NormalizeDomain(domain)

	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	var limiter *rate.Limiter
	if cfg.Limiters != nil {
		limiter = cfg.Limiters.Get(domain)
	} else {
		limiter = NewLimiterPool(cfg.RateLimit, cfg.RateBurst).Get(domain)
	}

	httpClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s://%s/admin/api/%s", scheme, domain, version)).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader(HeaderAccessToken, accessToken).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "shopify-mirror/1.0")

	return &Client{
		http:     httpClient,
		limiter:  limiter,
		domain:   domain,
		pageSize: pageSize,
		maxPages: cfg.MaxPages,
	}
}

// Domain 返回规范化后的店铺域名
func (c *Client) Domain() string {
	return c.domain
}

// ListCustomers 拉取全部客户
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	return listAll[Customer](ctx, c, "/customers.json", "customers", nil)
}

// ListProducts 拉取全部商品
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	return listAll[Product](ctx, c, "/products.json", "products", nil)
}

// ListOrders 拉取订单，status 为空时使用 "any"
func (c *Client) ListOrders(ctx context.Context, status string) ([]Order, error) {
	if status == "" {
		status = "any"
	}
	return listAll[Order](ctx, c, "/orders.json", "orders", map[string]string{"status": status})
}

// listAll 按 Link 头的 rel="next" 游标翻页直到结束
func listAll[T any](ctx context.Context, c *Client, path, key string, query map[string]string) ([]T, error) {
	params := map[string]string{"limit": strconv.Itoa(c.pageSize)}
	for k, v := range query {
		params[k] = v
	}

	var items []T
	target := path
	for page := 1; target != ""; page++ {
		if c.maxPages > 0 && page > c.maxPages {
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: 等待限流失败: %w", ErrUpstreamUnavailable, err)
		}

		req := c.http.R().SetContext(ctx)
		// 后续页只能携带 page_info 与 limit，直接使用 Link 中的完整地址
		if page == 1 {
			req.SetQueryParams(params)
		}
		resp, err := req.Get(target)
		if err != nil {
			return nil, fmt.Errorf("%w: GET %s: %w", ErrUpstreamUnavailable, path, err)
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, newRejectedError(resp.StatusCode(), resp.Body())
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return nil, fmt.Errorf("%w: 解析 %s 响应失败: %w", ErrMalformedPayload, path, err)
		}
		raw, ok := envelope[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s 响应缺少 %q 字段", ErrMalformedPayload, path, key)
		}
		var batch []T
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("%w: 解析 %s 失败: %w", ErrMalformedPayload, key, err)
		}
		items = append(items, batch...)

		target = nextPageURL(resp.Header().Get("Link"))
		if target != "" && !c.sameShop(target) {
			return nil, fmt.Errorf("%w: %s 下一页指向其他主机: %s", ErrMalformedPayload, path, target)
		}
	}
	return items, nil
}

// sameShop 下一页地址必须仍指向当前店铺，凭证头不能发往其他主机
func (c *Client) sameShop(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, c.domain)
}

// nextPageURL 解析 Link: <https://...&page_info=xx>; rel="next", <...>; rel="previous"
func nextPageURL(link string) string {
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		rawURL := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(rawURL, "<") || !strings.HasSuffix(rawURL, ">") {
			continue
		}
		for _, attr := range segments[1:] {
			attr = strings.ReplaceAll(strings.TrimSpace(attr), " ", "")
			if attr == `rel="next"` || attr == "rel=next" {
				return rawURL[1 : len(rawURL)-1]
			}
		}
	}
	return ""
}
