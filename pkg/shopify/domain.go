package shopify

import "strings"

// NormalizeDomain 去掉协议前缀和末尾斜杠
// "https://demo.myshopify.com/" 与 "demo.myshopify.com" 视为同一店铺
func NormalizeDomain(domain string) string {
	d := strings.TrimSpace(domain)
	lower := strings.ToLower(d)
	switch {
	case strings.HasPrefix(lower, "https://"):
		d = d[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		d = d[len("http://"):]
	}
	return strings.TrimSuffix(d, "/")
}

// DomainVariants 返回同一店铺可能被录入的几种写法，用于兼容历史数据查询
func DomainVariants(domain string) []string {
	d := NormalizeDomain(domain)
	return []string{
		d,
		d + "/",
		"https://" + d,
		"https://" + d + "/",
		"http://" + d,
		"http://" + d + "/",
	}
}
