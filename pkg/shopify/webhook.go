package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Webhook 请求头
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
)

// SignPayload base64(HMAC-SHA256(secret, body))
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyPayload 常量时间比较签名，secret 或签名为空时一律失败
func VerifyPayload(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	expected := SignPayload(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// TopicPrefix "orders/paid" -> "orders"
func TopicPrefix(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if i := strings.Index(topic, "/"); i >= 0 {
		return topic[:i]
	}
	return topic
}
