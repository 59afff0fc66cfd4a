package shopify

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable 网络错误或超时
	ErrUpstreamUnavailable = errors.New("shopify: upstream unavailable")
	// ErrUpstreamRejected 上游返回非 2xx
	ErrUpstreamRejected = errors.New("shopify: upstream rejected request")
	// ErrMalformedPayload 响应或推送内容无法解析
	ErrMalformedPayload = errors.New("shopify: malformed payload")
)

const maxErrorBody = 1024

// RejectedError 上游拒绝请求，携带响应体用于诊断
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("Shopify API 错误 [%d]: %s", e.StatusCode, e.Body)
}

// Is 使 errors.Is(err, ErrUpstreamRejected) 成立
func (e *RejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}

func newRejectedError(status int, body []byte) *RejectedError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &RejectedError{StatusCode: status, Body: string(body)}
}
