package service

import "errors"

var (
	// ErrAuthentication Webhook 签名校验失败
	ErrAuthentication = errors.New("webhook: authentication failed")
	// ErrUnknownTenant Webhook 来自未注册的店铺
	ErrUnknownTenant = errors.New("webhook: unknown tenant")
	// ErrRetriesExhausted 重试次数用尽
	ErrRetriesExhausted = errors.New("sync: retries exhausted")
	// ErrTenantNotFound 手动同步指定的租户不存在
	ErrTenantNotFound = errors.New("tenant not found")
)
