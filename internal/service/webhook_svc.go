package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopify_mirror/internal/metrics"
	"shopify_mirror/internal/repository"
	"shopify_mirror/pkg/shopify"
)

// ErrInvalidBody 签名通过但请求体不是 JSON
var ErrInvalidBody = errors.New("webhook: body is not json")

// WebhookState 事件处理状态
type WebhookState string

const (
	StateReceived      WebhookState = "received"
	StateVerified      WebhookState = "verified"
	StateDispatched    WebhookState = "dispatched"
	StateAppliedOk     WebhookState = "applied_ok"
	StateAppliedFailed WebhookState = "applied_failed"
	StateRejected      WebhookState = "rejected"
	StateIgnored       WebhookState = "ignored"
)

// WebhookEvent 一次推送
type WebhookEvent struct {
	ID         string
	Topic      string
	ShopDomain string
	Signature  string
	Body       []byte
}

// WebhookResult 处理结果
type WebhookResult struct {
	EventID  string       `json:"event_id"`
	TenantID int64        `json:"tenant_id"`
	Topic    string       `json:"topic"`
	State    WebhookState `json:"state"`
}

// WebhookOptions Webhook 行为配置
type WebhookOptions struct {
	Secret string
	// 订单事件先写入内嵌客户，保证订单能关联到客户
	UpsertEmbeddedCustomer bool
}

// ==================== WebhookService ====================

// WebhookService 校验并应用上游推送
// 上游至少投递一次，每一步写入都必须可重复执行
type WebhookService struct {
	tenantRepo repository.TenantRepository
	store      repository.ReconcileRepository
	opts       WebhookOptions
	metrics    *metrics.Registry
	now        func() time.Time
	log        *zap.Logger
}

// NewWebhookService 创建 Webhook 服务，reg 可为 nil
func NewWebhookService(
	tenantRepo repository.TenantRepository,
	store repository.ReconcileRepository,
	opts WebhookOptions,
	reg *metrics.Registry,
	log *zap.Logger,
) *WebhookService {
	return &WebhookService{
		tenantRepo: tenantRepo,
		store:      store,
		opts:       opts,
		metrics:    reg,
		now:        time.Now,
		log:        log.Named("webhook"),
	}
}

// Handle 处理一次推送
// 返回 ErrAuthentication / ErrInvalidBody / ErrUnknownTenant 或写入错误
func (s *WebhookService) Handle(ctx context.Context, ev *WebhookEvent) (*WebhookResult, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	prefix := shopify.TopicPrefix(ev.Topic)
	result := &WebhookResult{EventID: ev.ID, Topic: ev.Topic, State: StateReceived}
	log := s.log.With(
		zap.String("event_id", ev.ID),
		zap.String("topic", ev.Topic),
		zap.String("shop", ev.ShopDomain))
	log.Debug("收到推送", zap.Int("bytes", len(ev.Body)))

	if !shopify.VerifyPayload(s.opts.Secret, ev.Body, ev.Signature) {
		result.State = StateRejected
		log.Warn("签名校验失败")
		s.observe(prefix, "unauthorized")
		return result, ErrAuthentication
	}
	result.State = StateVerified

	if !json.Valid(ev.Body) {
		result.State = StateRejected
		log.Warn("请求体不是合法 JSON")
		s.observe(prefix, "bad_request")
		return result, ErrInvalidBody
	}

	tenant, err := s.tenantRepo.GetByDomain(ctx, ev.ShopDomain)
	if err != nil {
		result.State = StateRejected
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("未知店铺")
			s.observe(prefix, "unknown_tenant")
			return result, fmt.Errorf("%w: %s", ErrUnknownTenant, shopify.NormalizeDomain(ev.ShopDomain))
		}
		s.observe(prefix, "failed")
		return result, fmt.Errorf("查询租户失败: %w", err)
	}
	result.TenantID = tenant.ID
	result.State = StateDispatched
	log = log.With(zap.Int64("tenant_id", tenant.ID))

	switch prefix {
	case "customers":
		err = s.applyCustomer(ctx, tenant.ID, ev.Body)
	case "products":
		err = s.applyProduct(ctx, tenant.ID, ev.Body)
	case "orders":
		err = s.applyOrder(ctx, tenant.ID, ev.Body)
	default:
		result.State = StateIgnored
		log.Info("未处理的主题，忽略")
		s.observe(prefix, "ignored")
		return result, nil
	}

	if err != nil {
		result.State = StateAppliedFailed
		log.Error("应用推送失败", zap.Error(err))
		s.observe(prefix, "failed")
		return result, err
	}
	result.State = StateAppliedOk
	log.Info("推送已应用")
	s.observe(prefix, "applied")
	return result, nil
}

func (s *WebhookService) applyCustomer(ctx context.Context, tenantID int64, body []byte) error {
	var payload shopify.Customer
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %w", shopify.ErrMalformedPayload, err)
	}
	customer, err := NormalizeCustomer(tenantID, &payload)
	if err != nil {
		return err
	}
	return s.store.UpsertCustomer(ctx, customer)
}

func (s *WebhookService) applyProduct(ctx context.Context, tenantID int64, body []byte) error {
	var payload shopify.Product
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %w", shopify.ErrMalformedPayload, err)
	}
	product, err := NormalizeProduct(tenantID, &payload)
	if err != nil {
		return err
	}
	return s.store.UpsertProduct(ctx, product)
}

func (s *WebhookService) applyOrder(ctx context.Context, tenantID int64, body []byte) error {
	var payload shopify.Order
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %w", shopify.ErrMalformedPayload, err)
	}
	order, customerExternalID, err := NormalizeOrder(tenantID, &payload, SourceWebhook, s.now())
	if err != nil {
		return err
	}

	if s.opts.UpsertEmbeddedCustomer && customerExternalID != nil {
		embedded, err := NormalizeEmbeddedCustomer(tenantID, payload.Customer)
		if err != nil {
			return err
		}
		if err := s.store.UpsertEmbeddedCustomer(ctx, embedded); err != nil {
			return err
		}
	}
	return s.store.UpsertOrder(ctx, order, customerExternalID)
}

func (s *WebhookService) observe(prefix, outcome string) {
	if s.metrics == nil {
		return
	}
	switch prefix {
	case "customers", "products", "orders":
	default:
		prefix = "other"
	}
	s.metrics.WebhookEvents.WithLabelValues(prefix, outcome).Inc()
}
