package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopify_mirror/internal/service"
	"shopify_mirror/pkg/shopify"
)

// maxWebhookBody 单次推送请求体上限
const maxWebhookBody = 5 << 20

// WebhookController 上游推送入口
type WebhookController struct {
	webhookSvc *service.WebhookService
}

// NewWebhookController 创建推送控制器
func NewWebhookController(webhookSvc *service.WebhookService) *WebhookController {
	return &WebhookController{webhookSvc: webhookSvc}
}

// Receive 接收 Shopify 推送
// @Summary 接收 Shopify Webhook
// @Tags Webhook
// @Param X-Shopify-Hmac-Sha256 header string true "签名"
// @Param X-Shopify-Topic header string true "主题"
// @Param X-Shopify-Shop-Domain header string true "店铺域名"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "请求体错误"
// @Failure 401 {object} map[string]interface{} "签名错误"
// @Failure 404 {object} map[string]interface{} "未知店铺"
// @Router /webhooks/shopify [post]
func (c *WebhookController) Receive(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody)
	body, err := ctx.GetRawData()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "读取请求体失败"})
		return
	}

	ev := &service.WebhookEvent{
		ID:         ctx.GetHeader(shopify.HeaderWebhookID),
		Topic:      ctx.GetHeader(shopify.HeaderTopic),
		ShopDomain: ctx.GetHeader(shopify.HeaderShopDomain),
		Signature:  ctx.GetHeader(shopify.HeaderHmac),
		Body:       body,
	}

	result, err := c.webhookSvc.Handle(ctx.Request.Context(), ev)
	if err != nil {
		_ = ctx.Error(err)
		switch {
		case errors.Is(err, service.ErrAuthentication):
			ctx.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "签名校验失败"})
		case errors.Is(err, service.ErrInvalidBody):
			ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "请求体不是合法 JSON"})
		case errors.Is(err, service.ErrUnknownTenant):
			ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺未注册"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "处理推送失败"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "ok",
		"data":    result,
	})
}
