package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopify_mirror/internal/middleware"
	"shopify_mirror/internal/service"
)

// DashboardController 租户看板
type DashboardController struct {
	dashboardSvc *service.DashboardService
}

// NewDashboardController 创建看板控制器
func NewDashboardController(dashboardSvc *service.DashboardService) *DashboardController {
	return &DashboardController{dashboardSvc: dashboardSvc}
}

// Summary 汇总
// @Summary 客户数、已支付订单数与营收
// @Tags Metrics
// @Security BearerAuth
// @Success 200 {object} service.Summary
// @Router /api/metrics/summary [get]
func (c *DashboardController) Summary(ctx *gin.Context) {
	summary, err := c.dashboardSvc.Summary(ctx.Request.Context(), middleware.GetTenantID(ctx))
	if err != nil {
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok", "data": summary})
}

// OrdersByDate 按天订单
// @Summary 按天统计已支付订单
// @Tags Metrics
// @Security BearerAuth
// @Param start query string false "开始日期 YYYY-MM-DD"
// @Param end query string false "结束日期 YYYY-MM-DD"
// @Success 200 {array} service.DailyOrders
// @Router /api/metrics/orders-by-date [get]
func (c *DashboardController) OrdersByDate(ctx *gin.Context) {
	start, end, err := c.dashboardSvc.DateRange(ctx.Query("start"), ctx.Query("end"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	series, err := c.dashboardSvc.OrdersByDate(ctx.Request.Context(), middleware.GetTenantID(ctx), start, end)
	if err != nil {
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok", "data": series})
}

// TopCustomers 消费排行
// @Summary 已支付金额前 N 名客户
// @Tags Metrics
// @Security BearerAuth
// @Param limit query int false "数量，默认 5"
// @Success 200 {array} service.TopCustomer
// @Router /api/metrics/top-customers [get]
func (c *DashboardController) TopCustomers(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "limit 必须是整数"})
			return
		}
		limit = n
	}

	rows, err := c.dashboardSvc.TopCustomers(ctx.Request.Context(), middleware.GetTenantID(ctx), limit)
	if err != nil {
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "ok", "data": rows})
}
