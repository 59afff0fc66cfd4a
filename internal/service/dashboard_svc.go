package service

import (
	"context"
	"fmt"
	"time"

	"shopify_mirror/internal/model"
	"shopify_mirror/internal/repository"
)

const dateLayout = "2006-01-02"

// Summary 看板汇总
type Summary struct {
	TotalCustomers int64   `json:"totalCustomers"`
	TotalOrders    int64   `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

// DailyOrders 单日订单统计
type DailyOrders struct {
	Date    string  `json:"date"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// TopCustomer 消费排行
type TopCustomer struct {
	CustomerID int64   `json:"customerId"`
	Name       string  `json:"name"`
	Orders     int64   `json:"orders"`
	Revenue    float64 `json:"revenue"`
}

// DashboardService 租户看板，只统计已支付订单
type DashboardService struct {
	repo repository.AnalyticsRepository
	now  func() time.Time
}

// NewDashboardService 创建看板服务
func NewDashboardService(repo repository.AnalyticsRepository) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// Summary 客户数、已支付订单数与营收
func (s *DashboardService) Summary(ctx context.Context, tenantID int64) (*Summary, error) {
	customers, err := s.repo.CountCustomers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("统计客户失败: %w", err)
	}
	stats, err := s.repo.PaidOrderStats(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("统计订单失败: %w", err)
	}
	return &Summary{
		TotalCustomers: customers,
		TotalOrders:    stats.Orders,
		TotalRevenue:   model.CentsToAmount(stats.RevenueCents),
	}, nil
}

// DateRange 解析 YYYY-MM-DD 区间，缺省为截止今天的最近 30 天
func (s *DashboardService) DateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	today := truncateDay(s.now().UTC())
	end, start := today, today.AddDate(0, 0, -29)

	if endRaw != "" {
		t, err := time.Parse(dateLayout, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("结束日期格式错误: %s", endRaw)
		}
		end = t
		if startRaw == "" {
			start = end.AddDate(0, 0, -29)
		}
	}
	if startRaw != "" {
		t, err := time.Parse(dateLayout, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("开始日期格式错误: %s", startRaw)
		}
		start = t
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("开始日期晚于结束日期")
	}
	if end.Sub(start) > 366*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("日期区间不能超过一年")
	}
	return start, end, nil
}

// OrdersByDate 按天统计，区间内每一天都有一条记录，无订单时为 0
// start 与 end 均按 UTC 日期计算且包含在内
func (s *DashboardService) OrdersByDate(ctx context.Context, tenantID int64, start, end time.Time) ([]DailyOrders, error) {
	start, end = truncateDay(start.UTC()), truncateDay(end.UTC())
	points, err := s.repo.PaidOrdersBetween(ctx, tenantID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}

	type bucket struct {
		orders int64
		cents  int64
	}
	buckets := make(map[string]*bucket)
	for _, p := range points {
		key := p.CreatedAt.UTC().Format(dateLayout)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.orders++
		b.cents += p.TotalPriceCents
	}

	var series []DailyOrders
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		row := DailyOrders{Date: key}
		if b, ok := buckets[key]; ok {
			row.Orders = b.orders
			row.Revenue = model.CentsToAmount(b.cents)
		}
		series = append(series, row)
	}
	return series, nil
}

// TopCustomers 按已支付金额排序的前 N 名客户
func (s *DashboardService) TopCustomers(ctx context.Context, tenantID int64, limit int) ([]TopCustomer, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	rows, err := s.repo.TopCustomers(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询客户排行失败: %w", err)
	}
	out := make([]TopCustomer, 0, len(rows))
	for i := range rows {
		out = append(out, TopCustomer{
			CustomerID: rows[i].CustomerID,
			Name:       rows[i].DisplayName(),
			Orders:     rows[i].Orders,
			Revenue:    model.CentsToAmount(rows[i].RevenueCents),
		})
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
