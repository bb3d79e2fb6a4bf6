package services

import (
	"context"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RevenueRow is the part of an order line the dashboard aggregates.
type RevenueRow struct {
	Nominal   int64
	CreatedAt time.Time
}

type RevenueSummary struct {
	ThisMonth          int64  `json:"this_month"`
	LastMonth          int64  `json:"last_month"`
	GrowthRate         string `json:"growth_rate"`
	AveragePerDay      string `json:"average_per_day"`
	ThisMonthFormatted string `json:"this_month_formatted"`
	LastMonthFormatted string `json:"last_month_formatted"`
}

var hundred = decimal.NewFromInt(100)

// SummarizeRevenue compares this month's line items with last month's.
// Growth is 100.00 when last month had nothing and this month has revenue,
// and 0.00 when both are empty. The daily average divides by the number of
// distinct calendar days that actually have rows.
func SummarizeRevenue(thisMonth, lastMonth []RevenueRow) RevenueSummary {
	var this, last int64
	days := make(map[string]struct{})
	for _, row := range thisMonth {
		this += row.Nominal
		days[row.CreatedAt.Format("2006-01-02")] = struct{}{}
	}
	for _, row := range lastMonth {
		last += row.Nominal
	}

	growth := decimal.Zero
	switch {
	case last > 0:
		growth = decimal.NewFromInt(this - last).Div(decimal.NewFromInt(last)).Mul(hundred)
	case this > 0:
		growth = hundred
	}

	avg := decimal.Zero
	if len(days) > 0 {
		avg = decimal.NewFromInt(this).Div(decimal.NewFromInt(int64(len(days))))
	}

	return RevenueSummary{
		ThisMonth:          this,
		LastMonth:          last,
		GrowthRate:         growth.StringFixed(2),
		AveragePerDay:      avg.StringFixed(2),
		ThisMonthFormatted: utils.FormatCurrencyIDR(this),
		LastMonthFormatted: utils.FormatCurrencyIDR(last),
	}
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type Dashboard struct {
	Revenue          RevenueSummary   `json:"revenue"`
	SettledThisMonth int64            `json:"settled_this_month"`
	OrdersPerDay     []DailyCount     `json:"orders_per_day"`
	ActiveOrders     []models.Order   `json:"active_orders"`
	TableStatus      map[string]int64 `json:"table_status"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

type DashboardService struct {
	db     *gorm.DB
	tables *TableRegistry
	orders *OrderQueryService
	now    func() time.Time
}

func NewDashboardService(db *gorm.DB, tables *TableRegistry, orders *OrderQueryService) *DashboardService {
	return &DashboardService{db: db, tables: tables, orders: orders, now: time.Now}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// revenueRows loads line items created in [from, to), skipping canceled orders.
func (s *DashboardService) revenueRows(ctx context.Context, from, to time.Time) ([]RevenueRow, error) {
	var rows []RevenueRow
	err := s.db.WithContext(ctx).
		Table("orders_menus").
		Select("orders_menus.nominal, orders_menus.created_at").
		Joins("JOIN orders ON orders.id = orders_menus.order_id").
		Where("orders_menus.created_at >= ? AND orders_menus.created_at < ?", from, to).
		Where("orders.status <> ?", models.OrderStatusCanceled).
		Scan(&rows).Error
	if err != nil {
		return nil, classifyDBError(err)
	}
	for i := range rows {
		rows[i].CreatedAt = rows[i].CreatedAt.In(from.Location())
	}
	return rows, nil
}

func (s *DashboardService) Revenue(ctx context.Context) (RevenueSummary, error) {
	now := s.now()
	thisStart := monthStart(now)
	lastStart := thisStart.AddDate(0, -1, 0)

	thisMonth, err := s.revenueRows(ctx, thisStart, thisStart.AddDate(0, 1, 0))
	if err != nil {
		return RevenueSummary{}, err
	}
	lastMonth, err := s.revenueRows(ctx, lastStart, thisStart)
	if err != nil {
		return RevenueSummary{}, err
	}
	return SummarizeRevenue(thisMonth, lastMonth), nil
}

func (s *DashboardService) SettledThisMonth(ctx context.Context) (int64, error) {
	start := monthStart(s.now())
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", models.OrderStatusSettled, start, start.AddDate(0, 1, 0)).
		Count(&n).Error
	return n, classifyDBError(err)
}

// OrdersPerDay counts settled orders for each of the last seven days,
// oldest first, including days without orders.
func (s *DashboardService) OrdersPerDay(ctx context.Context) ([]DailyCount, error) {
	today := dayStart(s.now())
	from := today.AddDate(0, 0, -6)

	var created []time.Time
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", models.OrderStatusSettled, from, today.AddDate(0, 0, 1)).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, classifyDBError(err)
	}

	counts := make(map[string]int64, len(created))
	for _, at := range created {
		counts[at.In(today.Location()).Format("2006-01-02")]++
	}

	out := make([]DailyCount, 0, 7)
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DailyCount{Date: key, Count: counts[key]})
	}
	return out, nil
}

func (s *DashboardService) Build(ctx context.Context) (*Dashboard, error) {
	revenue, err := s.Revenue(ctx)
	if err != nil {
		return nil, err
	}
	settled, err := s.SettledThisMonth(ctx)
	if err != nil {
		return nil, err
	}
	perDay, err := s.OrdersPerDay(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.orders.ActiveOrders(ctx, models.OrderStatusProcess, 5)
	if err != nil {
		return nil, err
	}
	tableStatus, err := s.tables.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Revenue:          revenue,
		SettledThisMonth: settled,
		OrdersPerDay:     perDay,
		ActiveOrders:     active,
		TableStatus:      tableStatus,
		GeneratedAt:      s.now(),
	}, nil
}
