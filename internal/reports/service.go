package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/singleflight"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/orders"
)

// StatsPort runs the dashboard aggregates.
type StatsPort interface {
	OrdersSince(ctx context.Context, cutoff time.Time) (int64, decimal.Decimal, error)
	OutstandingReceivables(ctx context.Context) (decimal.Decimal, error)
	LowStockCount(ctx context.Context) (int64, error)
	DeliveriesInProgress(ctx context.Context) (int64, error)
}

// LotStatsPort counts lots by derived status.
type LotStatsPort interface {
	CountByStatus(ctx context.Context, now time.Time, window time.Duration) (nearExpiry, expired int64, err error)
}

// MovementsPort streams the journal for export.
type MovementsPort interface {
	ListForExport(ctx context.Context, from, to time.Time) ([]inventory.Movement, error)
}

// OrdersPort streams orders for export.
type OrdersPort interface {
	ListForExport(ctx context.Context, from, to time.Time) ([]orders.Order, error)
}

// Summary is the dashboard KPI payload.
type Summary struct {
	OrdersToday          int64  `json:"orders_today"`
	RevenueToday         string `json:"revenue_today"`
	OutstandingAmount    string `json:"outstanding_amount"`
	LowStockProducts     int64  `json:"low_stock_products"`
	DeliveriesInProgress int64  `json:"deliveries_in_progress"`
	NearExpiryLots       int64  `json:"near_expiry_lots"`
	ExpiredLots          int64  `json:"expired_lots"`
	GeneratedAt          string `json:"generated_at"`
}

// Service builds dashboard reports and XLSX exports. Summaries are cached in
// Redis and deduplicated with singleflight so a dashboard full of tiles does
// not fan out into identical aggregate queries.
type Service struct {
	stats     StatsPort
	lotStats  LotStatsPort
	movements MovementsPort
	orders    OrdersPort
	cache     *Cache
	window    time.Duration
	group     singleflight.Group
	now       func() time.Time
}

// NewService builds Service.
func NewService(stats StatsPort, lotStats LotStatsPort, movements MovementsPort, ordersRepo OrdersPort, cache *Cache, window time.Duration) *Service {
	return &Service{
		stats:     stats,
		lotStats:  lotStats,
		movements: movements,
		orders:    ordersRepo,
		cache:     cache,
		window:    window,
		now:       time.Now,
	}
}

// Summary returns the dashboard KPIs.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "summary")
	if err != nil {
		return Summary{}, err
	}
	result := s.group.DoChan(key, func() (interface{}, error) {
		var out Summary
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
			return s.buildSummary(ctx)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

func (s *Service) buildSummary(ctx context.Context) (Summary, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	ordersToday, revenue, err := s.stats.OrdersSince(ctx, midnight)
	if err != nil {
		return Summary{}, err
	}
	outstanding, err := s.stats.OutstandingReceivables(ctx)
	if err != nil {
		return Summary{}, err
	}
	lowStock, err := s.stats.LowStockCount(ctx)
	if err != nil {
		return Summary{}, err
	}
	inProgress, err := s.stats.DeliveriesInProgress(ctx)
	if err != nil {
		return Summary{}, err
	}
	nearExpiry, expired, err := s.lotStats.CountByStatus(ctx, now, s.window)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		OrdersToday:          ordersToday,
		RevenueToday:         revenue.StringFixed(2),
		OutstandingAmount:    outstanding.StringFixed(2),
		LowStockProducts:     lowStock,
		DeliveriesInProgress: inProgress,
		NearExpiryLots:       nearExpiry,
		ExpiredLots:          expired,
		GeneratedAt:          now.Format(time.RFC3339),
	}, nil
}

// Invalidate bumps the cache version. Called after bulk mutations like the
// nightly reclassification.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// ExportMovements renders the movement journal for a date range as XLSX.
func (s *Service) ExportMovements(ctx context.Context, from, to time.Time) ([]byte, error) {
	movements, err := s.movements.ListForExport(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{"date", "product", "type", "quantity", "stock_before", "stock_after", "reason", "reference", "note", "actor"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	row := 2
	for _, m := range movements {
		reason := ""
		if m.Reason != nil {
			reason = string(*m.Reason)
		}
		values := []interface{}{
			m.CreatedAt.Format("2006-01-02 15:04"),
			m.ProductName,
			string(m.Type),
			m.Quantity,
			m.StockBefore,
			m.StockAfter,
			reason,
			m.RefID,
			m.Note,
			m.ActorID,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportOrders renders the order book for a date range as XLSX.
func (s *Service) ExportOrders(ctx context.Context, from, to time.Time) ([]byte, error) {
	book, err := s.orders.ListForExport(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{"date", "number", "client", "delivery_status", "payment_status", "total", "paid", "remaining"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	row := 2
	for _, o := range book {
		values := []interface{}{
			o.CreatedAt.Format("2006-01-02 15:04"),
			o.Number,
			o.ClientName,
			string(o.DeliveryStatus),
			string(o.PaymentStatus),
			o.Total.StringFixed(2),
			o.Paid.StringFixed(2),
			o.Remaining.StringFixed(2),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
