package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/orders"
)

type fakeStats struct {
	calls int
}

func (f *fakeStats) OrdersSince(ctx context.Context, cutoff time.Time) (int64, decimal.Decimal, error) {
	f.calls++
	return 4, decimal.RequireFromString("350.00"), nil
}

func (f *fakeStats) OutstandingReceivables(ctx context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("120.50"), nil
}

func (f *fakeStats) LowStockCount(ctx context.Context) (int64, error) { return 3, nil }

func (f *fakeStats) DeliveriesInProgress(ctx context.Context) (int64, error) { return 2, nil }

type fakeLotStats struct{}

func (fakeLotStats) CountByStatus(ctx context.Context, now time.Time, window time.Duration) (int64, int64, error) {
	return 5, 1, nil
}

type fakeExports struct {
	movements []inventory.Movement
}

func (f *fakeExports) ListForExport(ctx context.Context, from, to time.Time) ([]inventory.Movement, error) {
	return f.movements, nil
}

type fakeOrderExports struct {
	orders []orders.Order
}

func (f *fakeOrderExports) ListForExport(ctx context.Context, from, to time.Time) ([]orders.Order, error) {
	return f.orders, nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute), mr
}

func TestSummaryIsCached(t *testing.T) {
	cache, _ := newTestCache(t)
	stats := &fakeStats{}
	svc := NewService(stats, fakeLotStats{}, nil, nil, cache, 7*24*time.Hour)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 4, first.OrdersToday)
	require.Equal(t, "350.00", first.RevenueToday)
	require.Equal(t, "120.50", first.OutstandingAmount)
	require.EqualValues(t, 5, first.NearExpiryLots)
	require.EqualValues(t, 1, first.ExpiredLots)

	second, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, stats.calls, "second summary must come from cache")
}

func TestInvalidateBumpsVersion(t *testing.T) {
	cache, _ := newTestCache(t)
	stats := &fakeStats{}
	svc := NewService(stats, fakeLotStats{}, nil, nil, cache, 7*24*time.Hour)

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.calls, "bumped version must miss the old key")
}

func TestSummaryWithoutCache(t *testing.T) {
	stats := &fakeStats{}
	svc := NewService(stats, fakeLotStats{}, nil, nil, nil, 7*24*time.Hour)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, s.LowStockProducts)
}

func TestExportMovementsProducesWorkbook(t *testing.T) {
	reason := inventory.LossBreakage
	exports := &fakeExports{movements: []inventory.Movement{
		{ProductName: "Wine glasses", Type: inventory.MovementLoss, Quantity: 2, StockBefore: 12, StockAfter: 10,
			Reason: &reason, RefID: "manual", CreatedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
		{ProductName: "Towels", Type: inventory.MovementIn, Quantity: 40, StockBefore: 5, StockAfter: 45,
			RefID: "REC-x", CreatedAt: time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)},
	}}
	svc := NewService(&fakeStats{}, fakeLotStats{}, exports, nil, nil, 7*24*time.Hour)

	data, err := svc.ExportMovements(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "product", rows[0][1])
	require.Equal(t, "Wine glasses", rows[1][1])
	require.Equal(t, "LOSS", rows[1][2])
	require.Equal(t, "BREAKAGE", rows[1][6])
}

func TestExportOrdersProducesWorkbook(t *testing.T) {
	exports := &fakeOrderExports{orders: []orders.Order{
		{Number: "CMD-a", ClientName: "Hotel Riviera", DeliveryStatus: orders.DeliveryDelivered,
			PaymentStatus: orders.PaymentPartial,
			Total:         decimal.RequireFromString("200.00"),
			Paid:          decimal.RequireFromString("50.00"),
			Remaining:     decimal.RequireFromString("150.00"),
			CreatedAt:     time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
	}}
	svc := NewService(&fakeStats{}, fakeLotStats{}, nil, exports, nil, 7*24*time.Hour)

	data, err := svc.ExportOrders(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "CMD-a", rows[1][1])
	require.Equal(t, "150.00", rows[1][7])
}
