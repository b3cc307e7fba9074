package payments

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/shared"
)

type fakeLedger struct {
	mu       sync.Mutex
	orders   map[int64]*OrderBalance
	status   map[int64]orders.PaymentStatus
	payments []Payment
	nextID   int64
}

func newFakeLedger(balances ...OrderBalance) *fakeLedger {
	l := &fakeLedger{orders: map[int64]*OrderBalance{}, status: map[int64]orders.PaymentStatus{}, nextID: 1}
	for i := range balances {
		b := balances[i]
		l.orders[b.ID] = &b
		l.status[b.ID] = orders.DerivePaymentStatus(b.Remaining, b.Total)
	}
	return l
}

type fakeLedgerTx struct {
	ledger *fakeLedger
}

func (l *fakeLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balanceSnap := map[int64]OrderBalance{}
	for id, b := range l.orders {
		balanceSnap[id] = *b
	}
	statusSnap := map[int64]orders.PaymentStatus{}
	for id, st := range l.status {
		statusSnap[id] = st
	}
	paymentsLen := len(l.payments)
	if err := fn(ctx, &fakeLedgerTx{ledger: l}); err != nil {
		l.orders = map[int64]*OrderBalance{}
		for id, b := range balanceSnap {
			cb := b
			l.orders[id] = &cb
		}
		l.status = statusSnap
		l.payments = l.payments[:paymentsLen]
		return err
	}
	return nil
}

func (l *fakeLedger) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Payment
	for _, p := range l.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get satisfies OrdersPort by projecting the fake balance into an order.
func (l *fakeLedger) Get(ctx context.Context, id int64) (orders.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.orders[id]
	if !ok {
		return orders.Order{}, shared.ErrNotFound
	}
	return orders.Order{
		ID:            b.ID,
		Number:        b.Number,
		Total:         b.Total,
		Paid:          b.Paid,
		Remaining:     b.Remaining,
		PaymentStatus: l.status[id],
	}, nil
}

func (t *fakeLedgerTx) GetOrderForUpdate(ctx context.Context, orderID int64) (OrderBalance, error) {
	b, ok := t.ledger.orders[orderID]
	if !ok {
		return OrderBalance{}, shared.ErrNotFound
	}
	return *b, nil
}

func (t *fakeLedgerTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	p.ID = t.ledger.nextID
	t.ledger.nextID++
	t.ledger.payments = append(t.ledger.payments, p)
	return p.ID, nil
}

func (t *fakeLedgerTx) UpdateOrderBalance(ctx context.Context, orderID int64, paid, remaining decimal.Decimal, status orders.PaymentStatus) error {
	b := t.ledger.orders[orderID]
	b.Paid = paid
	b.Remaining = remaining
	t.ledger.status[orderID] = status
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newBalance(id int64, total string) OrderBalance {
	t := dec(total)
	return OrderBalance{ID: id, Number: "CMD-test", Total: t, Paid: decimal.Zero, Remaining: t}
}

func TestRecordPartialThenFullPayment(t *testing.T) {
	ledger := newFakeLedger(newBalance(1, "100.00"))
	svc := NewService(ledger, ledger, nil, nil)

	o, err := svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("40.00"), Mode: ModeCash})
	require.NoError(t, err)
	require.True(t, o.Paid.Equal(dec("40.00")))
	require.True(t, o.Remaining.Equal(dec("60.00")))
	require.Equal(t, orders.PaymentPartial, o.PaymentStatus)

	o, err = svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("60.00"), Mode: ModeMobileMoney})
	require.NoError(t, err)
	require.True(t, o.Remaining.IsZero())
	require.Equal(t, orders.PaymentPaid, o.PaymentStatus)

	// paid + remaining == total held throughout.
	require.True(t, o.Paid.Add(o.Remaining).Equal(o.Total))
}

func TestRecordRejectsOverpayment(t *testing.T) {
	ledger := newFakeLedger(newBalance(1, "50.00"))
	svc := NewService(ledger, ledger, nil, nil)

	_, err := svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("30.00"), Mode: ModeCash})
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("25.00"), Mode: ModeCash})
	var over *shared.OverpaymentError
	require.ErrorAs(t, err, &over)
	require.True(t, over.Remaining.Equal(dec("20.00")))

	// Rejected payment changes nothing.
	o, err := ledger.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, o.Paid.Equal(dec("30.00")))
	require.Equal(t, orders.PaymentPartial, o.PaymentStatus)
	ps, err := svc.ListByOrder(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ps, 1)
}

func TestRecordRejectsNonPositiveAmountAndBadMode(t *testing.T) {
	ledger := newFakeLedger(newBalance(1, "50.00"))
	svc := NewService(ledger, ledger, nil, nil)

	var ve *shared.ValidationError
	_, err := svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("0"), Mode: ModeCash})
	require.ErrorAs(t, err, &ve)

	_, err = svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("-5"), Mode: ModeCash})
	require.ErrorAs(t, err, &ve)

	_, err = svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("5"), Mode: Mode("IOU")})
	require.ErrorAs(t, err, &ve)
}

func TestExactRemainingPaymentSettles(t *testing.T) {
	ledger := newFakeLedger(newBalance(1, "75.50"))
	svc := NewService(ledger, ledger, nil, nil)

	o, err := svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("75.50"), Mode: ModeBank})
	require.NoError(t, err)
	require.Equal(t, orders.PaymentPaid, o.PaymentStatus)
	require.True(t, o.Remaining.IsZero())
}

func TestConcurrentPaymentsCannotOverpay(t *testing.T) {
	ledger := newFakeLedger(newBalance(1, "100.00"))
	svc := NewService(ledger, ledger, nil, nil)

	// Two payments of 60 against a 100 order: exactly one must fail.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Record(context.Background(), RecordInput{OrderID: 1, Amount: dec("60.00"), Mode: ModeCash})
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			var over *shared.OverpaymentError
			require.ErrorAs(t, err, &over)
			failures++
		}
	}
	require.Equal(t, 1, failures)

	o, err := ledger.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, o.Paid.Equal(dec("60.00")))
	require.True(t, o.Paid.Add(o.Remaining).Equal(o.Total))
}
