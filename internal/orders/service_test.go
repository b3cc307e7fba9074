package orders

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/shared"
)

type fakeStore struct {
	mu        sync.Mutex
	products  map[int64]*ProductRow
	orders    map[int64]*Order
	items     []Item
	movements []inventory.Movement
	nextID    int64
}

func newFakeStore(products ...ProductRow) *fakeStore {
	s := &fakeStore{products: map[int64]*ProductRow{}, orders: map[int64]*Order{}, nextID: 1}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

type fakeTx struct {
	store *fakeStore
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	productSnap := map[int64]ProductRow{}
	for id, p := range s.products {
		productSnap[id] = *p
	}
	orderSnap := map[int64]Order{}
	for id, o := range s.orders {
		orderSnap[id] = *o
	}
	itemsLen, movesLen := len(s.items), len(s.movements)
	if err := fn(ctx, &fakeTx{store: s}); err != nil {
		s.products = map[int64]*ProductRow{}
		for id, p := range productSnap {
			cp := p
			s.products[id] = &cp
		}
		s.orders = map[int64]*Order{}
		for id, o := range orderSnap {
			co := o
			s.orders[id] = &co
		}
		s.items = s.items[:itemsLen]
		s.movements = s.movements[:movesLen]
		return err
	}
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	out := *o
	for _, it := range s.items {
		if it.OrderID == id {
			out.Items = append(out.Items, it)
		}
	}
	return out, nil
}

func (s *fakeStore) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (t *fakeTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductRow, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return ProductRow{}, shared.ErrNotFound
	}
	return *p, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	o.ID = t.store.nextID
	t.store.nextID++
	t.store.orders[o.ID] = &o
	return o.ID, nil
}

func (t *fakeTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	item.ID = t.store.nextID
	t.store.nextID++
	t.store.items = append(t.store.items, item)
	return item.ID, nil
}

func (t *fakeTx) InsertMovement(ctx context.Context, m inventory.Movement) (int64, error) {
	m.ID = t.store.nextID
	t.store.nextID++
	t.store.movements = append(t.store.movements, m)
	return m.ID, nil
}

func (t *fakeTx) UpdateProductStock(ctx context.Context, productID int64, stock float64) error {
	t.store.products[productID].Stock = stock
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateOrderDecrementsStockAndRecordsMovements(t *testing.T) {
	store := newFakeStore(
		ProductRow{ID: 1, Name: "Bath towels", Stock: 20},
		ProductRow{ID: 2, Name: "Shampoo 50ml", Stock: 100},
	)
	svc := NewService(store, nil, nil)

	o, err := svc.Create(context.Background(), CreateOrderInput{
		ClientID: 7,
		Lines: []LineInput{
			{ProductID: 1, Quantity: 5, UnitPrice: dec("12.50")},
			{ProductID: 2, Quantity: 10, UnitPrice: dec("3.00")},
		},
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(o.Number, "CMD-"))
	require.True(t, o.Total.Equal(dec("92.50")), "total %s", o.Total)
	require.True(t, o.Paid.IsZero())
	require.True(t, o.Remaining.Equal(o.Total))
	require.Equal(t, PaymentUnpaid, o.PaymentStatus)
	require.Equal(t, DeliveryPending, o.DeliveryStatus)
	require.Len(t, o.Items, 2)

	require.Equal(t, 15.0, store.products[1].Stock)
	require.Equal(t, 90.0, store.products[2].Stock)

	require.Len(t, store.movements, 2)
	for _, m := range store.movements {
		require.Equal(t, inventory.MovementOut, m.Type)
		require.Equal(t, "order", m.RefKind)
		require.Equal(t, o.Number, m.RefID)
		require.Equal(t, m.StockBefore-m.Quantity, m.StockAfter)
	}
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)

	_, err := svc.Create(context.Background(), CreateOrderInput{ClientID: 1})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "lines", ve.Field)
}

func TestCreateOrderRejectsBadLines(t *testing.T) {
	store := newFakeStore(ProductRow{ID: 1, Name: "Towels", Stock: 10})
	svc := NewService(store, nil, nil)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		ClientID: 1,
		Lines:    []LineInput{{ProductID: 1, Quantity: 0, UnitPrice: dec("1")}},
	})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		ClientID: 1,
		Lines:    []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: dec("-1")}},
	})
	require.ErrorAs(t, err, &ve)
}

func TestCreateOrderInsufficientStockLeavesNoPartialState(t *testing.T) {
	store := newFakeStore(
		ProductRow{ID: 1, Name: "Bath towels", Stock: 20},
		ProductRow{ID: 2, Name: "Shampoo 50ml", Stock: 3},
	)
	svc := NewService(store, nil, nil)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		ClientID: 7,
		Lines: []LineInput{
			{ProductID: 1, Quantity: 5, UnitPrice: dec("12.50")},
			{ProductID: 2, Quantity: 10, UnitPrice: dec("3.00")},
		},
	})
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(2), insufficient.ProductID)
	require.Equal(t, "Shampoo 50ml", insufficient.ProductName)

	// Nothing committed: no order, no items, no movements, stocks untouched.
	require.Empty(t, store.orders)
	require.Empty(t, store.items)
	require.Empty(t, store.movements)
	require.Equal(t, 20.0, store.products[1].Stock)
	require.Equal(t, 3.0, store.products[2].Stock)
}

func TestCreateOrderSumsDemandAcrossDuplicateLines(t *testing.T) {
	store := newFakeStore(ProductRow{ID: 1, Name: "Towels", Stock: 8})
	svc := NewService(store, nil, nil)

	// Two lines of 5 each exceed the 8 in stock even though each line alone fits.
	_, err := svc.Create(context.Background(), CreateOrderInput{
		ClientID: 1,
		Lines: []LineInput{
			{ProductID: 1, Quantity: 5, UnitPrice: dec("2.00")},
			{ProductID: 1, Quantity: 5, UnitPrice: dec("2.00")},
		},
	})
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 10.0, insufficient.Requested)
	require.Equal(t, 8.0, insufficient.Available)
}

func TestConcurrentOrdersCannotOversell(t *testing.T) {
	store := newFakeStore(ProductRow{ID: 1, Name: "Towels", Stock: 10})
	svc := NewService(store, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateOrderInput{
				ClientID: 1,
				Lines:    []LineInput{{ProductID: 1, Quantity: 7, UnitPrice: dec("1.00")}},
			})
		}(i)
	}
	wg.Wait()

	// Exactly one order wins; stock cannot go negative.
	var failures int
	for _, err := range errs {
		if err != nil {
			var insufficient *shared.InsufficientStockError
			require.ErrorAs(t, err, &insufficient)
			failures++
		}
	}
	require.Equal(t, 1, failures)
	require.Equal(t, 3.0, store.products[1].Stock)
}

func TestOrderNumbersAreUniqueUnderConcurrency(t *testing.T) {
	store := newFakeStore(ProductRow{ID: 1, Name: "Towels", Stock: 1000})
	svc := NewService(store, nil, nil)

	const n = 20
	numbers := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := svc.Create(context.Background(), CreateOrderInput{
				ClientID: 1,
				Lines:    []LineInput{{ProductID: 1, Quantity: 1, UnitPrice: dec("1.00")}},
			})
			require.NoError(t, err)
			numbers[i] = o.Number
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, num := range numbers {
		require.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
}
