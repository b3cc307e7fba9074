package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caravel-dms/caravel/internal/catalog/drivers"
	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/shared"
)

type fakeFleet struct {
	mu      sync.Mutex
	orders  map[int64]*OrderState
	drivers map[int64]*DriverState

	deliveredAt   map[int64]time.Time
	deliveryNotes map[int64]string
}

func newFakeFleet() *fakeFleet {
	return &fakeFleet{
		orders:        map[int64]*OrderState{},
		drivers:       map[int64]*DriverState{},
		deliveredAt:   map[int64]time.Time{},
		deliveryNotes: map[int64]string{},
	}
}

type fakeFleetTx struct {
	fleet *fakeFleet
}

func (f *fakeFleet) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	orderSnap := map[int64]OrderState{}
	for id, o := range f.orders {
		orderSnap[id] = *o
	}
	driverSnap := map[int64]DriverState{}
	for id, d := range f.drivers {
		driverSnap[id] = *d
	}
	if err := fn(ctx, &fakeFleetTx{fleet: f}); err != nil {
		f.orders = map[int64]*OrderState{}
		for id, o := range orderSnap {
			co := o
			f.orders[id] = &co
		}
		f.drivers = map[int64]*DriverState{}
		for id, d := range driverSnap {
			cd := d
			f.drivers[id] = &cd
		}
		return err
	}
	return nil
}

// Get satisfies OrdersPort by projecting fleet state into an order.
func (f *fakeFleet) Get(ctx context.Context, id int64) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, shared.ErrNotFound
	}
	out := orders.Order{ID: o.ID, Number: o.Number, DeliveryStatus: o.Status, DriverID: o.DriverID, DeliveryNotes: f.deliveryNotes[id]}
	if at, ok := f.deliveredAt[id]; ok {
		out.DeliveredAt = &at
	}
	return out, nil
}

func (t *fakeFleetTx) GetOrderForUpdate(ctx context.Context, orderID int64) (OrderState, error) {
	o, ok := t.fleet.orders[orderID]
	if !ok {
		return OrderState{}, shared.ErrNotFound
	}
	return *o, nil
}

func (t *fakeFleetTx) GetDriverForUpdate(ctx context.Context, driverID int64) (DriverState, error) {
	d, ok := t.fleet.drivers[driverID]
	if !ok {
		return DriverState{}, shared.ErrNotFound
	}
	return *d, nil
}

func (t *fakeFleetTx) SetOrderAssigned(ctx context.Context, orderID, driverID int64) error {
	o := t.fleet.orders[orderID]
	o.Status = orders.DeliveryInProgress
	o.DriverID = &driverID
	return nil
}

func (t *fakeFleetTx) SetOrderDelivered(ctx context.Context, orderID int64, deliveredAt time.Time, notes string) error {
	t.fleet.orders[orderID].Status = orders.DeliveryDelivered
	t.fleet.deliveredAt[orderID] = deliveredAt
	t.fleet.deliveryNotes[orderID] = notes
	return nil
}

func (t *fakeFleetTx) SetOrderCancelled(ctx context.Context, orderID int64) error {
	t.fleet.orders[orderID].Status = orders.DeliveryCancelled
	return nil
}

func (t *fakeFleetTx) SetDriverStatus(ctx context.Context, driverID int64, status drivers.Status) error {
	t.fleet.drivers[driverID].Status = status
	return nil
}

func seed(f *fakeFleet, orderStatus orders.DeliveryStatus, driverStatus drivers.Status) {
	f.orders[1] = &OrderState{ID: 1, Number: "CMD-test", Status: orderStatus}
	f.drivers[9] = &DriverState{ID: 9, Name: "Sam", Status: driverStatus}
}

func TestAssignDriverFromPending(t *testing.T) {
	fleet := newFakeFleet()
	seed(fleet, orders.DeliveryPending, drivers.StatusAvailable)
	svc := NewService(fleet, fleet, nil)

	o, err := svc.AssignDriver(context.Background(), 1, 9, "u1")
	require.NoError(t, err)
	require.Equal(t, orders.DeliveryInProgress, o.DeliveryStatus)
	require.NotNil(t, o.DriverID)
	require.Equal(t, int64(9), *o.DriverID)
	require.Equal(t, drivers.StatusDelivering, fleet.drivers[9].Status)
}

func TestAssignDriverRejectsNonPending(t *testing.T) {
	for _, status := range []orders.DeliveryStatus{orders.DeliveryInProgress, orders.DeliveryDelivered, orders.DeliveryCancelled} {
		fleet := newFakeFleet()
		seed(fleet, status, drivers.StatusAvailable)
		svc := NewService(fleet, fleet, nil)

		_, err := svc.AssignDriver(context.Background(), 1, 9, "u1")
		var invalid *shared.InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "from %s", status)
		require.Equal(t, string(status), invalid.From)
		require.Equal(t, drivers.StatusAvailable, fleet.drivers[9].Status, "driver must stay free after a rejected assignment")
	}
}

func TestAssignDriverRejectsBusyDriver(t *testing.T) {
	fleet := newFakeFleet()
	seed(fleet, orders.DeliveryPending, drivers.StatusDelivering)
	svc := NewService(fleet, fleet, nil)

	_, err := svc.AssignDriver(context.Background(), 1, 9, "u1")
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, orders.DeliveryPending, fleet.orders[1].Status)
}

func TestConfirmDelivery(t *testing.T) {
	fleet := newFakeFleet()
	seed(fleet, orders.DeliveryPending, drivers.StatusAvailable)
	svc := NewService(fleet, fleet, nil)
	delivered := time.Date(2026, 4, 2, 16, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return delivered }

	_, err := svc.AssignDriver(context.Background(), 1, 9, "u1")
	require.NoError(t, err)

	o, err := svc.Confirm(context.Background(), 1, "left at reception", "u1")
	require.NoError(t, err)
	require.Equal(t, orders.DeliveryDelivered, o.DeliveryStatus)
	require.NotNil(t, o.DeliveredAt)
	require.Equal(t, delivered, *o.DeliveredAt)
	require.Equal(t, "left at reception", o.DeliveryNotes)
	require.Equal(t, drivers.StatusAvailable, fleet.drivers[9].Status, "driver freed on delivery")
}

func TestConfirmRejectsNonInProgress(t *testing.T) {
	for _, status := range []orders.DeliveryStatus{orders.DeliveryPending, orders.DeliveryDelivered, orders.DeliveryCancelled} {
		fleet := newFakeFleet()
		seed(fleet, status, drivers.StatusAvailable)
		svc := NewService(fleet, fleet, nil)

		_, err := svc.Confirm(context.Background(), 1, "", "u1")
		var invalid *shared.InvalidTransitionError
		require.ErrorAs(t, err, &invalid, "from %s", status)
	}
}

func TestCancelFreesAssignedDriver(t *testing.T) {
	fleet := newFakeFleet()
	seed(fleet, orders.DeliveryPending, drivers.StatusAvailable)
	svc := NewService(fleet, fleet, nil)

	_, err := svc.AssignDriver(context.Background(), 1, 9, "u1")
	require.NoError(t, err)

	o, err := svc.Cancel(context.Background(), 1, "u1")
	require.NoError(t, err)
	require.Equal(t, orders.DeliveryCancelled, o.DeliveryStatus)
	require.Equal(t, drivers.StatusAvailable, fleet.drivers[9].Status)

	// Terminal: nothing transitions out of CANCELLED.
	_, err = svc.AssignDriver(context.Background(), 1, 9, "u1")
	var invalid *shared.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	_, err = svc.Confirm(context.Background(), 1, "", "u1")
	require.ErrorAs(t, err, &invalid)
}

func TestCancelFromPendingWithoutDriver(t *testing.T) {
	fleet := newFakeFleet()
	seed(fleet, orders.DeliveryPending, drivers.StatusAvailable)
	svc := NewService(fleet, fleet, nil)

	o, err := svc.Cancel(context.Background(), 1, "u1")
	require.NoError(t, err)
	require.Equal(t, orders.DeliveryCancelled, o.DeliveryStatus)
}
