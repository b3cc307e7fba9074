package suppliers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/caravel-dms/caravel/internal/shared"
)

type fakeRepo struct {
	byID   map[int64]Supplier
	prices map[int64]map[int64]PriceEntry
	nextID int64
}

func newFakeRepo(suppliers ...Supplier) *fakeRepo {
	f := &fakeRepo{byID: map[int64]Supplier{}, prices: map[int64]map[int64]PriceEntry{}, nextID: 1}
	for _, s := range suppliers {
		f.byID[s.ID] = s
		if s.ID >= f.nextID {
			f.nextID = s.ID + 1
		}
	}
	return f
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := f.byID[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (f *fakeRepo) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	var out []Supplier
	for _, s := range f.byID {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) Create(ctx context.Context, s Supplier) (int64, error) {
	s.ID = f.nextID
	s.Active = true
	f.nextID++
	f.byID[s.ID] = s
	return s.ID, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, s Supplier) error {
	if _, ok := f.byID[id]; !ok {
		return shared.ErrNotFound
	}
	s.ID = id
	f.byID[id] = s
	return nil
}

func (f *fakeRepo) ListPrices(ctx context.Context, supplierID int64) ([]PriceEntry, error) {
	var out []PriceEntry
	for _, e := range f.prices[supplierID] {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) UpsertPrice(ctx context.Context, e PriceEntry) (PriceEntry, error) {
	if f.prices[e.SupplierID] == nil {
		f.prices[e.SupplierID] = map[int64]PriceEntry{}
	}
	if prev, ok := f.prices[e.SupplierID][e.ProductID]; ok {
		e.ID = prev.ID
		e.CreatedAt = prev.CreatedAt
	} else {
		e.ID = f.nextID
		f.nextID++
		e.CreatedAt = time.Now().UTC()
	}
	f.prices[e.SupplierID][e.ProductID] = e
	return e, nil
}

func TestUpsertPriceCreatesThenReplaces(t *testing.T) {
	repo := newFakeRepo(Supplier{ID: 3, Name: "Sahel Foods", Active: true})
	svc := NewService(repo)

	first, err := svc.UpsertPrice(context.Background(), 3, 7, UpsertPriceRequest{UnitCost: "8.40", LeadTimeDays: 2})
	require.NoError(t, err)
	require.True(t, first.UnitCost.Equal(decimal.RequireFromString("8.40")))

	second, err := svc.UpsertPrice(context.Background(), 3, 7, UpsertPriceRequest{UnitCost: "7.90", LeadTimeDays: 3})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.UnitCost.Equal(decimal.RequireFromString("7.90")))
	require.Equal(t, 3, second.LeadTimeDays)

	prices, err := svc.ListPrices(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, prices, 1)
}

func TestUpsertPriceValidation(t *testing.T) {
	repo := newFakeRepo(Supplier{ID: 3, Name: "Sahel Foods", Active: true})
	svc := NewService(repo)

	var ve *shared.ValidationError
	_, err := svc.UpsertPrice(context.Background(), 3, 7, UpsertPriceRequest{UnitCost: "not-a-number"})
	require.ErrorAs(t, err, &ve)

	_, err = svc.UpsertPrice(context.Background(), 3, 7, UpsertPriceRequest{UnitCost: "-1.00"})
	require.ErrorAs(t, err, &ve)

	_, err = svc.UpsertPrice(context.Background(), 404, 7, UpsertPriceRequest{UnitCost: "1.00"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPricesUnknownSupplier(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.ListPrices(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
