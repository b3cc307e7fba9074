package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caravel-dms/caravel/internal/shared"
)

type fakeRepo struct {
	mu        sync.Mutex
	products  map[int64]*ProductStock
	movements []Movement
	nextID    int64
}

func newFakeRepo(products ...ProductStock) *fakeRepo {
	r := &fakeRepo{products: map[int64]*ProductStock{}, nextID: 1}
	for i := range products {
		p := products[i]
		r.products[p.ID] = &p
	}
	return r
}

type fakeTx struct {
	repo *fakeRepo
}

// WithTx serializes callbacks with a mutex, mirroring the row lock the real
// repository takes on the product.
func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshotProducts := map[int64]ProductStock{}
	for id, p := range r.products {
		snapshotProducts[id] = *p
	}
	snapshotLen := len(r.movements)
	if err := fn(ctx, &fakeTx{repo: r}); err != nil {
		for id, p := range snapshotProducts {
			cp := p
			r.products[id] = &cp
		}
		r.movements = r.movements[:snapshotLen]
		return err
	}
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter MovementFilter) ([]Movement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for _, m := range r.movements {
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (t *fakeTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	p, ok := t.repo.products[productID]
	if !ok {
		return ProductStock{}, shared.ErrNotFound
	}
	return *p, nil
}

func (t *fakeTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	m.ID = t.repo.nextID
	t.repo.nextID++
	t.repo.movements = append(t.repo.movements, m)
	return m.ID, nil
}

func (t *fakeTx) UpdateProductStock(ctx context.Context, productID int64, stock float64) error {
	t.repo.products[productID].Stock = stock
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, nil)
}

func TestApplyInIncreasesStock(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Bath towels", Stock: 4})
	svc := newTestService(repo)

	m, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementIn, Quantity: 6})
	require.NoError(t, err)
	require.Equal(t, 4.0, m.StockBefore)
	require.Equal(t, 10.0, m.StockAfter)
	require.Equal(t, 10.0, repo.products[1].Stock)
}

func TestApplyOutRejectsInsufficientStock(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Bath towels", Stock: 3})
	svc := newTestService(repo)

	_, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementOut, Quantity: 5})
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(1), insufficient.ProductID)
	require.Equal(t, "Bath towels", insufficient.ProductName)
	require.Equal(t, 5.0, insufficient.Requested)
	require.Equal(t, 3.0, insufficient.Available)

	// Rejected movement leaves no trace.
	require.Equal(t, 3.0, repo.products[1].Stock)
	require.Empty(t, repo.movements)
}

func TestApplyLossSubtractsAndRequiresReason(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Wine glasses", Stock: 12})
	svc := newTestService(repo)

	_, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementLoss, Quantity: 2})
	require.ErrorIs(t, err, ErrInvalidReason)

	reason := LossBreakage
	m, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementLoss, Quantity: 2, Reason: &reason})
	require.NoError(t, err)
	require.Equal(t, 10.0, m.StockAfter)
	require.Equal(t, LossBreakage, *m.Reason)
}

func TestApplyAdjustMayGoNegative(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Napkins", Stock: 2})
	svc := newTestService(repo)

	m, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementAdjust, Quantity: -5})
	require.NoError(t, err)
	require.Equal(t, -3.0, m.StockAfter)
	require.Equal(t, -3.0, repo.products[1].Stock)
}

func TestApplyRejectsNonPositiveQuantity(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Napkins", Stock: 2})
	svc := newTestService(repo)

	for _, typ := range []MovementType{MovementIn, MovementOut, MovementLoss} {
		_, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: typ, Quantity: -1})
		require.ErrorIs(t, err, ErrInvalidQuantity, "type %s", typ)
	}
	_, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementAdjust, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestApplyUnknownProduct(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Apply(context.Background(), ApplyInput{ProductID: 99, Type: MovementIn, Quantity: 1})
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestConcurrentOutMovementsSerialize(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Bed sheets", Stock: 10})
	svc := newTestService(repo)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	quantities := []float64{5, 3}
	for i := range quantities {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementOut, Quantity: quantities[i]})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 2.0, repo.products[1].Stock)

	// Ledger replay matches the counter: each entry's before equals the
	// previous entry's after.
	require.Len(t, repo.movements, 2)
	first, second := repo.movements[0], repo.movements[1]
	require.Equal(t, 10.0, first.StockBefore)
	require.Equal(t, first.StockAfter, second.StockBefore)
	require.Equal(t, 2.0, second.StockAfter)
}

func TestJournalFilters(t *testing.T) {
	repo := newFakeRepo(
		ProductStock{ID: 1, Name: "Towels", Stock: 100},
		ProductStock{ID: 2, Name: "Soap", Stock: 100},
	)
	svc := newTestService(repo)

	_, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementIn, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), ApplyInput{ProductID: 2, Type: MovementOut, Quantity: 3})
	require.NoError(t, err)

	byProduct, total, err := svc.Journal(context.Background(), MovementFilter{ProductID: 1})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, MovementIn, byProduct[0].Type)

	_, _, err = svc.Journal(context.Background(), MovementFilter{Type: MovementType("BOGUS")})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestMovementTimestampsAreUTC(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, Name: "Towels", Stock: 1})
	svc := newTestService(repo)

	m, err := svc.Apply(context.Background(), ApplyInput{ProductID: 1, Type: MovementIn, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, time.UTC, m.CreatedAt.Location())
}
