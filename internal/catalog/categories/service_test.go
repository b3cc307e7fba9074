package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caravel-dms/caravel/internal/shared"
)

type fakeRepo struct {
	byID   map[int64]Category
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[int64]Category{}, nextID: 1}
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]Category, error) {
	var out []Category
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) Create(ctx context.Context, c Category) (int64, error) {
	c.ID = f.nextID
	f.nextID++
	f.byID[c.ID] = c
	return c.ID, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, c Category) error {
	if _, ok := f.byID[id]; !ok {
		return shared.ErrNotFound
	}
	c.ID = id
	f.byID[id] = c
	return nil
}

func TestCreateCategoryTrimsName(t *testing.T) {
	svc := NewService(newFakeRepo())

	c, err := svc.Create(context.Background(), UpsertCategoryRequest{Name: "  Dry goods "})
	require.NoError(t, err)
	require.Equal(t, "Dry goods", c.Name)
}

func TestCreateCategoryRequiresName(t *testing.T) {
	svc := NewService(newFakeRepo())

	var ve *shared.ValidationError
	_, err := svc.Create(context.Background(), UpsertCategoryRequest{Name: "   "})
	require.ErrorAs(t, err, &ve)
}

func TestUpdateCategory(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), UpsertCategoryRequest{Name: "Beverages"})
	require.NoError(t, err)

	desc := "soft drinks and water"
	updated, err := svc.Update(context.Background(), c.ID, UpsertCategoryRequest{Name: "Drinks", Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Drinks", updated.Name)
	require.Equal(t, &desc, updated.Description)

	_, err = svc.Update(context.Background(), 404, UpsertCategoryRequest{Name: "X"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
