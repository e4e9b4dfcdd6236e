package inventory

import (
	"context"
	"testing"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/stretchr/testify/require"
)

func TestRepositoryFindByProductIDMissing(t *testing.T) {
	repo := NewRepository(openTestDB(t).DB())

	record, err := repo.FindByProductID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestRepositorySaveInsertsThenUpdatesInPlace(t *testing.T) {
	repo := NewRepository(openTestDB(t).DB())
	ctx := context.Background()

	created, err := repo.Save(ctx, &models.StockRecord{ProductID: 7, Quantity: 12})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, 12, created.Quantity)

	created.Quantity = 3
	updated, err := repo.Save(ctx, created)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, 3, updated.Quantity)

	zeroed, err := repo.Save(ctx, &models.StockRecord{ID: created.ID, ProductID: 7, Quantity: 0})
	require.NoError(t, err)
	require.Equal(t, 0, zeroed.Quantity)
}

func TestRepositorySaveKeepsOneRecordPerProduct(t *testing.T) {
	repo := NewRepository(openTestDB(t).DB())
	ctx := context.Background()

	first, err := repo.Save(ctx, &models.StockRecord{ProductID: 9, Quantity: 1})
	require.NoError(t, err)

	// a second insert for the same product, as a racing create would issue
	second, err := repo.Save(ctx, &models.StockRecord{ProductID: 9, Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 5, second.Quantity)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRepositoryFindAllOrdersByID(t *testing.T) {
	repo := NewRepository(openTestDB(t).DB())
	ctx := context.Background()

	for _, productID := range []int64{30, 10, 20} {
		_, err := repo.Save(ctx, &models.StockRecord{ProductID: productID, Quantity: int(productID)})
		require.NoError(t, err)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []int64{30, 10, 20}, []int64{all[0].ProductID, all[1].ProductID, all[2].ProductID})
}

func TestRepositoryDecrementIfAvailable(t *testing.T) {
	repo := NewRepository(openTestDB(t).DB())
	ctx := context.Background()

	_, err := repo.Save(ctx, &models.StockRecord{ProductID: 1, Quantity: 10})
	require.NoError(t, err)

	ok, err := repo.DecrementIfAvailable(ctx, 1, 6)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DecrementIfAvailable(ctx, 1, 6)
	require.NoError(t, err)
	require.False(t, ok, "decrement beyond available stock must not match")

	ok, err = repo.DecrementIfAvailable(ctx, 1, 4)
	require.NoError(t, err)
	require.True(t, ok)

	record, err := repo.FindByProductID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, record.Quantity)

	ok, err = repo.DecrementIfAvailable(ctx, 404, 1)
	require.NoError(t, err)
	require.False(t, ok, "missing product must not match")
}

func TestRepositoryRejectsNegativeQuantity(t *testing.T) {
	repo := NewRepository(openTestDB(t).DB())

	_, err := repo.Save(context.Background(), &models.StockRecord{ProductID: 2, Quantity: -1})
	require.Error(t, err)
}
