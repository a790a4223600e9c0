package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/harvestlink/harvestlink-backend/internal/products"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/dbtest"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

type cartFixture struct {
	client   *db.Client
	svc      Service
	retailer auth.Actor
	farmerID uuid.UUID
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(NewRepository(client.DB()), client, func(tx *gorm.DB) ProductLookup {
		return product.NewRepository(tx)
	})
	require.NoError(t, err)
	retailer := dbtest.User(t, client.DB(), enums.UserRoleRetailer, "retail1")
	farmer := dbtest.User(t, client.DB(), enums.UserRoleFarmer, "farmer1")
	return cartFixture{
		client:   client,
		svc:      svc,
		retailer: auth.Actor{UserID: retailer.ID, Role: retailer.Role},
		farmerID: farmer.ID,
	}
}

func TestGetCreatesActiveCartOnce(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	first, err := f.svc.Get(ctx, f.retailer)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, first.Status)
	assert.Empty(t, first.Items)
	assert.True(t, first.Total.IsZero())

	second, err := f.svc.Get(ctx, f.retailer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetRejectsNonRetailer(t *testing.T) {
	f := newCartFixture(t)
	_, err := f.svc.Get(context.Background(), auth.Actor{UserID: f.farmerID, Role: enums.UserRoleFarmer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAddItemMergesAndSnapshotsPrice(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	apples := dbtest.Product(t, conn, f.farmerID, "Apples", "2.00", 10)

	_, err := f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", apples.ID).
		Update("price_per_unit", decimal.RequireFromString("2.50")).Error)

	cart, err := f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("2.50").Equal(cart.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("12.50").Equal(cart.Total))
	assert.Equal(t, 5, cart.ItemCount)
}

func TestAddItemRejectsMoreThanStock(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	apples := dbtest.Product(t, f.client.DB(), f.farmerID, "Apples", "2.00", 4)

	_, err := f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	_, err = f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItemZeroRemoves(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	apples := dbtest.Product(t, conn, f.farmerID, "Apples", "2.00", 10)
	pears := dbtest.Product(t, conn, f.farmerID, "Pears", "3.00", 10)

	_, err := f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: pears.ID, Quantity: 1})
	require.NoError(t, err)

	cart, err := f.svc.UpdateItem(ctx, f.retailer, apples.ID, 7)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 7, cart.Items[0].Quantity)

	_, err = f.svc.UpdateItem(ctx, f.retailer, apples.ID, 11)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	cart, err = f.svc.UpdateItem(ctx, f.retailer, apples.ID, 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, pears.ID, cart.Items[0].ProductID)

	_, err = f.svc.RemoveItem(ctx, f.retailer, apples.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cart, err = f.svc.Clear(ctx, f.retailer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestAbandonStaleAndConvert(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	repo := NewRepository(conn)

	cart, err := f.svc.Get(ctx, f.retailer)
	require.NoError(t, err)

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, conn.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("updated_at", old).Error)

	affected, err := repo.AbandonStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	fresh, err := f.svc.Get(ctx, f.retailer)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.ID)

	converted, err := repo.MarkConverted(ctx, fresh.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, converted)

	converted, err = repo.MarkConverted(ctx, fresh.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, converted)
}

func TestCountActiveItems(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	apples := dbtest.Product(t, f.client.DB(), f.farmerID, "Apples", "2.00", 10)
	_, err := f.svc.AddItem(ctx, f.retailer, AddItemInput{ProductID: apples.ID, Quantity: 4})
	require.NoError(t, err)

	count, err := NewRepository(f.client.DB()).CountActiveItems(ctx, f.retailer.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
