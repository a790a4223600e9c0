package checkout

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/internal/cart"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	pkgcheckout "github.com/harvestlink/harvestlink-backend/pkg/checkout"
	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/dbtest"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func newService(t *testing.T, client *db.Client, emitter outbox.Emitter) Service {
	t.Helper()
	conn := client.DB()
	svc, err := NewService(
		client,
		NewRepository(conn),
		cart.NewRepository(conn),
		orders.NewRepository(conn),
		nil,
		emitter,
		nil,
		nil,
		Options{DeliveryLeadDays: 3},
	)
	require.NoError(t, err)
	return svc
}

func retailerActor(u *models.User) auth.Actor {
	return auth.Actor{UserID: u.ID, Username: u.Username, Role: enums.UserRoleRetailer}
}

func countOrders(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&n).Error)
	return n
}

func stockOf(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", id).Error)
	return product.StockQuantity
}

func TestExecuteSplitsOrderPerFarmer(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	distributor := dbtest.User(t, conn, enums.UserRoleDistributor, "distone")
	dbtest.User(t, conn, enums.UserRoleDistributor, "disttwo")
	farmerA := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	farmerB := dbtest.User(t, conn, enums.UserRoleFarmer, "farmerb")
	retailer := dbtest.User(t, conn, enums.UserRoleRetailer, "retailer")

	apples := dbtest.Product(t, conn, farmerA.ID, "apples", "2.50", 10)
	beans := dbtest.Product(t, conn, farmerB.ID, "beans", "4.00", 8)
	pears := dbtest.Product(t, conn, farmerA.ID, "pears", "1.25", 4)

	emitter := &recordingEmitter{}
	svc := newService(t, client, emitter)

	result, err := svc.Execute(context.Background(), retailerActor(retailer), CheckoutInput{
		Lines: []pkgcheckout.LineInput{
			{ProductID: apples.ID, Quantity: 4},
			{ProductID: beans.ID, Quantity: 2},
			{ProductID: pears.ID, Quantity: 4},
		},
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("23.00").Equal(result.Order.TotalAmount), result.Order.TotalAmount.String())
	require.NotNil(t, result.Order.DistributorID)
	assert.Equal(t, distributor.ID, *result.Order.DistributorID)
	assert.Nil(t, result.Order.ParentOrderID)

	require.Len(t, result.Children, 2)
	assert.Equal(t, farmerA.ID, *result.Children[0].FarmerID)
	assert.True(t, decimal.RequireFromString("15.00").Equal(result.Children[0].TotalAmount))
	assert.Equal(t, farmerB.ID, *result.Children[1].FarmerID)
	assert.True(t, decimal.RequireFromString("8.00").Equal(result.Children[1].TotalAmount))
	for _, child := range result.Children {
		require.NotNil(t, child.ParentOrderID)
		assert.Equal(t, result.Order.ID, *child.ParentOrderID)
		assert.Equal(t, distributor.ID, *child.DistributorID)
	}

	var parentItems, childItems int64
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("order_id = ?", result.Order.ID).Count(&parentItems).Error)
	require.NoError(t, conn.Model(&models.OrderItem{}).Where("order_id = ?", result.Children[0].ID).Count(&childItems).Error)
	assert.EqualValues(t, 3, parentItems)
	assert.EqualValues(t, 2, childItems)

	assert.Equal(t, 6, stockOf(t, conn, apples.ID))
	assert.Equal(t, 6, stockOf(t, conn, beans.ID))
	assert.Equal(t, 0, stockOf(t, conn, pears.ID))

	assert.Equal(t, enums.DeliveryStatusScheduled, result.Delivery.Status)
	assert.Equal(t, retailer.Location, result.Delivery.DeliveryAddress)
	assert.True(t, strings.HasPrefix(result.Delivery.TrackingNumber, "HL-"))
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 3), result.Delivery.ScheduledDate, time.Minute)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventCheckoutCompleted, emitter.events[0].EventType)
	payload, ok := emitter.events[0].Data.(outbox.CheckoutCompletedEvent)
	require.True(t, ok)
	assert.Len(t, payload.ChildOrderIDs, 2)
	assert.Equal(t, result.Delivery.TrackingNumber, payload.TrackingNumber)
}

func TestExecuteInsufficientStockRollsBack(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	dbtest.User(t, conn, enums.UserRoleDistributor, "distone")
	farmer := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	retailer := dbtest.User(t, conn, enums.UserRoleRetailer, "retailer")
	plenty := dbtest.Product(t, conn, farmer.ID, "plenty", "1.00", 50)
	scarce := dbtest.Product(t, conn, farmer.ID, "scarce", "1.00", 1)

	emitter := &recordingEmitter{}
	svc := newService(t, client, emitter)

	_, err := svc.Execute(context.Background(), retailerActor(retailer), CheckoutInput{
		Lines: []pkgcheckout.LineInput{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Contains(t, err.Error(), "scarce")

	assert.Equal(t, 50, stockOf(t, conn, plenty.ID))
	assert.Equal(t, 1, stockOf(t, conn, scarce.ID))
	assert.Zero(t, countOrders(t, conn))
	assert.Empty(t, emitter.events)
}

func TestExecuteWithoutDistributorFails(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	farmer := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	retailer := dbtest.User(t, conn, enums.UserRoleRetailer, "retailer")
	product := dbtest.Product(t, conn, farmer.ID, "apples", "1.00", 5)

	svc := newService(t, client, nil)
	_, err := svc.Execute(context.Background(), retailerActor(retailer), CheckoutInput{
		Lines: []pkgcheckout.LineInput{{ProductID: product.ID, Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, countOrders(t, conn))
	assert.Equal(t, 5, stockOf(t, conn, product.ID))
}

func TestExecuteValidatesInput(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	dbtest.User(t, conn, enums.UserRoleDistributor, "distone")
	farmer := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	retailer := dbtest.User(t, conn, enums.UserRoleRetailer, "retailer")
	product := dbtest.Product(t, conn, farmer.ID, "apples", "1.00", 5)
	svc := newService(t, client, nil)
	ctx := context.Background()

	_, err := svc.Execute(ctx, retailerActor(retailer), CheckoutInput{
		Lines: []pkgcheckout.LineInput{{ProductID: product.ID, Quantity: 0}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Execute(ctx, retailerActor(retailer), CheckoutInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty cart")

	farmerActor := auth.Actor{UserID: farmer.ID, Role: enums.UserRoleFarmer}
	_, err = svc.Execute(ctx, farmerActor, CheckoutInput{
		Lines: []pkgcheckout.LineInput{{ProductID: product.ID, Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Execute(ctx, retailerActor(retailer), CheckoutInput{
		Lines: []pkgcheckout.LineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, countOrders(t, conn))
}

func TestExecuteConvertsActiveCart(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	dbtest.User(t, conn, enums.UserRoleDistributor, "distone")
	farmer := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	retailer := dbtest.User(t, conn, enums.UserRoleRetailer, "retailer")
	product := dbtest.Product(t, conn, farmer.ID, "apples", "3.00", 9)

	activeCart := models.Cart{RetailerID: retailer.ID, Status: enums.CartStatusActive}
	require.NoError(t, conn.Create(&activeCart).Error)
	require.NoError(t, conn.Create(&models.CartItem{
		CartID:    activeCart.ID,
		ProductID: product.ID,
		Quantity:  3,
		UnitPrice: product.PricePerUnit,
	}).Error)

	svc := newService(t, client, nil)
	address := "12 market road"
	result, err := svc.Execute(context.Background(), retailerActor(retailer), CheckoutInput{DeliveryAddress: &address})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9.00").Equal(result.Order.TotalAmount))
	assert.Equal(t, address, result.Delivery.DeliveryAddress)
	assert.Equal(t, 6, stockOf(t, conn, product.ID))

	var reloaded models.Cart
	require.NoError(t, conn.First(&reloaded, "id = ?", activeCart.ID).Error)
	assert.Equal(t, enums.CartStatusConverted, reloaded.Status)
	assert.NotNil(t, reloaded.ConvertedAt)

	_, err = svc.Execute(context.Background(), retailerActor(retailer), CheckoutInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestExecuteMergesRepeatedProducts(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	dbtest.User(t, conn, enums.UserRoleDistributor, "distone")
	farmer := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	retailer := dbtest.User(t, conn, enums.UserRoleRetailer, "retailer")
	product := dbtest.Product(t, conn, farmer.ID, "apples", "1.00", 3)

	svc := newService(t, client, nil)
	_, err := svc.Execute(context.Background(), retailerActor(retailer), CheckoutInput{
		Lines: []pkgcheckout.LineInput{
			{ProductID: product.ID, Quantity: 2},
			{ProductID: product.ID, Quantity: 2},
		},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 3, stockOf(t, conn, product.ID))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	dbtest.User(t, conn, enums.UserRoleDistributor, "distone")
	farmer := dbtest.User(t, conn, enums.UserRoleFarmer, "farmera")
	product := dbtest.Product(t, conn, farmer.ID, "apples", "1.00", 5)

	const buyers = 10
	retailers := make([]*models.User, buyers)
	for i := range retailers {
		retailers[i] = dbtest.User(t, conn, enums.UserRoleRetailer, "retailer"+string(rune('a'+i)))
	}
	svc := newService(t, client, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		shortfall int
	)
	for _, retailer := range retailers {
		wg.Add(1)
		go func(actor auth.Actor) {
			defer wg.Done()
			_, err := svc.Execute(context.Background(), actor, CheckoutInput{
				Lines: []pkgcheckout.LineInput{{ProductID: product.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
				shortfall++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(retailerActor(retailer))
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	assert.Equal(t, buyers-5, shortfall)
	assert.Equal(t, 0, stockOf(t, conn, product.ID))
}
