package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/internal/crops"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/dbtest"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
	"github.com/harvestlink/harvestlink-backend/pkg/pagination"
)

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox insert failed")
}

type fixture struct {
	client      *db.Client
	svc         Service
	emitter     *recordingEmitter
	farmerA     *models.User
	farmerB     *models.User
	retailer    *models.User
	distributor *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	cropRepo := crops.NewRepository(conn)
	emitter := &recordingEmitter{}
	svc, err := NewService(NewRepository(conn), client, func(tx *gorm.DB) CropStock {
		return cropRepo.WithTx(tx)
	}, emitter, nil, nil)
	require.NoError(t, err)
	return &fixture{
		client:      client,
		svc:         svc,
		emitter:     emitter,
		farmerA:     dbtest.User(t, conn, enums.UserRoleFarmer, "farmera"),
		farmerB:     dbtest.User(t, conn, enums.UserRoleFarmer, "farmerb"),
		retailer:    dbtest.User(t, conn, enums.UserRoleRetailer, "retailer"),
		distributor: dbtest.User(t, conn, enums.UserRoleDistributor, "distrib"),
	}
}

func actorOf(u *models.User) auth.Actor {
	return auth.Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}

type orderTree struct {
	parent   models.Order
	children []models.Order
	delivery models.Delivery
}

// seedTree stores a checkout-shaped parent with one child per farmer and a
// scheduled delivery.
func (f *fixture) seedTree(t *testing.T, distributorID *uuid.UUID) orderTree {
	t.Helper()
	conn := f.client.DB()
	retailerID := f.retailer.ID
	parent := models.Order{
		RetailerID:    &retailerID,
		DistributorID: distributorID,
		Status:        enums.OrderStatusPending,
		TotalAmount:   decimal.RequireFromString("35.00"),
	}
	require.NoError(t, conn.Create(&parent).Error)

	tree := orderTree{parent: parent}
	for _, farmer := range []*models.User{f.farmerA, f.farmerB} {
		farmerID := farmer.ID
		child := models.Order{
			FarmerID:      &farmerID,
			RetailerID:    &retailerID,
			DistributorID: distributorID,
			ParentOrderID: &parent.ID,
			Status:        enums.OrderStatusPending,
			TotalAmount:   decimal.RequireFromString("17.50"),
		}
		require.NoError(t, conn.Create(&child).Error)
		tree.children = append(tree.children, child)
	}
	tree.delivery = models.Delivery{
		OrderID:         parent.ID,
		Status:          enums.DeliveryStatusScheduled,
		ScheduledDate:   time.Now().UTC().AddDate(0, 0, 3),
		DeliveryAddress: "retailer street",
		TrackingNumber:  "HL-TEST-" + parent.ID.String()[:8],
	}
	require.NoError(t, conn.Create(&tree.delivery).Error)
	return tree
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.client.DB().First(&order, "id = ?", id).Error)
	return order
}

func (f *fixture) reloadDelivery(t *testing.T, id uuid.UUID) models.Delivery {
	t.Helper()
	var delivery models.Delivery
	require.NoError(t, f.client.DB().First(&delivery, "id = ?", id).Error)
	return delivery
}

func TestTransitionCascadesToChildrenAndDelivery(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	ctx := context.Background()

	dto, err := f.svc.Transition(ctx, actorOf(f.distributor), tree.parent.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, dto.Status)
	for _, child := range tree.children {
		assert.Equal(t, enums.OrderStatusProcessing, f.reload(t, child.ID).Status)
	}
	assert.Equal(t, enums.DeliveryStatusScheduled, f.reloadDelivery(t, tree.delivery.ID).Status)

	dto, err = f.svc.Transition(ctx, actorOf(f.distributor), tree.parent.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, dto.CompletedAt)
	for _, child := range tree.children {
		reloaded := f.reload(t, child.ID)
		assert.Equal(t, enums.OrderStatusCompleted, reloaded.Status)
		require.NotNil(t, reloaded.CompletedAt)
		assert.WithinDuration(t, *dto.CompletedAt, *reloaded.CompletedAt, time.Second)
	}
	delivery := f.reloadDelivery(t, tree.delivery.ID)
	assert.Equal(t, enums.DeliveryStatusCompleted, delivery.Status)
	assert.NotNil(t, delivery.CompletedAt)

	require.Len(t, f.emitter.events, 2)
	last := f.emitter.events[1]
	assert.Equal(t, enums.EventOrderStatusChanged, last.EventType)
	payload, ok := last.Data.(outbox.OrderStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusProcessing, payload.From)
	assert.Equal(t, enums.OrderStatusCompleted, payload.To)
	assert.Len(t, payload.ChildOrderIDs, 2)
	require.NotNil(t, payload.DeliveryID)
	assert.Equal(t, tree.delivery.ID, *payload.DeliveryID)
}

func TestTransitionRejectsSkippingProcessing(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)

	_, err := f.svc.Transition(context.Background(), actorOf(f.distributor), tree.parent.ID, enums.OrderStatusCompleted)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusPending, f.reload(t, tree.parent.ID).Status)
	assert.Equal(t, enums.OrderStatusPending, f.reload(t, tree.children[0].ID).Status)
	assert.Equal(t, enums.DeliveryStatusScheduled, f.reloadDelivery(t, tree.delivery.ID).Status)
	assert.Empty(t, f.emitter.events)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)

	_, err := f.svc.Transition(context.Background(), actorOf(f.distributor), tree.parent.ID, enums.OrderStatus("shipped"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransitionFromTerminalStatusFails(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, actorOf(f.distributor), tree.parent.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusCancelled, f.reloadDelivery(t, tree.delivery.ID).Status)

	_, err = f.svc.Transition(ctx, actorOf(f.distributor), tree.parent.ID, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestTransitionRollsBackTreeWhenPersistenceFails(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	conn := f.client.DB()
	cropRepo := crops.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), f.client, func(tx *gorm.DB) CropStock {
		return cropRepo.WithTx(tx)
	}, failingEmitter{}, nil, nil)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), actorOf(f.distributor), tree.parent.ID, enums.OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	assert.Equal(t, enums.OrderStatusPending, f.reload(t, tree.parent.ID).Status)
	for _, child := range tree.children {
		assert.Equal(t, enums.OrderStatusPending, f.reload(t, child.ID).Status)
	}
	delivery := f.reloadDelivery(t, tree.delivery.ID)
	assert.Equal(t, enums.DeliveryStatusScheduled, delivery.Status)
	assert.Nil(t, delivery.CompletedAt)
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)
	other := dbtest.User(t, f.client.DB(), enums.UserRoleDistributor, "otherdist")
	tree := f.seedTree(t, &f.distributor.ID)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, actorOf(other), tree.parent.ID, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Transition(ctx, actorOf(f.farmerA), tree.parent.ID, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Transition(ctx, actorOf(f.retailer), tree.parent.ID, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Transition(ctx, actorOf(f.distributor), tree.children[0].ID, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRetailerCancelsOnlyPendingOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.seedTree(t, &f.distributor.ID)
	dto, err := f.svc.Transition(ctx, actorOf(f.retailer), pending.parent.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
	assert.Equal(t, enums.OrderStatusCancelled, f.reload(t, pending.children[1].ID).Status)

	processing := f.seedTree(t, &f.distributor.ID)
	_, err = f.svc.Transition(ctx, actorOf(f.distributor), processing.parent.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, actorOf(f.retailer), processing.parent.ID, enums.OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusProcessing, f.reload(t, processing.parent.ID).Status)
}

func TestClaimAssignsDistributorToTree(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, nil)
	ctx := context.Background()

	dto, err := f.svc.Claim(ctx, actorOf(f.distributor), tree.parent.ID)
	require.NoError(t, err)
	require.NotNil(t, dto.DistributorID)
	assert.Equal(t, f.distributor.ID, *dto.DistributorID)
	for _, child := range tree.children {
		reloaded := f.reload(t, child.ID)
		require.NotNil(t, reloaded.DistributorID)
		assert.Equal(t, f.distributor.ID, *reloaded.DistributorID)
	}

	other := dbtest.User(t, f.client.DB(), enums.UserRoleDistributor, "latecomer")
	_, err = f.svc.Claim(ctx, actorOf(other), tree.parent.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Claim(ctx, actorOf(f.retailer), tree.parent.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestPlaceCropOrderSellsOut(t *testing.T) {
	f := newFixture(t)
	crop := dbtest.Crop(t, f.client.DB(), f.farmerA.ID, "tomato", enums.CropStatusReadyForHarvest, 10)
	ctx := context.Background()

	detail, err := f.svc.PlaceCropOrder(ctx, actorOf(f.retailer), crop.ID, PlaceCropOrderInput{Quantity: 4})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(detail.TotalAmount))
	require.NotNil(t, detail.FarmerID)
	assert.Equal(t, f.farmerA.ID, *detail.FarmerID)
	require.NotNil(t, detail.RetailerID)
	assert.Nil(t, detail.DistributorID)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, crop.ID, *detail.Items[0].CropID)

	_, err = f.svc.PlaceCropOrder(ctx, actorOf(f.distributor), crop.ID, PlaceCropOrderInput{Quantity: 7})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	_, err = f.svc.PlaceCropOrder(ctx, actorOf(f.distributor), crop.ID, PlaceCropOrderInput{Quantity: 6})
	require.NoError(t, err)

	var reloaded models.Crop
	require.NoError(t, f.client.DB().First(&reloaded, "id = ?", crop.ID).Error)
	assert.Equal(t, 0, reloaded.Quantity)
	assert.Equal(t, enums.CropStatusSoldOut, reloaded.Status)

	_, err = f.svc.PlaceCropOrder(ctx, actorOf(f.retailer), crop.ID, PlaceCropOrderInput{Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestPlaceCropOrderValidation(t *testing.T) {
	f := newFixture(t)
	growing := dbtest.Crop(t, f.client.DB(), f.farmerA.ID, "corn", enums.CropStatusGrowing, 10)
	ctx := context.Background()

	_, err := f.svc.PlaceCropOrder(ctx, actorOf(f.farmerB), growing.ID, PlaceCropOrderInput{Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.PlaceCropOrder(ctx, actorOf(f.retailer), growing.ID, PlaceCropOrderInput{Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceCropOrder(ctx, actorOf(f.retailer), growing.ID, PlaceCropOrderInput{Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.PlaceCropOrder(ctx, actorOf(f.retailer), uuid.New(), PlaceCropOrderInput{Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListIsScopedByRole(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	ctx := context.Background()

	page, err := f.svc.List(ctx, actorOf(f.farmerA), ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, tree.children[0].ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, actorOf(f.retailer), ListFilter{TopLevelOnly: true}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, tree.parent.ID, page.Items[0].ID)

	page, err = f.svc.List(ctx, actorOf(f.distributor), ListFilter{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(ctx, actorOf(f.distributor), ListFilter{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	_, err = f.svc.List(ctx, actorOf(f.distributor), ListFilter{}, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListUnassignedForDistributors(t *testing.T) {
	f := newFixture(t)
	open := f.seedTree(t, nil)
	f.seedTree(t, &f.distributor.ID)

	page, err := f.svc.List(context.Background(), actorOf(f.distributor), ListFilter{Unassigned: true}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, open.parent.ID, page.Items[0].ID)
}

func TestDetailAccess(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	outsider := dbtest.User(t, f.client.DB(), enums.UserRoleRetailer, "outsider")
	ctx := context.Background()

	detail, err := f.svc.Detail(ctx, actorOf(f.retailer), tree.parent.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Children, 2)
	require.NotNil(t, detail.Delivery)
	assert.Equal(t, tree.delivery.TrackingNumber, detail.Delivery.TrackingNumber)

	childDetail, err := f.svc.Detail(ctx, actorOf(f.farmerB), tree.children[1].ID)
	require.NoError(t, err)
	require.NotNil(t, childDetail.Delivery)
	assert.Equal(t, tree.delivery.ID, childDetail.Delivery.ID)

	_, err = f.svc.Detail(ctx, actorOf(f.farmerA), tree.children[1].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Detail(ctx, actorOf(outsider), tree.parent.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Detail(ctx, actorOf(f.retailer), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTrackingReturnsCanonicalDelivery(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	later := models.Delivery{
		OrderID:        tree.parent.ID,
		Status:         enums.DeliveryStatusScheduled,
		ScheduledDate:  time.Now().UTC().AddDate(0, 0, 5),
		TrackingNumber: "HL-LATER",
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, f.client.DB().Create(&later).Error)

	tracking, err := f.svc.Tracking(context.Background(), actorOf(f.retailer), tree.parent.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.delivery.ID, tracking.Delivery.ID)
	assert.Equal(t, enums.OrderStatusPending, tracking.OrderStatus)
}

func TestUpdatesSince(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	ctx := context.Background()
	mark := time.Now().UTC()
	time.Sleep(5 * time.Millisecond)

	updates, err := f.svc.UpdatesSince(ctx, actorOf(f.retailer), UpdateCursor{UpdatedAt: mark}, 25)
	require.NoError(t, err)
	assert.Empty(t, updates)

	_, err = f.svc.Transition(ctx, actorOf(f.distributor), tree.parent.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)

	updates, err = f.svc.UpdatesSince(ctx, actorOf(f.farmerA), UpdateCursor{UpdatedAt: mark}, 25)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, tree.children[0].ID, updates[0].ID)
	assert.Equal(t, enums.OrderStatusProcessing, updates[0].Status)
}

func TestUpdatesSincePagesThroughSharedTimestamp(t *testing.T) {
	f := newFixture(t)
	tree := f.seedTree(t, &f.distributor.ID)
	ctx := context.Background()
	mark := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	stamp := mark.Add(30 * time.Second)
	require.NoError(t, f.client.DB().Model(&models.Order{}).
		Where("retailer_id = ?", f.retailer.ID).
		UpdateColumn("updated_at", stamp).Error)

	seen := map[uuid.UUID]bool{}
	cursor := UpdateCursor{UpdatedAt: mark}
	for page := 0; page < 5; page++ {
		updates, err := f.svc.UpdatesSince(ctx, actorOf(f.retailer), cursor, 2)
		require.NoError(t, err)
		if len(updates) == 0 {
			break
		}
		for _, update := range updates {
			assert.False(t, seen[update.ID], "order %s delivered twice", update.ID)
			seen[update.ID] = true
		}
		cursor = CursorOf(updates[len(updates)-1])
	}

	assert.Len(t, seen, 3)
	assert.True(t, seen[tree.parent.ID])
	for _, child := range tree.children {
		assert.True(t, seen[child.ID])
	}
}

func TestCanTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(enums.OrderStatusPending, enums.OrderStatusProcessing))
	assert.True(t, CanTransition(enums.OrderStatusPending, enums.OrderStatusCancelled))
	assert.True(t, CanTransition(enums.OrderStatusProcessing, enums.OrderStatusCompleted))
	assert.True(t, CanTransition(enums.OrderStatusProcessing, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusPending, enums.OrderStatusCompleted))
	assert.False(t, CanTransition(enums.OrderStatusCompleted, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusCancelled, enums.OrderStatusPending))
}
