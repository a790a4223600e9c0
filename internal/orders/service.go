package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
	"github.com/harvestlink/harvestlink-backend/pkg/metrics"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
	"github.com/harvestlink/harvestlink-backend/pkg/pagination"
)

// Service exposes order fulfillment and role-scoped order views.
type Service interface {
	Transition(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	Claim(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	PlaceCropOrder(ctx context.Context, actor auth.Actor, cropID uuid.UUID, input PlaceCropOrderInput) (*OrderDetailDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter, params pagination.Params) (pagination.Page[OrderDTO], error)
	Detail(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetailDTO, error)
	Tracking(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*TrackingDTO, error)
	UpdatesSince(ctx context.Context, actor auth.Actor, after UpdateCursor, limit int) ([]OrderDTO, error)
}

// CropStockFactory binds the crop store to a transaction.
type CropStockFactory func(tx *gorm.DB) CropStock

type service struct {
	repo    Repository
	tx      txRunner
	crops   CropStockFactory
	outbox  outbox.Emitter
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, tx txRunner, crops CropStockFactory, emitter outbox.Emitter, domainMetrics *metrics.DomainMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if crops == nil {
		return nil, errors.New("crop stock factory required")
	}
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repo,
		tx:      tx,
		crops:   crops,
		outbox:  emitter,
		metrics: domainMetrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Transition moves a top-level order to status. Children follow with the
// same status and completion time, and the canonical delivery takes the
// derived delivery status. Everything commits together with the outbox event.
func (s *service) Transition(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", status)
	}

	var (
		updated models.Order
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapNotFound(err, "order not found")
		}
		if order.IsChild() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "child orders follow their parent order").
				WithDetails(map[string]any{"parent_order_id": order.ParentOrderID})
		}
		if err := authorizeTransition(actor, order, status); err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(from, status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, status).
				WithDetails(map[string]any{"from": from, "to": status})
		}

		var completedAt *time.Time
		if status == enums.OrderStatusCompleted {
			now := s.now()
			completedAt = &now
		}
		ok, err := repo.UpdateStatus(ctx, order.ID, from, status, completedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		children, err := repo.FindChildren(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load child orders")
		}
		if len(children) > 0 {
			if _, err := repo.UpdateChildrenStatus(ctx, order.ID, status, completedAt); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cascade child orders")
			}
		}

		deliveryID, err := s.cascadeDelivery(ctx, repo, order.ID, status, completedAt)
		if err != nil {
			return err
		}

		event := outbox.OrderStatusChangedEvent{
			OrderID:       order.ID,
			From:          from,
			To:            status,
			ChildOrderIDs: orderIDs(children),
			DeliveryID:    deliveryID,
			CompletedAt:   completedAt,
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data:          event,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status event")
		}

		reloaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		updated = *reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(from.String(), status.String())
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"from": from.String(),
		"to":   status.String(),
	})
	s.logg.Info(logCtx, "order status changed")

	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) cascadeDelivery(ctx context.Context, repo Repository, orderID uuid.UUID, status enums.OrderStatus, completedAt *time.Time) (*uuid.UUID, error) {
	target, ok := deliveryStatusFor(status)
	if !ok {
		return nil, nil
	}
	delivery, err := repo.FindCanonicalDelivery(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
	}
	var deliveredAt *time.Time
	if target == enums.DeliveryStatusCompleted {
		deliveredAt = completedAt
	}
	if err := repo.UpdateDeliveryStatus(ctx, delivery.ID, target, deliveredAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery status")
	}
	id := delivery.ID
	return &id, nil
}

// authorizeTransition admits the assigned distributor, or the retailer
// cancelling their own pending order.
func authorizeTransition(actor auth.Actor, order *models.Order, status enums.OrderStatus) error {
	switch actor.Role {
	case enums.UserRoleDistributor:
		if sameID(order.DistributorID, actor.UserID) {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this distributor")
	case enums.UserRoleRetailer:
		if !sameID(order.RetailerID, actor.UserID) || status != enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "retailers may only cancel their own orders")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled by the retailer").
				WithDetails(map[string]any{"status": order.Status})
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this order")
}

// Claim assigns an unassigned pending order, and its children, to the
// calling distributor.
func (s *service) Claim(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if !actor.Is(enums.UserRoleDistributor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only distributors can claim orders")
	}
	var updated models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapNotFound(err, "order not found")
		}
		if order.IsChild() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "child orders follow their parent order")
		}
		if order.DistributorID != nil {
			if *order.DistributorID == actor.UserID {
				updated = *order
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a distributor")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot claim a %s order", order.Status)
		}
		ok, err := repo.AssignDistributor(ctx, order.ID, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign distributor")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already claimed")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderClaimed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data:          outbox.OrderClaimedEvent{OrderID: order.ID, DistributorID: actor.UserID},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order claimed event")
		}
		reloaded, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		updated = *reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

// PlaceCropOrder buys quantity units of a ready crop. The crop is decremented
// with a guarded update and turns sold_out when it reaches zero.
func (s *service) PlaceCropOrder(ctx context.Context, actor auth.Actor, cropID uuid.UUID, input PlaceCropOrderInput) (*OrderDetailDTO, error) {
	if !actor.Is(enums.UserRoleRetailer) && !actor.Is(enums.UserRoleDistributor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only retailers and distributors can order crops")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"quantity": input.Quantity})
	}

	var detail OrderDetailDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		crops := s.crops(tx)

		crop, err := crops.FindByID(ctx, cropID)
		if err != nil {
			return mapNotFound(err, "crop not found")
		}
		if crop.Status != enums.CropStatusReadyForHarvest {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "crop is %s and cannot be ordered", crop.Status).
				WithDetails(map[string]any{"crop_id": crop.ID, "status": crop.Status})
		}
		ok, err := crops.Decrement(ctx, crop.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement crop quantity")
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "insufficient quantity for %s", crop.Name).
				WithDetails(map[string]any{
					"crop_id":   crop.ID,
					"requested": input.Quantity,
					"available": crop.Quantity,
				})
		}

		subtotal := crop.PricePerUnit.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2)
		farmerID := crop.FarmerID
		buyerID := actor.UserID
		order := &models.Order{
			FarmerID:    &farmerID,
			Status:      enums.OrderStatusPending,
			TotalAmount: subtotal,
			Notes:       input.Notes,
		}
		if actor.Is(enums.UserRoleRetailer) {
			order.RetailerID = &buyerID
		} else {
			order.DistributorID = &buyerID
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		items := []models.OrderItem{{
			OrderID:      order.ID,
			CropID:       &crop.ID,
			Name:         crop.Name,
			Quantity:     input.Quantity,
			PricePerUnit: crop.PricePerUnit,
			Subtotal:     subtotal,
		}}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order item")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: outbox.OrderPlacedEvent{
				OrderID:  order.ID,
				CropID:   crop.ID,
				FarmerID: crop.FarmerID,
				Quantity: input.Quantity,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed event")
		}

		detail = OrderDetailDTO{
			OrderDTO: FromModel(*order),
			Items:    itemsFromModels(items),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter, params pagination.Params) (pagination.Page[OrderDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ScopeFor(actor), filter, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page := pagination.BuildPage(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return pagination.Page[OrderDTO]{
		Items:      fromModels(page.Items),
		NextCursor: page.NextCursor,
	}, nil
}

func (s *service) Detail(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetailDTO, error) {
	order, parent, err := s.loadVisible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
	}
	detail := &OrderDetailDTO{
		OrderDTO: FromModel(*order),
		Items:    itemsFromModels(items),
	}
	if !order.IsChild() {
		children, err := s.repo.FindChildren(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load child orders")
		}
		if len(children) > 0 {
			detail.Children = fromModels(children)
		}
	}
	delivery, err := s.deliveryFor(ctx, order, parent)
	if err != nil {
		return nil, err
	}
	if delivery != nil {
		dto := DeliveryFromModel(*delivery)
		detail.Delivery = &dto
	}
	return detail, nil
}

func (s *service) Tracking(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*TrackingDTO, error) {
	order, parent, err := s.loadVisible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	delivery, err := s.deliveryFor(ctx, order, parent)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no delivery scheduled for order")
	}
	return &TrackingDTO{
		OrderID:     order.ID,
		OrderStatus: order.Status,
		Delivery:    DeliveryFromModel(*delivery),
	}, nil
}

// UpdatesSince returns the actor's orders changed after the cursor, oldest first.
func (s *service) UpdatesSince(ctx context.Context, actor auth.Actor, after UpdateCursor, limit int) ([]OrderDTO, error) {
	rows, err := s.repo.ListUpdatedSince(ctx, ScopeFor(actor), after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order updates")
	}
	return fromModels(rows), nil
}

// loadVisible loads an order the actor takes part in, directly or through
// its parent. parent is nil for top-level orders.
func (s *service) loadVisible(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, *models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, nil, mapNotFound(err, "order not found")
	}
	var parent *models.Order
	if order.ParentOrderID != nil {
		parent, err = s.repo.FindOrder(ctx, *order.ParentOrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent order")
		}
	}
	if participates(actor, order) || (parent != nil && participates(actor, parent)) {
		return order, parent, nil
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
}

// deliveryFor returns the canonical delivery of the order, falling back to
// the parent's for per-farmer orders.
func (s *service) deliveryFor(ctx context.Context, order, parent *models.Order) (*models.Delivery, error) {
	delivery, err := s.repo.FindCanonicalDelivery(ctx, order.ID)
	if err == nil {
		return delivery, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
	}
	if parent == nil {
		return nil, nil
	}
	delivery, err = s.repo.FindCanonicalDelivery(ctx, parent.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
	}
	return delivery, nil
}

func participates(actor auth.Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.UserRoleFarmer:
		return sameID(order.FarmerID, actor.UserID)
	case enums.UserRoleRetailer:
		return sameID(order.RetailerID, actor.UserID)
	case enums.UserRoleDistributor:
		return sameID(order.DistributorID, actor.UserID)
	}
	return false
}

func sameID(candidate *uuid.UUID, id uuid.UUID) bool {
	return candidate != nil && *candidate == id
}

func orderIDs(rows []models.Order) []uuid.UUID {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
