package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/internal/cart"
	"github.com/harvestlink/harvestlink-backend/internal/checkout/helpers"
	"github.com/harvestlink/harvestlink-backend/internal/checkout/reservation"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	pkgcheckout "github.com/harvestlink/harvestlink-backend/pkg/checkout"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
	"github.com/harvestlink/harvestlink-backend/pkg/metrics"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockRequest) ([]reservation.StockResult, error)
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockRequest) ([]reservation.StockResult, error) {
	return reservation.ReserveStock(ctx, tx, requests)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, actor auth.Actor, input CheckoutInput) (*Result, error)
}

// CheckoutInput selects what to buy. Without lines the retailer's active
// cart is checked out.
type CheckoutInput struct {
	Lines           []pkgcheckout.LineInput `json:"items,omitempty" form:"items"`
	DeliveryAddress *string                 `json:"delivery_address,omitempty" form:"delivery_address" validate:"omitempty,max=255"`
	Notes           *string                 `json:"notes,omitempty" form:"notes" validate:"omitempty,max=500"`
}

// Result is the order tree a checkout produced.
type Result struct {
	Order    orders.OrderDTO    `json:"order"`
	Children []orders.OrderDTO  `json:"children"`
	Delivery orders.DeliveryDTO `json:"delivery"`
}

// Options tunes delivery scheduling.
type Options struct {
	DeliveryLeadDays int
	TrackingPrefix   string
}

type service struct {
	tx          txRunner
	repo        Repository
	cartRepo    cart.CartRepository
	ordersRepo  orders.Repository
	selector    DistributorSelector
	reservation reservationRunner
	outbox      outbox.Emitter
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	opts        Options
	now         func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	selector DistributorSelector,
	publisher outbox.Emitter,
	domainMetrics *metrics.DomainMetrics,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if selector == nil {
		selector = FirstDistributor{Repo: repo}
	}
	if publisher == nil {
		publisher = outbox.NopEmitter{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if opts.DeliveryLeadDays <= 0 {
		opts.DeliveryLeadDays = 3
	}
	if opts.TrackingPrefix == "" {
		opts.TrackingPrefix = pkgcheckout.DefaultTrackingPrefix
	}
	return &service{
		tx:          tx,
		repo:        repo,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		selector:    selector,
		reservation: reservationEngine{},
		outbox:      publisher,
		metrics:     domainMetrics,
		logg:        logg,
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Execute turns the requested lines into a parent order for the retailer,
// one child order per farmer and a scheduled delivery. Stock is decremented
// with guarded updates and any shortfall rolls the whole checkout back.
func (s *service) Execute(ctx context.Context, actor auth.Actor, input CheckoutInput) (*Result, error) {
	result, err := s.execute(ctx, actor, input)
	s.metrics.Checkout(outcomeOf(err))
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, result.Order.ID.String()), map[string]any{
		"child_orders": len(result.Children),
		"total":        result.Order.TotalAmount.StringFixed(2),
	})
	s.logg.Info(logCtx, "checkout completed")
	return result, nil
}

func (s *service) execute(ctx context.Context, actor auth.Actor, input CheckoutInput) (*Result, error) {
	if !actor.Is(enums.UserRoleRetailer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only retailers can check out")
	}
	useCart := len(input.Lines) == 0
	if !useCart {
		if err := pkgcheckout.ValidateLines(input.Lines); err != nil {
			return nil, err
		}
	}

	var result Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		lines := input.Lines
		var activeCart *models.Cart
		if useCart {
			var err error
			activeCart, lines, err = loadCartLines(ctx, cartRepo, actor.UserID)
			if err != nil {
				return err
			}
		}
		lines = mergeLines(lines)

		retailer, err := repo.FindUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "retailer account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load retailer")
		}
		distributor, err := s.selector.SelectDistributor(ctx, tx)
		if err != nil {
			return err
		}

		address := retailer.Location
		if input.DeliveryAddress != nil && strings.TrimSpace(*input.DeliveryAddress) != "" {
			address = strings.TrimSpace(*input.DeliveryAddress)
		}
		retailerID := retailer.ID
		distributorID := distributor.ID
		parent := &models.Order{
			RetailerID:      &retailerID,
			DistributorID:   &distributorID,
			Status:          enums.OrderStatusPending,
			Notes:           input.Notes,
			DeliveryAddress: &address,
		}
		if err := ordersRepo.CreateOrder(ctx, parent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		priced, err := s.reserve(ctx, tx, lines)
		if err != nil {
			return err
		}
		if err := ordersRepo.CreateItems(ctx, buildItems(parent.ID, priced)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}
		grandTotal := helpers.GrandTotal(priced).Round(2)
		if err := ordersRepo.UpdateTotal(ctx, parent.ID, grandTotal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order total")
		}
		parent.TotalAmount = grandTotal

		children := make([]models.Order, 0)
		for _, group := range helpers.GroupByFarmer(priced) {
			farmerID := group.FarmerID
			child := models.Order{
				FarmerID:        &farmerID,
				RetailerID:      &retailerID,
				DistributorID:   &distributorID,
				ParentOrderID:   &parent.ID,
				Status:          enums.OrderStatusPending,
				TotalAmount:     group.Total.Round(2),
				DeliveryAddress: &address,
			}
			if err := ordersRepo.CreateOrder(ctx, &child); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create farmer order")
			}
			if err := ordersRepo.CreateItems(ctx, buildItems(child.ID, group.Lines)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create farmer order items")
			}
			children = append(children, child)
		}

		now := s.now()
		delivery := &models.Delivery{
			OrderID:         parent.ID,
			Status:          enums.DeliveryStatusScheduled,
			ScheduledDate:   now.AddDate(0, 0, s.opts.DeliveryLeadDays),
			DeliveryAddress: address,
			TrackingNumber:  pkgcheckout.TrackingNumber(s.opts.TrackingPrefix, now),
		}
		if err := ordersRepo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "schedule delivery")
		}

		if activeCart != nil {
			converted, err := cartRepo.MarkConverted(ctx, activeCart.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert cart")
			}
			if !converted {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart already processed")
			}
		}

		childIDs := make([]uuid.UUID, 0, len(children))
		for _, child := range children {
			childIDs = append(childIDs, child.ID)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   parent.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: outbox.CheckoutCompletedEvent{
				OrderID:        parent.ID,
				RetailerID:     retailerID,
				DistributorID:  distributorID,
				ChildOrderIDs:  childIDs,
				TotalAmount:    grandTotal,
				TrackingNumber: delivery.TrackingNumber,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit checkout event")
		}

		result = Result{
			Order:    orders.FromModel(*parent),
			Children: make([]orders.OrderDTO, 0, len(children)),
			Delivery: orders.DeliveryFromModel(*delivery),
		}
		for _, child := range children {
			result.Children = append(result.Children, orders.FromModel(child))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// reserve decrements stock for every line and prices the reserved lines.
// Any line the stock guard rejects fails the checkout.
func (s *service) reserve(ctx context.Context, tx *gorm.DB, lines []pkgcheckout.LineInput) ([]helpers.PricedLine, error) {
	requests := make([]reservation.StockRequest, len(lines))
	for i, line := range lines {
		requests[i] = reservation.StockRequest{ProductID: line.ProductID, Qty: line.Quantity}
	}
	results, err := s.reservation.Reserve(ctx, tx, requests)
	if err != nil {
		return nil, err
	}

	priced := make([]helpers.PricedLine, 0, len(results))
	var rejected []pkgcheckout.LineViolationDetail
	for i, res := range results {
		if !res.Reserved {
			rejected = append(rejected, pkgcheckout.LineViolationDetail{
				Index:     i,
				ProductID: res.ProductID,
				Quantity:  res.Qty,
				Reason:    res.Reason,
			})
			continue
		}
		priced = append(priced, helpers.PricedLine{
			ProductID:    res.ProductID,
			FarmerID:     res.Product.FarmerID,
			Name:         res.Product.Name,
			Quantity:     res.Qty,
			PricePerUnit: res.Product.PricePerUnit,
		})
	}
	if len(rejected) > 0 {
		code := pkgerrors.CodeInsufficientStock
		if results[rejected[0].Index].Product == nil {
			code = pkgerrors.CodeNotFound
		}
		return nil, pkgerrors.New(code, rejected[0].Reason).WithDetails(map[string]any{
			"rejected": rejected,
		})
	}
	return priced, nil
}

func loadCartLines(ctx context.Context, repo cart.CartRepository, retailerID uuid.UUID) (*models.Cart, []pkgcheckout.LineInput, error) {
	active, err := repo.FindActive(ctx, retailerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	cartLines, err := repo.Lines(ctx, active.ID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	if len(cartLines) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	lines := make([]pkgcheckout.LineInput, 0, len(cartLines))
	for _, line := range cartLines {
		lines = append(lines, pkgcheckout.LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return active, lines, nil
}

// mergeLines folds repeated products into one line, keeping first appearance
// order.
func mergeLines(lines []pkgcheckout.LineInput) []pkgcheckout.LineInput {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]pkgcheckout.LineInput, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

func buildItems(orderID uuid.UUID, lines []helpers.PricedLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := line.ProductID
		items = append(items, models.OrderItem{
			OrderID:      orderID,
			ProductID:    &productID,
			Name:         line.Name,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit,
			Subtotal:     line.Subtotal().Round(2),
		})
	}
	return items
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInsufficientStock:
		return "insufficient_stock"
	case pkgerrors.CodeValidation:
		return "invalid"
	case pkgerrors.CodeStateConflict:
		return "no_distributor"
	case pkgerrors.CodeForbidden, pkgerrors.CodeUnauthorized:
		return "denied"
	}
	return "error"
}
