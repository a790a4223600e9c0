package dashboard

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harvestlink/harvestlink-backend/internal/inventory"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
)

const recentOrdersLimit = 5

type cropCounter interface {
	CountByStatus(ctx context.Context, farmerID uuid.UUID) (map[enums.CropStatus]int64, error)
}

type inventoryReader interface {
	CountItems(ctx context.Context, distributorID uuid.UUID) (int64, error)
	ListLowStock(ctx context.Context, distributorID uuid.UUID) ([]models.InventoryItem, error)
	ListRestocks(ctx context.Context, distributorID uuid.UUID, status *enums.RestockStatus) ([]models.RestockOrder, error)
}

type deliveryCounter interface {
	CountByStatus(ctx context.Context, distributorID uuid.UUID) (map[enums.DeliveryStatus]int64, error)
}

type cartCounter interface {
	CountActiveItems(ctx context.Context, retailerID uuid.UUID) (int64, error)
}

// Service builds role-scoped dashboards.
type Service interface {
	Get(ctx context.Context, actor auth.Actor) (*DashboardDTO, error)
}

type service struct {
	orders     orders.Repository
	crops      cropCounter
	inventory  inventoryReader
	deliveries deliveryCounter
	carts      cartCounter
}

func NewService(ordersRepo orders.Repository, crops cropCounter, inv inventoryReader, deliveries deliveryCounter, carts cartCounter) (Service, error) {
	if ordersRepo == nil || crops == nil || inv == nil || deliveries == nil || carts == nil {
		return nil, errors.New("dashboard sources required")
	}
	return &service{
		orders:     ordersRepo,
		crops:      crops,
		inventory:  inv,
		deliveries: deliveries,
		carts:      carts,
	}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor) (*DashboardDTO, error) {
	out := &DashboardDTO{Role: actor.Role}
	var err error
	switch actor.Role {
	case enums.UserRoleFarmer:
		out.Farmer, err = s.farmer(ctx, actor)
	case enums.UserRoleDistributor:
		out.Distributor, err = s.distributor(ctx, actor)
	case enums.UserRoleRetailer:
		out.Retailer, err = s.retailer(ctx, actor)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build dashboard")
	}
	return out, nil
}

func (s *service) farmer(ctx context.Context, actor auth.Actor) (*FarmerDashboard, error) {
	scope := orders.ScopeFor(actor)
	out := &FarmerDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.crops.CountByStatus(gctx, actor.UserID)
		out.CropsByStatus = statusCounts(enums.AllCropStatuses(), counts)
		return err
	})
	g.Go(func() error {
		counts, err := s.orders.CountByStatus(gctx, scope)
		out.OrdersByStatus = statusCounts(enums.AllOrderStatuses(), counts)
		return err
	})
	g.Go(func() error {
		var err error
		out.Revenue, err = s.orders.SumCompleted(gctx, scope)
		return err
	})
	g.Go(func() error {
		rows, err := s.orders.Recent(gctx, scope, recentOrdersLimit)
		out.RecentOrders = toOrderDTOs(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) distributor(ctx context.Context, actor auth.Actor) (*DistributorDashboard, error) {
	scope := orders.ScopeFor(actor)
	pending := enums.RestockStatusPending
	out := &DistributorDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.orders.CountByStatus(gctx, scope)
		out.OrdersByStatus = statusCounts(enums.AllOrderStatuses(), counts)
		return err
	})
	g.Go(func() error {
		var err error
		out.UnassignedOrders, err = s.orders.CountUnassignedPending(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.InventoryItems, err = s.inventory.CountItems(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		rows, err := s.inventory.ListLowStock(gctx, actor.UserID)
		out.LowStockItems = make([]inventory.ItemDTO, 0, len(rows))
		for i := range rows {
			out.LowStockItems = append(out.LowStockItems, inventory.ItemFromModel(&rows[i]))
		}
		return err
	})
	g.Go(func() error {
		rows, err := s.inventory.ListRestocks(gctx, actor.UserID, &pending)
		out.PendingRestocks = make([]inventory.RestockDTO, 0, len(rows))
		for i := range rows {
			out.PendingRestocks = append(out.PendingRestocks, inventory.RestockFromModel(&rows[i]))
		}
		return err
	})
	g.Go(func() error {
		counts, err := s.deliveries.CountByStatus(gctx, actor.UserID)
		out.DeliveriesByStatus = statusCounts(enums.AllDeliveryStatuses(), counts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) retailer(ctx context.Context, actor auth.Actor) (*RetailerDashboard, error) {
	scope := orders.ScopeFor(actor)
	out := &RetailerDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.orders.CountByStatus(gctx, scope)
		out.OrdersByStatus = statusCounts(enums.AllOrderStatuses(), counts)
		return err
	})
	g.Go(func() error {
		var err error
		out.TotalSpent, err = s.orders.SumCompleted(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		out.ActiveCartItems, err = s.carts.CountActiveItems(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		rows, err := s.orders.Recent(gctx, scope, recentOrdersLimit)
		out.RecentOrders = toOrderDTOs(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func toOrderDTOs(rows []models.Order) []orders.OrderDTO {
	out := make([]orders.OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, orders.FromModel(row))
	}
	return out
}
