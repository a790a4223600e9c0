package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
)

// RestockService opens and settles replenishment requests.
type RestockService interface {
	Reorder(ctx context.Context, actor auth.Actor, itemID uuid.UUID) (*RestockDTO, error)
	Receive(ctx context.Context, actor auth.Actor, restockID uuid.UUID) (*RestockDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, restockID uuid.UUID) (*RestockDTO, error)
	List(ctx context.Context, actor auth.Actor, status *enums.RestockStatus) ([]RestockDTO, error)
	ReorderLowStock(ctx context.Context, limit int) (int, error)
}

type restockService struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewRestockService(repo *Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (RestockService, error) {
	if repo == nil {
		return nil, errors.New("inventory repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &restockService{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Reorder opens a pending restock for the item's reorder quantity. An item
// carries at most one open restock.
func (s *restockService) Reorder(ctx context.Context, actor auth.Actor, itemID uuid.UUID) (*RestockDTO, error) {
	var created RestockDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := loadItem(ctx, repo, actor, itemID)
		if err != nil {
			return err
		}
		restock, err := s.open(ctx, tx, item, &actor, false)
		if err != nil {
			return err
		}
		created = RestockFromModel(restock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *restockService) open(ctx context.Context, tx *gorm.DB, item *models.InventoryItem, actor *auth.Actor, automatic bool) (*models.RestockOrder, error) {
	repo := s.repo.WithTx(tx)
	if item.ReorderQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item has no reorder quantity")
	}
	open, err := repo.HasOpenRestock(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open restock")
	}
	if open {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a restock is already pending for this item")
	}

	restock := &models.RestockOrder{
		DistributorID:   item.DistributorID,
		InventoryItemID: item.ID,
		SupplierID:      item.SupplierID,
		Quantity:        item.ReorderQuantity,
		Status:          enums.RestockStatusPending,
		RequestedAt:     s.now(),
	}
	if err := repo.CreateRestock(ctx, restock); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a restock is already pending for this item")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create restock order")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventRestockRequested,
		AggregateType: enums.AggregateRestockOrder,
		AggregateID:   restock.ID,
		Data: outbox.RestockEvent{
			RestockOrderID:  restock.ID,
			InventoryItemID: item.ID,
			Quantity:        restock.Quantity,
			Automatic:       automatic,
		},
	}
	if actor != nil {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit restock event")
	}
	return restock, nil
}

// Receive settles a pending restock and adds its quantity to the item.
func (s *restockService) Receive(ctx context.Context, actor auth.Actor, restockID uuid.UUID) (*RestockDTO, error) {
	var received RestockDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		restock, err := loadRestock(ctx, repo, actor, restockID)
		if err != nil {
			return err
		}
		now := s.now()
		ok, err := repo.UpdateRestockStatus(ctx, restockID, enums.RestockStatusReceived, &now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "receive restock")
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "restock order is %s", restock.Status)
		}
		if _, err := repo.AdjustQuantity(ctx, restock.InventoryItemID, restock.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add restocked quantity")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRestockReceived,
			AggregateType: enums.AggregateRestockOrder,
			AggregateID:   restock.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: outbox.RestockEvent{
				RestockOrderID:  restock.ID,
				InventoryItemID: restock.InventoryItemID,
				Quantity:        restock.Quantity,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit restock event")
		}
		restock.Status = enums.RestockStatusReceived
		restock.ReceivedAt = &now
		received = RestockFromModel(restock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &received, nil
}

func (s *restockService) Cancel(ctx context.Context, actor auth.Actor, restockID uuid.UUID) (*RestockDTO, error) {
	var cancelled RestockDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		restock, err := loadRestock(ctx, repo, actor, restockID)
		if err != nil {
			return err
		}
		ok, err := repo.UpdateRestockStatus(ctx, restockID, enums.RestockStatusCancelled, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel restock")
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "restock order is %s", restock.Status)
		}
		restock.Status = enums.RestockStatusCancelled
		cancelled = RestockFromModel(restock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

func (s *restockService) List(ctx context.Context, actor auth.Actor, status *enums.RestockStatus) ([]RestockDTO, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRestocks(ctx, actor.UserID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list restock orders")
	}
	out := make([]RestockDTO, 0, len(rows))
	for i := range rows {
		out = append(out, RestockFromModel(&rows[i]))
	}
	return out, nil
}

// ReorderLowStock opens restocks for up to limit low-stock items that have
// none pending. Each item runs in its own transaction; failures are collected
// and the rest of the batch continues.
func (s *restockService) ReorderLowStock(ctx context.Context, limit int) (int, error) {
	items, err := s.repo.ListReorderCandidates(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reorder candidates")
	}
	created := 0
	var errs error
	for i := range items {
		item := items[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.open(ctx, tx, &item, nil, true)
			return err
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		created++
		s.logg.Debug(s.logg.WithField(ctx, "inventory_item_id", item.ID.String()), "automatic restock opened")
	}
	return created, errs
}

func loadRestock(ctx context.Context, repo *Repository, actor auth.Actor, restockID uuid.UUID) (*models.RestockOrder, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	restock, err := repo.FindRestock(ctx, restockID)
	if err != nil {
		return nil, mapNotFound(err, "restock order not found")
	}
	if restock.DistributorID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "restock order belongs to another distributor")
	}
	return restock, nil
}
