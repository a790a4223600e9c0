package deliveries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusInput is the body of a delivery status update.
type StatusInput struct {
	Status string `json:"status" form:"status" validate:"required"`
}

// Service lets the assigned distributor report delivery progress. Completion
// and cancellation follow the order itself.
type Service interface {
	UpdateStatus(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, status enums.DeliveryStatus) (*orders.DeliveryDTO, error)
}

var transitions = map[enums.DeliveryStatus][]enums.DeliveryStatus{
	enums.DeliveryStatusScheduled: {enums.DeliveryStatusInTransit, enums.DeliveryStatusFailed},
	enums.DeliveryStatusInTransit: {enums.DeliveryStatusFailed},
}

// CanTransition reports whether a distributor may move a delivery between
// the two statuses.
func CanTransition(from, to enums.DeliveryStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
}

func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, errors.New("deliveries repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	return &service{repo: repo, tx: tx, outbox: emitter}, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, deliveryID uuid.UUID, status enums.DeliveryStatus) (*orders.DeliveryDTO, error) {
	if !actor.Is(enums.UserRoleDistributor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only distributors can update deliveries")
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown delivery status %q", status)
	}

	var updated orders.DeliveryDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := repo.FindForUpdate(ctx, deliveryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery")
		}
		order, err := repo.FindOrder(ctx, delivery.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery order")
		}
		if order.DistributorID == nil || *order.DistributorID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery belongs to another distributor")
		}
		from := delivery.Status
		if !CanTransition(from, status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move delivery from %s to %s", from, status).
				WithDetails(map[string]any{"from": from, "to": status})
		}
		ok, err := repo.UpdateStatus(ctx, delivery.ID, from, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery status changed concurrently")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: outbox.DeliveryStatusChangedEvent{
				DeliveryID: delivery.ID,
				OrderID:    delivery.OrderID,
				From:       from,
				To:         status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit delivery event")
		}
		delivery.Status = status
		delivery.UpdatedAt = time.Now().UTC()
		updated = orders.DeliveryFromModel(*delivery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
