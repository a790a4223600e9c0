package crops

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers crop listings and their lifecycle.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CropInput) (*CropDTO, error)
	Update(ctx context.Context, actor auth.Actor, cropID uuid.UUID, input CropInput) (*CropDTO, error)
	Delete(ctx context.Context, actor auth.Actor, cropID uuid.UUID) error
	Get(ctx context.Context, actor auth.Actor, cropID uuid.UUID) (*CropDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]CropDTO, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, cropID uuid.UUID, status enums.CropStatus) (*CropDTO, error)
}

// Lifecycle steps a farmer may take. sold_out is only reached through orders.
var lifecycle = map[enums.CropStatus]enums.CropStatus{
	enums.CropStatusGrowing:         enums.CropStatusReadyForHarvest,
	enums.CropStatusReadyForHarvest: enums.CropStatusHarvested,
}

// CanAdvance reports whether a farmer may move a crop from one status to another.
func CanAdvance(from, to enums.CropStatus) bool {
	next, ok := lifecycle[from]
	return ok && next == to
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
	now    func() time.Time
}

func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, errors.New("crops repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CropInput) (*CropDTO, error) {
	if !actor.Is(enums.UserRoleFarmer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can list crops")
	}
	crop := &models.Crop{
		FarmerID: actor.UserID,
		Status:   enums.CropStatusGrowing,
	}
	if err := applyInput(crop, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, crop); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create crop")
	}
	dto := FromModel(crop)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, cropID uuid.UUID, input CropInput) (*CropDTO, error) {
	var updated CropDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		crop, err := s.loadOwned(ctx, repo, actor, cropID)
		if err != nil {
			return err
		}
		if err := applyInput(crop, input); err != nil {
			return err
		}
		if err := repo.Save(ctx, crop); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update crop")
		}
		updated = FromModel(crop)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, cropID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.loadOwned(ctx, repo, actor, cropID); err != nil {
			return err
		}
		ordered, err := repo.HasOrders(ctx, cropID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check crop orders")
		}
		if ordered {
			return pkgerrors.New(pkgerrors.CodeConflict, "crop has orders and cannot be deleted")
		}
		if err := repo.Delete(ctx, cropID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete crop")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, actor auth.Actor, cropID uuid.UUID) (*CropDTO, error) {
	crop, err := s.repo.FindByID(ctx, cropID)
	if err != nil {
		return nil, notFound(err)
	}
	if crop.FarmerID != actor.UserID && crop.Status != enums.CropStatusReadyForHarvest {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "crop not found")
	}
	dto := FromModel(crop)
	return &dto, nil
}

// List returns the farmer's own crops, or the crops buyers can order for
// everyone else.
func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]CropDTO, error) {
	var (
		rows []models.Crop
		err  error
	)
	if actor.Is(enums.UserRoleFarmer) {
		rows, err = s.repo.ListByFarmer(ctx, actor.UserID, filter.Status)
	} else {
		rows, err = s.repo.ListAvailable(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list crops")
	}
	return fromModels(rows), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, cropID uuid.UUID, status enums.CropStatus) (*CropDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid crop status")
	}
	var updated CropDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		crop, err := s.loadOwned(ctx, repo, actor, cropID)
		if err != nil {
			return err
		}
		from := crop.Status
		if !CanAdvance(from, status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "crop cannot move from %s to %s", from, status).
				WithDetails(map[string]any{"from": from, "to": status})
		}

		var harvestDate *time.Time
		if status == enums.CropStatusHarvested {
			now := s.now()
			harvestDate = &now
		}
		ok, err := repo.UpdateStatus(ctx, cropID, from, status, harvestDate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update crop status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "crop status changed concurrently")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCropStatusChanged,
			AggregateType: enums.AggregateCrop,
			AggregateID:   cropID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: outbox.CropStatusChangedEvent{
				CropID:   cropID,
				FarmerID: crop.FarmerID,
				From:     from,
				To:       status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit crop status event")
		}

		crop.Status = status
		crop.HarvestDate = harvestDate
		updated = FromModel(crop)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) loadOwned(ctx context.Context, repo *Repository, actor auth.Actor, cropID uuid.UUID) (*models.Crop, error) {
	if !actor.Is(enums.UserRoleFarmer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can manage crops")
	}
	crop, err := repo.FindByID(ctx, cropID)
	if err != nil {
		return nil, notFound(err)
	}
	if crop.FarmerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "crop belongs to another farmer")
	}
	return crop, nil
}

func applyInput(crop *models.Crop, input CropInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	unit, err := enums.ParseUnit(input.Unit)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.PricePerUnit.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_per_unit must not be negative")
	}
	if input.PlantingDate.IsZero() || input.ExpectedHarvestDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "planting_date and expected_harvest_date are required")
	}
	if input.ExpectedHarvestDate.Before(input.PlantingDate.Time) {
		return pkgerrors.New(pkgerrors.CodeValidation, "expected_harvest_date must not precede planting_date")
	}
	var season *enums.PlantingSeason
	if input.PlantingSeason != nil && strings.TrimSpace(*input.PlantingSeason) != "" {
		parsed, err := enums.ParsePlantingSeason(*input.PlantingSeason)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		season = &parsed
	}

	crop.Name = name
	crop.Variety = input.Variety
	crop.Quantity = input.Quantity
	crop.Unit = unit
	crop.PricePerUnit = input.PricePerUnit.Round(2)
	crop.PlantingDate = input.PlantingDate.Time
	crop.ExpectedHarvestDate = input.ExpectedHarvestDate.Time
	crop.PlantingSeason = season
	crop.Description = input.Description
	if input.ImageURL != nil {
		crop.ImageURL = input.ImageURL
		crop.ThumbnailURL = input.ThumbnailURL
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "crop not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load crop")
}
