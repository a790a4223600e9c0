package controllers

import (
	"net/http"
	"strings"

	"github.com/harvestlink/harvestlink-backend/api/responses"
	"github.com/harvestlink/harvestlink-backend/api/validators"
	"github.com/harvestlink/harvestlink-backend/internal/crops"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

// CropList lists the farmer's own crops, or crops ready for harvest for
// everyone else. ?status= narrows the farmer view.
func CropList(svc crops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var filter crops.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCropStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		list, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CropGet(svc crops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		cropID, err := validators.ParseUUIDParam(r, "cropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		crop, err := svc.Get(r.Context(), actor, cropID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, crop)
	}
}

// CropCreate accepts JSON or a multipart form with an optional image.
func CropCreate(svc crops.Service, images ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var input crops.CropInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		image, thumb, err := storeImage(r, images)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ImageURL, input.ThumbnailURL = image, thumb

		crop, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			discardImage(r, images, logg, image, thumb)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "crop added", crop)
	}
}

func CropUpdate(svc crops.Service, images ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		cropID, err := validators.ParseUUIDParam(r, "cropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input crops.CropInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		image, thumb, err := storeImage(r, images)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ImageURL, input.ThumbnailURL = image, thumb

		crop, err := svc.Update(r.Context(), actor, cropID, input)
		if err != nil {
			discardImage(r, images, logg, image, thumb)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, crop)
	}
}

func CropDelete(svc crops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		cropID, err := validators.ParseUUIDParam(r, "cropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, cropID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "crop deleted", nil)
	}
}

// CropStatus advances the crop lifecycle.
func CropStatus(svc crops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		cropID, err := validators.ParseUUIDParam(r, "cropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input crops.StatusInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseCropStatus(input.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid crop status"))
			return
		}
		crop, err := svc.UpdateStatus(r.Context(), actor, cropID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, crop)
	}
}

// CropPlaceOrder buys directly from a ready crop.
func CropPlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		cropID, err := validators.ParseUUIDParam(r, "cropId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input orders.PlaceCropOrderInput
		if err := validators.DecodeBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.PlaceCropOrder(r.Context(), actor, cropID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "order placed", detail)
	}
}
