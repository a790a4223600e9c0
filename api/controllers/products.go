package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/harvestlink/harvestlink-backend/api/responses"
	"github.com/harvestlink/harvestlink-backend/api/validators"
	product "github.com/harvestlink/harvestlink-backend/internal/products"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

const maxSearchLength = 100

// ProductList serves the farmer's own catalog or the retailer browse view.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		query := r.URL.Query()
		filters := product.ListFilters{
			Query: validators.SanitizeString(query.Get("q"), maxSearchLength),
		}
		if category := strings.TrimSpace(query.Get("category")); category != "" {
			filters.Category = &category
		}
		if raw := strings.TrimSpace(query.Get("farmer_id")); raw != "" {
			farmerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid farmer_id"))
				return
			}
			filters.FarmerID = &farmerID
		}

		list, err := svc.ListProducts(r.Context(), actor, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func ProductCreate(svc product.Service, images ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var input product.ProductInput
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

		dto, err := svc.CreateProduct(r.Context(), actor, input)
		if err != nil {
			discardImage(r, images, logg, image, thumb)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "product added", dto)
	}
}

func ProductUpdate(svc product.Service, images ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input product.ProductInput
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

		dto, err := svc.UpdateProduct(r.Context(), actor, productID, input)
		if err != nil {
			discardImage(r, images, logg, image, thumb)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), actor, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "product deleted", nil)
	}
}
