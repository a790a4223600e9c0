package controllers

import (
	"context"
	"net/http"

	"github.com/harvestlink/harvestlink-backend/api/middleware"
	"github.com/harvestlink/harvestlink-backend/api/responses"
	"github.com/harvestlink/harvestlink-backend/internal/uploads"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

// ImageStore persists an optional multipart image and removes it again when
// the write it belongs to fails.
type ImageStore interface {
	FromRequest(ctx context.Context, r *http.Request) (*uploads.Stored, error)
	Remove(urls ...*string) error
}

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return auth.Actor{}, false
	}
	return actor, true
}

// storeImage saves the request's image, if any, and returns its URLs.
func storeImage(r *http.Request, store ImageStore) (*string, *string, error) {
	if store == nil {
		return nil, nil, nil
	}
	stored, err := store.FromRequest(r.Context(), r)
	if err != nil || stored == nil {
		return nil, nil, err
	}
	image, thumb := stored.ImageURL, stored.ThumbnailURL
	return &image, &thumb, nil
}

func discardImage(r *http.Request, store ImageStore, logg *logger.Logger, urls ...*string) {
	if store == nil {
		return
	}
	if err := store.Remove(urls...); err != nil && logg != nil {
		logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "upload cleanup failed")
	}
}
