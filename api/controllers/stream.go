package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harvestlink/harvestlink-backend/api/responses"
	"github.com/harvestlink/harvestlink-backend/api/validators"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

const (
	orderUpdateEvent = "order_update"
	eventIDSep       = "_"
)

// StreamOptions tunes the order update stream.
type StreamOptions struct {
	Interval time.Duration
	MaxBatch int
}

// OrderUpdates streams the caller's order changes as server-sent events.
// Each event id is the order's updated_at and id, so a reconnecting client
// resumes from Last-Event-ID. Idle polls emit a keep-alive comment.
func OrderUpdates(svc orders.Service, opts StreamOptions, logg *logger.Logger) http.HandlerFunc {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 25
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		cursor, err := streamCursor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		header := w.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "retry: %d\n\n", opts.Interval.Milliseconds())
		flusher.Flush()

		ctx := logg.WithField(r.Context(), "stream", "order_updates")
		logg.Info(ctx, "order stream opened")
		defer logg.Info(ctx, "order stream closed")

		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			cursor, err = pushUpdates(ctx, w, svc, actor, cursor, opts.MaxBatch)
			if err != nil {
				logg.Error(ctx, "order stream poll failed", err)
				return
			}
			flusher.Flush()

			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// pushUpdates writes one batch and returns the cursor past its last row.
// Rows arrive in (updated_at, id) order, so a full batch resumes inside a
// cascade that shares one timestamp.
func pushUpdates(ctx context.Context, w http.ResponseWriter, svc orders.Service, actor auth.Actor, cursor orders.UpdateCursor, limit int) (orders.UpdateCursor, error) {
	updates, err := svc.UpdatesSince(ctx, actor, cursor, limit)
	if err != nil {
		return cursor, err
	}
	if len(updates) == 0 {
		_, err := fmt.Fprint(w, ": keep-alive\n\n")
		return cursor, err
	}
	for _, update := range updates {
		payload, err := json.Marshal(update)
		if err != nil {
			return cursor, err
		}
		next := orders.CursorOf(update)
		if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", eventID(next), orderUpdateEvent, payload); err != nil {
			return cursor, err
		}
		cursor = next
	}
	return cursor, nil
}

func eventID(c orders.UpdateCursor) string {
	return c.UpdatedAt.UTC().Format(time.RFC3339Nano) + eventIDSep + c.ID.String()
}

// streamCursor prefers Last-Event-ID, then ?since=, then the current time.
// A bare timestamp id resumes strictly after that instant.
func streamCursor(r *http.Request) (orders.UpdateCursor, error) {
	if raw := strings.TrimSpace(r.Header.Get("Last-Event-ID")); raw != "" {
		stamp, rawID, hasID := strings.Cut(raw, eventIDSep)
		parsed, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return orders.UpdateCursor{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid Last-Event-ID")
		}
		cursor := orders.UpdateCursor{UpdatedAt: parsed.UTC()}
		if hasID {
			if cursor.ID, err = uuid.Parse(rawID); err != nil {
				return orders.UpdateCursor{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid Last-Event-ID")
			}
		}
		return cursor, nil
	}
	since, err := validators.ParseQueryTime(r, "since")
	if err != nil {
		return orders.UpdateCursor{}, err
	}
	if since.IsZero() {
		since = time.Now().UTC()
	}
	return orders.UpdateCursor{UpdatedAt: since}, nil
}
