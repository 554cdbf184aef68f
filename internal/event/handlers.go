// Package event wires catalog change events into sync state: product
// deletions are queued for surgical removal on the next incremental run,
// while category and language changes request a graceful full sync.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/marco-pm/zencart-typesense/pkg/kafka"
)

// StateStore is the slice of the sync state repository the handlers mutate.
type StateStore interface {
	EnqueueProductDeletion(ctx context.Context, productID int64) error
	SetNextRunFull(ctx context.Context, forced bool) error
}

// Handlers processes catalog change events.
type Handlers struct {
	state                    StateStore
	logger                   *slog.Logger
	fullSyncOnCategoryChange bool
}

// NewHandlers creates the event handlers. fullSyncOnCategoryChange gates
// whether category events request a full sync.
func NewHandlers(state StateStore, logger *slog.Logger, fullSyncOnCategoryChange bool) *Handlers {
	return &Handlers{
		state:                    state,
		logger:                   logger,
		fullSyncOnCategoryChange: fullSyncOnCategoryChange,
	}
}

type productDeletedPayload struct {
	ProductID int64 `json:"product_id"`
}

// HandleProductDeleted queues the deleted product for removal from the index
// on the next incremental sync. Deletions never force a full rebuild.
func (h *Handlers) HandleProductDeleted(ctx context.Context, event *kafka.Event) error {
	var payload productDeletedPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal product deleted payload: %w", err)
	}

	productID := payload.ProductID
	if productID == 0 {
		// Older producers only set the aggregate id.
		id, err := strconv.ParseInt(event.AggregateID, 10, 64)
		if err != nil {
			return fmt.Errorf("product deleted event %s has no product id", event.EventID)
		}
		productID = id
	}

	if err := h.state.EnqueueProductDeletion(ctx, productID); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "product deletion queued",
		slog.Int64("product_id", productID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// HandleCategoryChanged requests a graceful full sync when configured to.
// Category structure feeds the denormalized ancestry paths and recursive
// counts, so an incremental product pass cannot repair them.
func (h *Handlers) HandleCategoryChanged(ctx context.Context, event *kafka.Event) error {
	if !h.fullSyncOnCategoryChange {
		h.logger.DebugContext(ctx, "category change ignored, full sync on category change disabled",
			slog.String("event_type", event.EventType),
		)
		return nil
	}

	if err := h.state.SetNextRunFull(ctx, false); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "full sync requested after category change",
		slog.String("event_type", event.EventType),
		slog.String("category_id", event.AggregateID),
	)
	return nil
}

// HandleLanguageChanged requests a graceful full sync. Adding or removing a
// language changes every collection schema.
func (h *Handlers) HandleLanguageChanged(ctx context.Context, event *kafka.Event) error {
	if err := h.state.SetNextRunFull(ctx, false); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "full sync requested after language change",
		slog.String("event_type", event.EventType),
		slog.String("language_id", event.AggregateID),
	)
	return nil
}
