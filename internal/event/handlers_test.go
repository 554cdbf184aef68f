package event

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco-pm/zencart-typesense/pkg/kafka"
)

type fakeStateStore struct {
	enqueued    []int64
	nextRunFull bool
	forced      bool
	calls       int
}

func (f *fakeStateStore) EnqueueProductDeletion(ctx context.Context, productID int64) error {
	f.enqueued = append(f.enqueued, productID)
	return nil
}

func (f *fakeStateStore) SetNextRunFull(ctx context.Context, forced bool) error {
	f.nextRunFull = true
	f.forced = forced
	f.calls++
	return nil
}

func newTestHandlers(fullSyncOnCategoryChange bool) (*Handlers, *fakeStateStore) {
	state := &fakeStateStore{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewHandlers(state, logger, fullSyncOnCategoryChange), state
}

func mustEvent(t *testing.T, eventType, aggregateID, aggregateType string, data map[string]any) *kafka.Event {
	t.Helper()
	event, err := kafka.NewEvent(eventType, aggregateID, aggregateType, "catalog", data)
	require.NoError(t, err)
	return event
}

func TestHandleProductDeleted_QueuesID(t *testing.T) {
	h, state := newTestHandlers(true)
	event := mustEvent(t, "product.deleted", "42", "product", map[string]any{"product_id": 42})

	require.NoError(t, h.HandleProductDeleted(context.Background(), event))

	assert.Equal(t, []int64{42}, state.enqueued)
	// Deletions never force a full rebuild.
	assert.False(t, state.nextRunFull)
}

func TestHandleProductDeleted_FallsBackToAggregateID(t *testing.T) {
	h, state := newTestHandlers(true)
	event := mustEvent(t, "product.deleted", "17", "product", map[string]any{})

	require.NoError(t, h.HandleProductDeleted(context.Background(), event))

	assert.Equal(t, []int64{17}, state.enqueued)
}

func TestHandleProductDeleted_NoUsableID(t *testing.T) {
	h, state := newTestHandlers(true)
	event := mustEvent(t, "product.deleted", "not-a-number", "product", map[string]any{})

	err := h.HandleProductDeleted(context.Background(), event)

	require.Error(t, err)
	assert.Empty(t, state.enqueued)
}

func TestHandleCategoryChanged_RequestsGracefulFullSync(t *testing.T) {
	h, state := newTestHandlers(true)
	event := mustEvent(t, "category.updated", "4", "category", map[string]any{"category_id": 4})

	require.NoError(t, h.HandleCategoryChanged(context.Background(), event))

	assert.True(t, state.nextRunFull)
	assert.False(t, state.forced)
}

func TestHandleCategoryChanged_DisabledByConfig(t *testing.T) {
	h, state := newTestHandlers(false)
	event := mustEvent(t, "category.deleted", "4", "category", map[string]any{})

	require.NoError(t, h.HandleCategoryChanged(context.Background(), event))

	assert.False(t, state.nextRunFull)
	assert.Zero(t, state.calls)
}

func TestHandleLanguageChanged_AlwaysRequestsFullSync(t *testing.T) {
	h, state := newTestHandlers(false)
	event := mustEvent(t, "language.created", "2", "language", map[string]any{})

	require.NoError(t, h.HandleLanguageChanged(context.Background(), event))

	assert.True(t, state.nextRunFull)
	assert.False(t, state.forced)
}
