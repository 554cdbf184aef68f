package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	type payload struct {
		ProductID int64 `json:"product_id"`
	}

	event, err := NewEvent("product.deleted", "42", "product", "catalog", payload{ProductID: 42})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "product.deleted", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "product", event.AggregateType)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())

	var got payload
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, int64(42), got.ProductID)
}

func TestEventRoundTrip(t *testing.T) {
	event, err := NewEvent("category.updated", "7", "category", "catalog", map[string]any{"category_id": 7})
	require.NoError(t, err)
	event.WithCorrelationID("corr-123")

	data, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)

	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "corr-123", decoded.CorrelationID)
	assert.Equal(t, "category.updated", decoded.EventType)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "catalog.product.deleted", Topic("product", "deleted"))
	assert.Equal(t, "catalog.dlq.catalog.product.deleted", DLQTopic(Topic("product", "deleted")))
}
