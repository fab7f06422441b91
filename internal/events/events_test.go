package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestNewPublisher_NopWithoutBrokers(t *testing.T) {
	p := NewPublisher("")
	_, ok := p.(Nop)
	assert.True(t, ok)
	require.NoError(t, p.Publish(context.Background(), New(OrderCreated, "1", 1, nil)))

	k := NewPublisher("localhost:9092")
	_, ok = k.(*KafkaPublisher)
	assert.True(t, ok)
	require.NoError(t, k.Close())
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "commerce.order", topicFor(OrderPaid))
	assert.Equal(t, "commerce.certificate", topicFor(CertificateIssued))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, New(OrderCreated, "1", 7, map[string]any{"total": "115.99"})))
	require.NoError(t, r.Publish(ctx, New(OrderPaid, "1", 7, nil)))
	assert.Equal(t, 1, r.Count(OrderPaid))
	evs := r.Events()
	require.Len(t, evs, 2)
	assert.NotEmpty(t, evs[0].EventID)
	assert.Equal(t, int64(7), evs[0].UserID)
}
