package kafka

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerConsumer_RoundTrip(t *testing.T) {
	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("TEST_KAFKA_BROKERS not set, skipping Kafka integration test")
	}
	topic := "order-events-test-" + uuid.NewString()[:8]
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer := NewProducer(strings.Split(brokers, ","), topic)
	defer producer.Close()

	// the first write may race topic creation
	var err error
	for range 5 {
		if err = producer.Publish(ctx, "42", map[string]any{"order_id": 42, "status": "Accepted"}); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)

	consumer := NewConsumer(strings.Split(brokers, ","), topic, "test-"+topic, nil)
	defer consumer.Close()

	type received struct {
		key   string
		value map[string]any
	}
	got := make(chan received, 1)
	go consumer.Consume(ctx, func(_ context.Context, key, value []byte) error {
		var v map[string]any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		select {
		case got <- received{key: string(key), value: v}:
		default:
		}
		return nil
	})

	select {
	case r := <-got:
		assert.Equal(t, "42", r.key)
		assert.Equal(t, "Accepted", r.value["status"])
	case <-ctx.Done():
		t.Fatal("message not consumed")
	}
}
