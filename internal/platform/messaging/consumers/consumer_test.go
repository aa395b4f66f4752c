package consumers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/membership-ledger/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, m := range r.committed {
		keys = append(keys, string(m.Key))
	}
	return keys
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func TestNewKafkaConsumer(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers:       "localhost:9092",
		ConsumerGroup: "test-group",
		MinBytes:      1024,
		MaxBytes:      10240,
		MaxWait:       time.Second,
	}

	consumer := NewKafkaConsumer(testLogger(), cfg, "payment_events")
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader)
	assert.Equal(t, "payment_events", consumer.topic)
	assert.Equal(t, "test-group", consumer.groupID)
	assert.NoError(t, consumer.Close())
}

func TestKafkaConsumer_CommitsOnlyAfterHandlerSucceeds(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Key: []byte("evt_1"), Value: []byte("a")},
		{Key: []byte("evt_2"), Value: []byte("b")},
	}}
	consumer := &KafkaConsumer{reader: reader, logger: testLogger(), backoff: time.Millisecond}

	var mu sync.Mutex
	calls := map[string]int{}
	handler := func(_ context.Context, key, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls[string(key)]++
		if string(key) == "evt_1" && calls["evt_1"] < 3 {
			return errors.New("store unavailable")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.consume(ctx, handler)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"evt_1", "evt_2"}, reader.commits(), "order is kept across retries")
	mu.Lock()
	assert.Equal(t, 3, calls["evt_1"])
	assert.Equal(t, 1, calls["evt_2"])
	mu.Unlock()
}

func TestKafkaConsumer_StopsWhileRetrying(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Key: []byte("evt_1")}}}
	consumer := &KafkaConsumer{reader: reader, logger: testLogger(), backoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.consume(ctx, func(context.Context, []byte, []byte) error { return errors.New("always") })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
	assert.Empty(t, reader.commits())
}

func TestKafkaConsumer_Close(t *testing.T) {
	consumer := &KafkaConsumer{reader: nil, logger: testLogger()}
	require.NoError(t, consumer.Close())

	reader := &fakeReader{}
	consumer = &KafkaConsumer{reader: reader, logger: testLogger()}
	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}
