package marketing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/honeynil/BizPromptService/internal/infrastructure/kafka"
)

const DefaultTopic = "marketing"

// KafkaQueue publishes tasks keyed by email so one subscriber's tasks stay
// ordered within a partition.
type KafkaQueue struct {
	producer kafka.KafkaProducer
	topic    string
}

func NewKafkaQueue(producer kafka.KafkaProducer, topic string) *KafkaQueue {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaQueue{producer: producer, topic: topic}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode marketing task: %w", err)
	}
	if err := q.producer.Send(ctx, q.topic, task.Email, value); err != nil {
		return fmt.Errorf("failed to enqueue marketing task: %w", err)
	}
	return nil
}

// InlineQueue runs tasks in background goroutines of this process. It is used
// when no Kafka brokers are configured.
type InlineQueue struct {
	automation *Automation
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewInlineQueue(automation *Automation, timeout time.Duration) *InlineQueue {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &InlineQueue{automation: automation, timeout: timeout}
}

func (q *InlineQueue) Enqueue(_ context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.automation.HandleWithRetry(ctx, task); err != nil {
			slog.Error("marketing task dropped", "kind", task.Kind, "email", task.Email, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every task started so far has finished.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}
