package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProducer_SendFailsWithoutBroker(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, "marketing", "lead@example.com", []byte(`{}`))
	assert.Error(t, err)
}

func TestNewConsumer_Config(t *testing.T) {
	c := NewConsumer([]string{"127.0.0.1:1"}, "marketing", "marketing-worker", func(context.Context, []byte, []byte) error { return nil })
	defer c.Close()

	cfg := c.reader.Config()
	assert.Equal(t, "marketing", cfg.Topic)
	assert.Equal(t, "marketing-worker", cfg.GroupID)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	c := NewConsumer([]string{"127.0.0.1:1"}, "marketing", "marketing-worker", func(context.Context, []byte, []byte) error {
		t.Fatal("handler must not run")
		return nil
	})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.Consume(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
