package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ajiri/internal/model"
	"ajiri/internal/platform/rabbitmq"
)

// UsageStore persists one API usage row.
type UsageStore interface {
	Create(ctx context.Context, usage *model.APIUsage) error
}

// UsagePersistWorker drains the usage queue into the database.
type UsagePersistWorker struct {
	conn      *amqp.Connection
	store     UsageStore
	queueName string
	prefetch  int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewUsagePersistWorker(conn *amqp.Connection, store UsageStore, queueName string) *UsagePersistWorker {
	return &UsagePersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		prefetch:  32,
	}
}

func (w *UsagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"ajiri-usage-worker",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (w *UsagePersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	w.process(ctx, d.Body, &d)
}

// process decodes and stores one delivery. Undecodable bodies are dropped;
// storage failures are requeued once.
func (w *UsagePersistWorker) process(ctx context.Context, body []byte, ack acknowledger) {
	var usage model.APIUsage
	if err := json.Unmarshal(body, &usage); err != nil {
		slog.Warn("worker decode usage failed", "queue", w.queueName, "error", err)
		_ = ack.Nack(false, false)
		return
	}
	usage.ID = 0

	if err := w.store.Create(ctx, &usage); err != nil {
		redelivered := false
		if d, ok := ack.(*amqp.Delivery); ok {
			redelivered = d.Redelivered
		}
		slog.Error("worker persist usage failed", "queue", w.queueName, "endpoint", usage.Endpoint, "redelivered", redelivered, "error", err)
		_ = ack.Nack(false, !redelivered)
		return
	}
	_ = ack.Ack(false)
}

func (w *UsagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
