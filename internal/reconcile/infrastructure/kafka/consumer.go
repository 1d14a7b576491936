package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/reconcile/domain"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Applier interface {
	Apply(ctx context.Context, id string) error
}

// Consumer applies StockReconciliationRequired events from the order topic.
// Other event types on the topic are committed and ignored.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	svc    Applier
	idem   Deduper
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc Applier, idem Deduper) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("reconcile-consumer"),
	}
}

// Run blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	if tracing.HeaderValue(msg.Headers, "event_type") != domain.EventReconciliationRequired {
		return
	}

	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		// the sweeper still finds the record, so a skipped message is not lost
		c.log.Error("idempotency check failed", "key", key, "err", err)
		return
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeStockReconciliationRequired")
	defer span.End()

	var ev domain.ReconciliationRequired
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset, "err", err)
		return
	}
	span.SetAttributes(
		attribute.String("reconciliation.id", ev.ReconciliationID),
		attribute.String("order.id", ev.OrderID),
	)

	if err := c.svc.Apply(msgCtx, ev.ReconciliationID); err != nil {
		span.RecordError(err)
		c.log.Error("apply failed, leaving it to the sweeper", "reconciliation_id", ev.ReconciliationID, "err", err)
		return
	}
	c.log.Info("stock reconciliation processed", "reconciliation_id", ev.ReconciliationID, "order_id", ev.OrderID)
}
