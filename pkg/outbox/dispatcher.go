package outbox

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
	cb       *gobreaker.CircuitBreaker
	results  *prometheus.CounterVec
}

// NewDispatcher wraps producer writes in cb. results may be nil.
func NewDispatcher(log *slog.Logger, producer Producer, topic string, cb *gobreaker.CircuitBreaker, results *prometheus.CounterVec) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic, cb: cb, results: results}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := make([]kafka.Header, 0, len(event.Headers)+2)

	for k, v := range event.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(event.Type)})
	if event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(event.Traceparent)})
	}

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	_, err := d.cb.Execute(func() (interface{}, error) {
		return nil, d.producer.WriteMessages(ctx, msg)
	})
	if err != nil {
		d.observe("error")
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "type", event.Type, "err", err)
		return err
	}
	d.observe("sent")
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type)
	return nil
}

func (d *Dispatcher) observe(result string) {
	if d.results != nil {
		d.results.WithLabelValues(result).Inc()
	}
}
