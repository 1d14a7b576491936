package outbox

import "github.com/segmentio/kafka-go"

// NewKafkaWriter returns a producer that waits for all in-sync replicas.
// Messages carry their own topic.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}
