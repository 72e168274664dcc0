package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/devank/tmplhub/metrics"
	"github.com/devank/tmplhub/pkg/utils"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(topic string, brokers []string, groupID string) *Consumer {
	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MaxBytes: 10e6, // 10MB
		}),
	}
	go c.reportLag()
	return c
}

func NewConsumerFromEnv(topic, groupID string) *Consumer {
	broker := utils.GetEnv("KAFKA_BROKER")
	return NewConsumer(topic, []string{broker}, groupID)
}

func (c *Consumer) ReadFromKafka(ctx context.Context) (*kafka.Message, error) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		metrics.KafkaSubscriberFailureTotal.WithLabelValues(c.reader.Config().Topic).Inc()
		return nil, err
	}
	return &m, nil
}

func (c *Consumer) reportLag() {
	for {
		if lag, err := c.reader.ReadLag(context.Background()); err == nil {
			metrics.KafkaConsumerLag.WithLabelValues(
				c.reader.Config().GroupID,
				c.reader.Config().Topic,
			).Set(float64(lag))
		} else {
			return
		}
		time.Sleep(10 * time.Second)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
