package kafka

import (
	"context"
	log "log/slog"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/es"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	requestConsumer sarama.ConsumerGroup
	requestHandler  sarama.ConsumerGroupHandler

	invoiceConsumer sarama.ConsumerGroup
	invoiceHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, requestESRepo es.RequestRepo) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	requestConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaRequestConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}
	requestHandler := NewRequestHandler(requestESRepo)

	invoiceConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaInvoiceConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}
	invoiceHandler := NewInvoiceHandler()

	return &ConsumerManager{
		requestConsumer: requestConsumer,
		requestHandler:  requestHandler,
		invoiceConsumer: invoiceConsumer,
		invoiceHandler:  invoiceHandler,
	}, nil
}

// Start 启动所有消费者
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	// 启动 Request Consumer
	go func() {
		topic := cfg.KafkaRequestConsumer.Topic
		log.Info("Request consumer started", "topic", topic)
		for {
			if err := m.requestConsumer.Consume(ctx, []string{topic}, m.requestHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	// 启动 Invoice Consumer
	go func() {
		topic := cfg.KafkaInvoiceConsumer.Topic
		log.Info("Invoice consumer started", "topic", topic)
		for {
			if err := m.invoiceConsumer.Consume(ctx, []string{topic}, m.invoiceHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.requestConsumer.Close(); err != nil {
		log.Error("Failed to close request consumer", "err", err)
	}
	if err := m.invoiceConsumer.Close(); err != nil {
		log.Error("Failed to close invoice consumer", "err", err)
	}

	return nil
}
