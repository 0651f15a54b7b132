// Package events — доменные события сервиса: запись в event_outbox внутри
// транзакции и доставка в Kafka фоновой задачей.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// KafkaProducer — обёртка над kafka-go writer.
// Без брокеров работает как no-op: события просто помечаются опубликованными.
type KafkaProducer struct {
	writer  *kafka.Writer
	enabled bool
}

// NewKafkaProducer создаёт продюсер. brokers — список через запятую.
func NewKafkaProducer(brokers string) *KafkaProducer {
	brokers = strings.TrimSpace(brokers)
	if brokers == "" {
		log.Info("Kafka не настроена, события не публикуются")
		return &KafkaProducer{}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	log.WithField("brokers", brokers).Info("Kafka продюсер инициализирован")
	return &KafkaProducer{writer: w, enabled: true}
}

// Enabled сообщает, подключены ли брокеры.
func (p *KafkaProducer) Enabled() bool {
	return p.enabled
}

// Publish отправляет сообщение в топик. Ключ — id агрегата, чтобы события одного игрока шли по порядку.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if !p.enabled {
		return nil
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Close закрывает writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
