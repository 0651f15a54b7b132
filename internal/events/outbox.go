package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/db/postgres"
	"serotonyl.ru/stars-casino/internal/metrics"
)

// Типы агрегатов и событий.
const (
	AggregateSpin    = "spin"
	AggregateDeposit = "deposit"

	TypeSpinSettled      = "settled"
	TypeDepositCompleted = "completed"
)

// Event — черновик события для записи в outbox.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       any
}

// UserAggregateID — ключ партиционирования по игроку.
func UserAggregateID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Insert пишет событие в event_outbox. Вызывается в той же транзакции,
// что и изменение баланса, поэтому событие не теряется и не появляется без изменения.
func Insert(ctx context.Context, db postgres.DBTX, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO event_outbox (id, aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), e.AggregateType, e.AggregateID, e.EventType, payload)
	if err != nil {
		return fmt.Errorf("ошибка записи события в outbox: %w", err)
	}
	return nil
}

// Publisher — куда доставляются события (KafkaProducer).
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Outbox вычитывает неопубликованные события и передаёт их в Publisher.
type Outbox struct {
	db          postgres.DBTX
	publisher   Publisher
	topicPrefix string
	batchSize   int
}

// NewOutbox создаёт доставщик событий.
func NewOutbox(db postgres.DBTX, publisher Publisher, topicPrefix string, batchSize int) *Outbox {
	return &Outbox{db: db, publisher: publisher, topicPrefix: topicPrefix, batchSize: batchSize}
}

type outboxRow struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	OccurredAt    time.Time
}

// Topic строит имя топика: <prefix>.<aggregate>.<event>.
func (o *Outbox) Topic(aggregateType, eventType string) string {
	return o.topicPrefix + "." + aggregateType + "." + eventType
}

// encodeMessage собирает конверт события для Kafka.
func encodeMessage(r outboxRow) ([]byte, error) {
	msg, err := json.Marshal(map[string]any{
		"event_id":       r.ID,
		"aggregate_type": r.AggregateType,
		"aggregate_id":   r.AggregateID,
		"event_type":     r.EventType,
		"payload":        r.Payload,
		"occurred_at":    r.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации конверта: %w", err)
	}
	return msg, nil
}

// Flush публикует одну пачку событий и возвращает число опубликованных.
// Событие, которое не удалось отправить, остаётся в таблице до следующего запуска,
// вместе со всеми следующими событиями того же агрегата из пачки.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	rows, err := o.db.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, occurred_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at
		LIMIT $1
	`, o.batchSize)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения outbox: %w", err)
	}

	var batch []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.ID, &r.AggregateType, &r.AggregateID, &r.EventType, &r.Payload, &r.OccurredAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("ошибка сканирования outbox: %w", err)
		}
		batch = append(batch, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("ошибка чтения outbox: %w", err)
	}

	published := 0
	// Ключи, у которых событие не ушло: их следующие события ждут, иначе порядок по игроку нарушится
	blocked := make(map[string]bool)
	for _, r := range batch {
		if blocked[r.AggregateID] {
			continue
		}

		msg, err := encodeMessage(r)
		if err != nil {
			blocked[r.AggregateID] = true
			metrics.RecordOutboxPublish(false)
			log.WithError(err).WithField("event_id", r.ID).Error("Не удалось сериализовать событие")
			continue
		}

		if err := o.publisher.Publish(ctx, o.Topic(r.AggregateType, r.EventType), []byte(r.AggregateID), msg); err != nil {
			blocked[r.AggregateID] = true
			metrics.RecordOutboxPublish(false)
			log.WithError(err).WithField("event_id", r.ID).Error("Не удалось опубликовать событие")
			continue
		}
		metrics.RecordOutboxPublish(true)

		if _, err := o.db.Exec(ctx, `UPDATE event_outbox SET published_at = NOW() WHERE id = $1`, r.ID); err != nil {
			blocked[r.AggregateID] = true
			log.WithError(err).WithField("event_id", r.ID).Error("Не удалось пометить событие опубликованным")
			continue
		}
		published++
	}

	if published > 0 {
		log.WithField("published", published).Debug("Outbox: события опубликованы")
	}
	return published, nil
}
