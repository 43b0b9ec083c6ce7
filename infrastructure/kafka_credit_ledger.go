package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"socialbets/domain/entities"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// kafkaWriter is the subset of *kafka.Writer the ledger uses
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaCreditLedger sends credit transfers to the wallet service as Kafka
// commands. The message key is the idempotency key, so the consumer can drop
// replays and all commands for one settlement entry land on one partition.
type KafkaCreditLedger struct {
	writer kafkaWriter
	topic  string
}

// NewKafkaWriter builds a synchronous writer that waits for all in-sync replicas
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            5,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaCreditLedger creates a ledger producing to the writer's topic
func NewKafkaCreditLedger(writer kafkaWriter, topic string) *KafkaCreditLedger {
	return &KafkaCreditLedger{writer: writer, topic: topic}
}

// ledgerCommand is the wire format consumed by the wallet service
type ledgerCommand struct {
	IdempotencyKey  string `json:"idempotency_key"`
	UserID          int64  `json:"user_id"`
	Amount          string `json:"amount"`
	Reason          string `json:"reason"`
	BetID           int64  `json:"bet_id"`
	ParticipationID int64  `json:"participation_id"`
	RequestedAt     int64  `json:"requested_at_unix_ms"`
}

// Transfer produces the transfer command and returns once Kafka acknowledged it
func (l *KafkaCreditLedger) Transfer(ctx context.Context, transfer entities.LedgerTransfer) error {
	if strings.TrimSpace(transfer.IdempotencyKey) == "" {
		return fmt.Errorf("ledger transfer for user %d has no idempotency key", transfer.UserID)
	}
	if !transfer.Amount.IsPositive() {
		return fmt.Errorf("ledger transfer %s has non-positive amount %s", transfer.IdempotencyKey, transfer.Amount)
	}

	cmd := ledgerCommand{
		IdempotencyKey:  transfer.IdempotencyKey,
		UserID:          transfer.UserID,
		Amount:          transfer.Amount.StringFixed(2),
		Reason:          string(transfer.Reason),
		BetID:           transfer.BetID,
		ParticipationID: transfer.ParticipationID,
		RequestedAt:     time.Now().UnixMilli(),
	}

	value, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger command: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(transfer.IdempotencyKey),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(transfer.Reason)},
			{Key: "source", Value: []byte(SourceService)},
		},
	}

	if err := l.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to produce ledger transfer %s: %w", transfer.IdempotencyKey, err)
	}

	log.WithFields(log.Fields{
		"topic":           l.topic,
		"user_id":         transfer.UserID,
		"amount":          cmd.Amount,
		"reason":          transfer.Reason,
		"idempotency_key": transfer.IdempotencyKey,
	}).Debug("Ledger transfer produced")

	return nil
}

// Close flushes and closes the underlying writer
func (l *KafkaCreditLedger) Close() error {
	return l.writer.Close()
}
