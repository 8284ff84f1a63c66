package delivery

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/report"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SummaryEvent is the payload published for every delivered summary.
type SummaryEvent struct {
	EventID     string    `json:"event_id"`
	TenantID    int64     `json:"tenant_id"`
	Kind        string    `json:"kind"`
	Period      string    `json:"period"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// KafkaSink publishes summaries as JSON events keyed by tenant id.
type KafkaSink struct {
	writer messageWriter
	newID  func() uuid.UUID
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	})
}

func newKafkaSink(writer messageWriter) *KafkaSink {
	return &KafkaSink{
		writer: writer,
		newID:  uuid.New,
	}
}

func (k *KafkaSink) Name() string {
	return "kafka"
}

func (k *KafkaSink) Deliver(ctx context.Context, summary report.Summary) error {
	payload, err := json.Marshal(SummaryEvent{
		EventID:     k.newID().String(),
		TenantID:    summary.TenantID,
		Kind:        string(summary.Kind),
		Period:      summary.Period,
		Text:        summary.Text,
		GeneratedAt: summary.GeneratedAt.UTC(),
	})
	if err != nil {
		return xerrors.Errorf("marshal summary event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(summary.TenantID, 10)),
		Value: payload,
		Time:  summary.GeneratedAt,
	})
	if err != nil {
		return xerrors.Errorf("write summary event: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
