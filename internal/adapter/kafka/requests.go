package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/webtools-service/internal/config"
	"github.com/couchcryptid/webtools-service/internal/domain"
)

// RequestWriter enqueues decode requests on the source topic read by the batch worker.
type RequestWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewRequestWriter creates a producer for the configured source topic.
func NewRequestWriter(cfg *config.Config, logger *slog.Logger) *RequestWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSourceTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &RequestWriter{writer: w, logger: logger}
}

// Enqueue writes one {"vin": ...} request per VIN. VINs are normalized and
// validated first; nothing is written if any VIN is malformed.
func (w *RequestWriter) Enqueue(ctx context.Context, vins []string) error {
	msgs := make([]kafkago.Message, 0, len(vins))
	for _, raw := range vins {
		msg, err := serializeRequest(raw)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("enqueue decode requests: %w", err)
	}
	w.logger.Info("decode requests enqueued", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *RequestWriter) Close() error {
	return w.writer.Close()
}

type decodeRequest struct {
	VIN string `json:"vin"`
}

func serializeRequest(raw string) (kafkago.Message, error) {
	vin := domain.NormalizeVIN(raw)
	if err := domain.ValidateVIN(vin); err != nil {
		return kafkago.Message{}, err
	}
	data, err := json.Marshal(decodeRequest{VIN: vin})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize decode request: %w", err)
	}
	return kafkago.Message{Key: []byte(vin), Value: data}, nil
}
