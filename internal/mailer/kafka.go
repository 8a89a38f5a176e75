package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

// messageWriter is the part of *kafka.Writer the sender uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures a KafkaSender.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaSender publishes rendered confirmation emails to a topic, keyed by
// recipient so that messages for one address stay ordered.
type KafkaSender struct {
	writer   messageWriter
	renderer *Renderer
	timeout  time.Duration
	logger   *zap.Logger
}

func NewKafkaSender(cfg KafkaConfig, renderer *Renderer, logger *zap.Logger) (*KafkaSender, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return newKafkaSender(writer, renderer, cfg.WriteTimeout, logger), nil
}

func newKafkaSender(w messageWriter, renderer *Renderer, timeout time.Duration, logger *zap.Logger) *KafkaSender {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSender{
		writer:   w,
		renderer: renderer,
		timeout:  timeout,
		logger:   logger.Named("mailer"),
	}
}

func (s *KafkaSender) SendConfirmation(ctx context.Context, c Confirmation) error {
	msg, err := s.renderer.Render(c)
	if err != nil {
		return err
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Time:  msg.QueuedAt,
	}); err != nil {
		s.logger.Error("failed to write mail message", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("publish mail message: %w", err)
	}
	s.logger.Debug("mail message queued", zap.String("to", msg.To), zap.String("template", msg.Template))
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
