package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/learning-assistant/internal/model"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
	"github.com/capitalize-ai/learning-assistant/pkg/metrics"
)

const (
	// StreamName is the name of the assistant activity stream.
	StreamName = "ASSISTANT"

	// SubjectPrefix is the prefix for all assistant subjects.
	SubjectPrefix = "assist"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream creates the activity stream if it does not exist.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Learning assistant transcript messages and surface events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// MessageSubject returns the subject for a transcript message.
func MessageSubject(userID string, sender model.Sender) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, subjectToken(userID), sender)
}

// EventSubject returns the subject for a surface event.
func EventSubject(userID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, subjectToken(userID), eventType)
}

// UserFilter returns the filter subject for all activity of a user.
func UserFilter(userID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, subjectToken(userID))
}

// MessageRecord is a transcript message as published to the stream.
type MessageRecord struct {
	UserID         string        `json:"user_id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Message        model.Message `json:"message"`
}

// Activity is one stored stream entry.
type Activity struct {
	Sequence uint64          `json:"sequence"`
	Subject  string          `json:"subject"`
	Data     json.RawMessage `json:"data"`
}

// Publisher publishes surface activity. Publishing is asynchronous and best
// effort: failures are logged and counted, never returned to a chat turn.
type Publisher struct {
	client *Client
	logger *logger.Logger
}

// NewPublisher creates a new publisher.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// PublishMessage publishes a transcript message.
func (p *Publisher) PublishMessage(ctx context.Context, userID, conversationID string, msg model.Message) {
	p.publish(MessageSubject(userID, msg.Sender), "message", MessageRecord{
		UserID:         userID,
		ConversationID: conversationID,
		Message:        msg,
	})
}

// PublishEvent publishes a surface event.
func (p *Publisher) PublishEvent(ctx context.Context, event *model.AssistantEvent) {
	p.publish(EventSubject(event.UserID, event.Type), "event", event)
}

func (p *Publisher) publish(subject, kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(kind, "error").Inc()
		p.logger.Error("failed to marshal activity", zap.String("subject", subject), zap.Error(err))
		return
	}

	if _, err := p.client.JetStream().PublishAsync(subject, data); err != nil {
		metrics.EventsPublished.WithLabelValues(kind, "error").Inc()
		p.logger.Warn("failed to publish activity", zap.String("subject", subject), zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues(kind, "queued").Inc()
}

// Recent returns up to limit stored entries of a user after afterSequence,
// the last sequence seen and whether more may be available.
func (m *StreamManager) Recent(ctx context.Context, userID string, afterSequence uint64, limit int) ([]Activity, uint64, bool, error) {
	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: UserFilter(userID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := m.client.JetStream().CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch activity: %w", err)
	}

	var (
		out          []Activity
		lastSequence uint64
	)
	for msg := range batch.Messages() {
		a := Activity{
			Subject: msg.Subject(),
			Data:    json.RawMessage(msg.Data()),
		}
		if meta, err := msg.Metadata(); err == nil {
			a.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}
		out = append(out, a)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return out, lastSequence, len(out) == limit, nil
}
