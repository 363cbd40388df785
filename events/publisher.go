// Package events publishes committed review transitions for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Type names a review transition.
type Type string

const (
	ReportDrafted     Type = "report.drafted"
	ReportClaimed     Type = "report.claimed"
	ReportApproved    Type = "report.approved"
	ReportRejected    Type = "report.rejected"
	ReportRegenerated Type = "report.regenerated"
)

// ReviewEvent describes a committed state change of one report.
type ReviewEvent struct {
	ID          string             `json:"id"`
	Type        Type               `json:"type"`
	ReportID    uint               `json:"report_id"`
	PatientID   uint               `json:"patient_id"`
	DoctorID    *uint              `json:"doctor_id,omitempty"`
	Status      model.ReviewStatus `json:"status"`
	TriageLabel model.TriageLabel  `json:"triage_label,omitempty"`
	Version     uint               `json:"version"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Publisher delivers review events.
type Publisher interface {
	Publish(ctx context.Context, event ReviewEvent) error
	Close() error
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ReviewEvent) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// PublishTimeout bounds one Publish call. The transition is already committed when an
// event is published, so a slow broker must not hold the request.
const PublishTimeout = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by report id, so every event
// of one report lands on the same partition in commit order.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewPublisher returns a KafkaPublisher when brokers are configured and a NoopPublisher otherwise.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  2,
			WriteTimeout: PublishTimeout,
		},
		topic:   topic,
		timeout: PublishTimeout,
	}
}

// Publish fills in the id and timestamp when missing and writes the event.
func (p *KafkaPublisher) Publish(ctx context.Context, event ReviewEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ReportID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		util.Log.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Error("Failed to publish review event")
		return err
	}

	util.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      p.topic,
	}).Debug("Review event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
