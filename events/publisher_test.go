package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	block    bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	p := NewPublisher(nil, "topic")
	_, ok := p.(NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), ReviewEvent{}))
	assert.NoError(t, p.Close())
}

func TestNewPublisher_WithBrokers(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "reviews")
	kp, ok := p.(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "reviews", kp.topic)
	assert.Equal(t, PublishTimeout, kp.timeout)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "reviews"}
	doctor := uint(4)

	err := p.Publish(context.Background(), ReviewEvent{
		Type:     ReportClaimed,
		ReportID: 42,
		DoctorID: &doctor,
		Status:   model.StatusInReview,
		Version:  2,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, "report.claimed", string(msg.Headers[0].Value))

	var decoded ReviewEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.NotEmpty(t, decoded.ID)
	assert.False(t, decoded.OccurredAt.IsZero())
	assert.Equal(t, model.StatusInReview, decoded.Status)
	require.NotNil(t, decoded.DoctorID)
	assert.Equal(t, doctor, *decoded.DoctorID)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, topic: "reviews"}

	err := p.Publish(context.Background(), ReviewEvent{Type: ReportApproved, ReportID: 1})
	assert.EqualError(t, err, "broker down")
}

func TestKafkaPublisher_UnreachableBrokerIsBounded(t *testing.T) {
	w := &fakeWriter{block: true}
	p := &KafkaPublisher{writer: w, topic: "reviews", timeout: 20 * time.Millisecond}

	start := time.Now()
	err := p.Publish(context.Background(), ReviewEvent{Type: ReportClaimed, ReportID: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	assert.NoError(t, p.Close())
	assert.True(t, w.closed)
}
