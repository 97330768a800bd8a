package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() domain.Event {
	return domain.Event{
		Seq:        42,
		EmployeeID: 7,
		Kind:       domain.KindSalaryChanged,
		Payload:    json.RawMessage(`{"salary":5500}`),
		Timestamp:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage(context.Background(), testEvent())

	if string(msg.Key) != "7" {
		t.Errorf("key = %q, want employee id 7", msg.Key)
	}
	if string(msg.Value) != `{"salary":5500}` {
		t.Errorf("value = %s", msg.Value)
	}
	if header(msg, "seq") != "42" || header(msg, "event_type") != "updated_salary" {
		t.Errorf("unexpected headers %+v", msg.Headers)
	}
	if !msg.Time.Equal(testEvent().Timestamp) {
		t.Errorf("time = %v", msg.Time)
	}
}

func TestBuildMessage_InjectsTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := buildMessage(ctx, testEvent())

	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := header(msg, "traceparent"); got != want {
		t.Errorf("traceparent = %q, want %q", got, want)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "hr.employee.events", logger: testLogger()}

	if err := p.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	w.err = errors.New("leader not available")
	if err := p.Publish(context.Background(), testEvent()); !errors.Is(err, w.err) {
		t.Errorf("expected wrapped writer error, got %v", err)
	}
}

func TestNewKafkaPublisher_NoBrokers(t *testing.T) {
	if p := NewKafkaPublisher(nil, "topic", testLogger()); p != nil {
		t.Error("expected nil publisher without brokers")
	}
}
