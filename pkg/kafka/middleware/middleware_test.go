package kafka_middleware

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"planner/pkg/kafka"
	"planner/pkg/logger"
	"planner/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsProducerMiddleware(t *testing.T) {
	mw := MetricsProducerMiddleware()
	msg := kafka.Message{Topic: "mw-test-topic", Headers: map[string]string{}}

	before := testutil.ToFloat64(metrics.KafkaMessages.WithLabelValues(directionPublish, "mw-test-topic", metrics.OutcomeFailure))
	err := mw(context.Background(), msg, func(context.Context, kafka.Message) error {
		return errors.New("broker down")
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	after := testutil.ToFloat64(metrics.KafkaMessages.WithLabelValues(directionPublish, "mw-test-topic", metrics.OutcomeFailure))
	if after-before != 1 {
		t.Errorf("failure counter moved by %v, want 1", after-before)
	}
}

func TestLoggingConsumerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "info", Format: logger.JSON, Output: &buf, Service: "test"})
	mw := LoggingConsumerMiddleware(log)

	msg := kafka.Message{Topic: "planner.notifications", Key: "slot-1", Headers: map[string]string{kafka.HeaderEventType: "slot.booked"}}
	if err := mw(context.Background(), msg, func(context.Context, kafka.Message) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Processed Kafka message") || !strings.Contains(out, "slot.booked") {
		t.Errorf("unexpected log output: %s", out)
	}
}
