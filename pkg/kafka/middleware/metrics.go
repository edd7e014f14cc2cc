package kafka_middleware

import (
	"context"
	"time"

	"planner/pkg/kafka"
	"planner/pkg/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return observe(directionPublish)
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return observe(directionConsume)
}

func observe(direction string) kafka.Middleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		metrics.KafkaDuration.WithLabelValues(direction, msg.Topic).Observe(time.Since(start).Seconds())
		status := metrics.OutcomeSuccess
		if err != nil {
			status = metrics.OutcomeFailure
		}
		metrics.KafkaMessages.WithLabelValues(direction, msg.Topic, status).Inc()

		return err
	}
}
