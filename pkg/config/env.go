package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultUserLimit     = "DEFAULT_USER_LIMIT"
	EnvConflictMaxAttempts  = "CONFLICT_MAX_ATTEMPTS"
	EnvRetryInitialInterval = "RETRY_INITIAL_INTERVAL"
	EnvPanelLockTTL         = "PANEL_LOCK_TTL"

	EnvNotificationQueueSize = "NOTIFICATION_QUEUE_SIZE"
	EnvNotificationsTopic    = "KAFKA_NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQ      = "KAFKA_NOTIFICATIONS_DLQ"
	EnvNotifierGroupID       = "KAFKA_NOTIFIER_GROUP_ID"
)
