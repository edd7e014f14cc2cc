package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "planner"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDefaultUserLimit     = 2
	MinUserLimit                = 2
	MaxUserLimit                = 10
	DefaultConflictMaxAttempts  = 3
	DefaultRetryInitialInterval = 20 * time.Millisecond
	DefaultPanelLockTTL         = 10 * time.Second

	DefaultNotificationQueueSize = 256
	DefaultNotificationsTopic    = "planner.notifications"
	DefaultNotificationsDLQ      = "planner.notifications.dlq"
	DefaultNotifierGroupID       = "planner-notifier"

	SystemUser = "system"
)
