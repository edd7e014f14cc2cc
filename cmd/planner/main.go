package main

import (
	"context"

	appsrepo "planner/internal/applications/repository"
	bookingsvc "planner/internal/bookings/service"
	bookingvalidator "planner/internal/bookings/validator"
	dirrepo "planner/internal/directory/repository"
	"planner/internal/notifications"
	panelsrepo "planner/internal/panels/repository"
	"planner/internal/planner/handler"
	publishsvc "planner/internal/publishing/service"
	reschedulesvc "planner/internal/rescheduling/service"
	schedulingsvc "planner/internal/scheduling/service"
	schedulingvalidator "planner/internal/scheduling/validator"
	slotsrepo "planner/internal/slots/repository"
	timelinerepo "planner/internal/timeline/repository"
	"planner/pkg/app"
	"planner/pkg/config"
	"planner/pkg/kafka"
	kafka_config "planner/pkg/kafka/config"
	kafka_middleware "planner/pkg/kafka/middleware"
)

const ServiceName = "planner"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Planner service")

	producer := initProducer(cfg)
	dispatcher := notifications.NewDispatcher(producer, cfg.Log, cfg.NotificationQueueSize)
	dispatcher.Start()

	plannerHandler := initHandler(cfg, dispatcher)
	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(func(ctx context.Context) {
		if err := dispatcher.Close(ctx); err != nil {
			cfg.Log.Error("Failed to drain notification queue", "error", err)
		}
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	serverApp.SetApp(plannerHandler)
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.NotificationsTopic, cfg.NotificationsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware())
	return producer
}

func initHandler(cfg *config.Config, notifier notifications.Notifier) *handler.PlannerHandler {
	slots := slotsrepo.NewMongoSlotRepository(cfg)
	panels := panelsrepo.NewMongoPanelRepository(cfg)
	locks := panelsrepo.NewMongoLockRepository(cfg)
	applications := appsrepo.NewMongoApplicationRepository(cfg)
	lists := appsrepo.NewMongoInterviewListRepository(cfg)
	directory := dirrepo.NewMongoDirectory(cfg)
	timeline := timelinerepo.NewMongoTimelineRepository(cfg)

	bookingValidator := bookingvalidator.NewBookingValidator(cfg.Log)

	scheduling := schedulingsvc.NewSchedulingService(
		slots,
		panels,
		locks,
		applications,
		timeline,
		schedulingvalidator.NewSchedulingValidator(cfg.Log),
		cfg,
	)
	bookings := bookingsvc.NewBookingService(
		slots,
		applications,
		lists,
		directory,
		timeline,
		notifier,
		bookingValidator,
		cfg,
	)
	publishing := publishsvc.NewPublishService(
		slots,
		panels,
		directory,
		timeline,
		notifier,
		cfg,
	)
	rescheduling := reschedulesvc.NewRescheduleService(
		slots,
		applications,
		lists,
		directory,
		timeline,
		notifier,
		bookingValidator,
		cfg,
	)

	cfg.Log.Info("Planner services initialized", "database", cfg.MongoDatabaseName)
	return handler.NewPlannerHandler(scheduling, bookings, publishing, rescheduling, cfg.Log)
}
