package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"task-scheduler-service/internal/scheduler/api"
	schedDB "task-scheduler-service/internal/scheduler/db"
	schedKafka "task-scheduler-service/internal/scheduler/kafka"
	"task-scheduler-service/internal/scheduler/services"
	gorm_db "task-scheduler-service/pkg/db"
)

func main() {
	stdlog.Println("Task Scheduler Service starting...")

	appCtx, appCancel := context.WithCancel(context.Background())

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		stdlog.Fatalf("Failed to initialize database: %v", err)
	}
	stdlog.Println("Database initialized successfully.")

	stdlog.Println("Running database migrations...")
	err = gorm_db.AutoMigrate(gormDB,
		&schedDB.Task{}, &schedDB.ScheduledTask{}, &schedDB.WorkEvent{}, &schedDB.AppSettings{})
	if err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}
	stdlog.Println("Database migration successful.")

	reminderProducer := schedKafka.NewReminderProducer()
	scheduleEventsProducer := schedKafka.NewScheduleEventsProducer()

	reconciler := services.NewReconcileService(gormDB, scheduleEventsProducer)

	notificationService, err := services.NewNotificationService(appCtx, gormDB, reminderProducer, reconciler)
	if err != nil {
		stdlog.Fatalf("Failed to create notification service: %v", err)
	}
	if err := notificationService.Start(); err != nil {
		stdlog.Fatalf("Failed to start notification service: %v", err)
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	hlog.SetOutput(os.Stdout)
	hlog.SetLevel(hlog.LevelInfo)

	h := server.Default(server.WithHostPorts(serverAddr), server.WithExitWaitTime(5*time.Second))

	taskHandler := api.NewTaskHandler(gormDB, reconciler)
	scheduleHandler := api.NewScheduleHandler(gormDB, reconciler)
	eventHandler := api.NewEventHandler(gormDB, reconciler)
	settingsHandler := api.NewSettingsHandler(gormDB, reconciler)

	taskGroup := h.Group("/tasks")
	{
		taskGroup.POST("", taskHandler.CreateTask)
		taskGroup.GET("", taskHandler.GetTasks)
		taskGroup.GET("/:id", taskHandler.GetTaskByID)
		taskGroup.PUT("/:id", taskHandler.UpdateTask)
		taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	}
	scheduleGroup := h.Group("/schedules")
	{
		scheduleGroup.GET("", scheduleHandler.GetSchedules)
		scheduleGroup.POST("/:id/complete", scheduleHandler.CompleteSchedule)
		scheduleGroup.DELETE("/:id", scheduleHandler.DeleteSchedule)
	}
	eventGroup := h.Group("/events")
	{
		eventGroup.POST("", eventHandler.CreateEvent)
		eventGroup.GET("", eventHandler.GetEvents)
		eventGroup.DELETE("/:id", eventHandler.DeleteEvent)
	}
	h.POST("/calendar/toggle", eventHandler.ToggleDay)
	settingsGroup := h.Group("/settings")
	{
		settingsGroup.GET("", settingsHandler.GetSettings)
		settingsGroup.PUT("", settingsHandler.UpdateSettings)
	}
	adminGroup := h.Group("/admin")
	adminGroup.POST("/reconcile", func(c context.Context, ctxReq *app.RequestContext) {
		userID := uint(1)
		if raw := ctxReq.Query("user_id"); raw != "" {
			if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil && parsed > 0 {
				userID = uint(parsed)
			}
		}
		if err := reconciler.Reconcile(c, userID); err != nil {
			ctxReq.JSON(http.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctxReq.JSON(http.StatusOK, utils.H{"message": "Reconciliation triggered"})
	})

	h.GET("/ping", func(c context.Context, ctxReq *app.RequestContext) {
		ctxReq.JSON(http.StatusOK, utils.H{"message": "pong"})
	})

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		hlog.Infof("Received signal: %s. Initiating graceful shutdown...", sig)

		appCancel()

		shutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer httpShutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("Hertz server shutdown error: %v", err)
		} else {
			hlog.Info("Hertz server gracefully stopped.")
		}

		notificationService.Stop()

		if err := reminderProducer.Close(); err != nil {
			hlog.Errorf("Kafka reminder producer close error: %v", err)
		}
		if err := scheduleEventsProducer.Close(); err != nil {
			hlog.Errorf("Kafka schedule-events producer close error: %v", err)
		} else {
			hlog.Info("Kafka producers closed.")
		}
		hlog.Info("Task Scheduler gracefully shut down.")
	}()

	hlog.Infof("Task Scheduler Service fully initialized and starting Hertz server on %s...", serverAddr)
	h.Spin()

	stdlog.Println("Task Scheduler Service has been shut down.")
}
