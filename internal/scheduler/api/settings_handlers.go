package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	schedDB "task-scheduler-service/internal/scheduler/db"
	"task-scheduler-service/internal/scheduler/services"
)

type SettingsHandler struct {
	DB         *gorm.DB
	Reconciler *services.ReconcileService
}

func NewSettingsHandler(db *gorm.DB, reconciler *services.ReconcileService) *SettingsHandler {
	return &SettingsHandler{DB: db, Reconciler: reconciler}
}

type UpdateSettingsRequest struct {
	ScheduleInterval   float64 `json:"schedule_interval" validate:"required"`
	StartTimeMorning   int     `json:"start_time_morning"`
	StartTimeAfternoon int     `json:"start_time_afternoon"`
	MaxTasksPerDay     int     `json:"max_tasks_per_day" validate:"required"`
}

func (h *SettingsHandler) GetSettings(ctx context.Context, c *app.RequestContext) {
	userID := userIDFromRequest(c)
	var row schedDB.AppSettings
	err := h.DB.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, schedDB.DefaultSettings(userID))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch settings: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *SettingsHandler) UpdateSettings(ctx context.Context, c *app.RequestContext) {
	var req UpdateSettingsRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if req.ScheduleInterval <= 0 {
		c.JSON(http.StatusBadRequest, utils.H{"error": "schedule_interval must be positive"})
		return
	}
	if req.StartTimeMorning < 0 || req.StartTimeMorning > 23 ||
		req.StartTimeAfternoon < 0 || req.StartTimeAfternoon > 23 {
		c.JSON(http.StatusBadRequest, utils.H{"error": "start hours must be within 0..23"})
		return
	}
	if req.MaxTasksPerDay < 1 {
		c.JSON(http.StatusBadRequest, utils.H{"error": "max_tasks_per_day must be at least 1"})
		return
	}

	userID := userIDFromRequest(c)
	var row schedDB.AppSettings
	err := h.DB.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = schedDB.DefaultSettings(userID)
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch settings: " + err.Error()})
		return
	}

	row.ScheduleInterval = req.ScheduleInterval
	row.StartTimeMorning = req.StartTimeMorning
	row.StartTimeAfternoon = req.StartTimeAfternoon
	row.MaxTasksPerDay = req.MaxTasksPerDay
	if err := h.DB.Save(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to save settings: " + err.Error()})
		return
	}

	if err := h.Reconciler.Reconcile(ctx, userID); err != nil {
		log.Printf("Reconcile after settings change failed for user %d: %v", userID, err)
		c.JSON(http.StatusOK, utils.H{"result": row, "reconcile_warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}
