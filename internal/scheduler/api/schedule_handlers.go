package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	schedDB "task-scheduler-service/internal/scheduler/db"
	"task-scheduler-service/internal/scheduler/services"
)

type ScheduleHandler struct {
	DB         *gorm.DB
	Reconciler *services.ReconcileService
}

func NewScheduleHandler(db *gorm.DB, reconciler *services.ReconcileService) *ScheduleHandler {
	return &ScheduleHandler{DB: db, Reconciler: reconciler}
}

func (h *ScheduleHandler) GetSchedules(ctx context.Context, c *app.RequestContext) {
	query := h.DB.Where("user_id = ?", userIDFromRequest(c))
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid 'from' timestamp: " + err.Error()})
			return
		}
		query = query.Where("scheduled_time >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid 'to' timestamp: " + err.Error()})
			return
		}
		query = query.Where("scheduled_time < ?", t)
	}

	var rows []schedDB.ScheduledTask
	if err := query.Order("scheduled_time").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch schedules: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CompleteSchedule marks one schedule done and, for recurrence schedules,
// returns the successor instance. Completion deliberately does not trigger a
// full reconciliation pass.
func (h *ScheduleHandler) CompleteSchedule(ctx context.Context, c *app.RequestContext) {
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid schedule id"})
		return
	}
	next, err := h.Reconciler.CompleteSchedule(ctx, userIDFromRequest(c), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, utils.H{"error": "Schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to complete schedule: " + err.Error()})
		return
	}
	if next != nil {
		c.JSON(http.StatusOK, utils.H{"completed": id, "next": next})
		return
	}
	c.JSON(http.StatusOK, utils.H{"completed": id})
}

// DeleteSchedule removes a single schedule row. Deleting a non-completed
// automatic schedule is ephemeral: the backlog task still exists, so the next
// reconciliation pass will place it again.
func (h *ScheduleHandler) DeleteSchedule(ctx context.Context, c *app.RequestContext) {
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid schedule id"})
		return
	}
	userID := userIDFromRequest(c)

	var row schedDB.ScheduledTask
	err := h.DB.Where("user_id = ?", userID).First(&row, id).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, utils.H{"error": "Schedule not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch schedule: " + err.Error()})
		return
	}

	if err := h.DB.Delete(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete schedule: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"deleted": id})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
