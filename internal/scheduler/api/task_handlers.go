package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	schedDB "task-scheduler-service/internal/scheduler/db"
	"task-scheduler-service/internal/scheduler/services"
	"task-scheduler-service/pkg/validation"
)

type TaskHandler struct {
	DB         *gorm.DB
	Reconciler *services.ReconcileService
}

func NewTaskHandler(db *gorm.DB, reconciler *services.ReconcileService) *TaskHandler {
	return &TaskHandler{DB: db, Reconciler: reconciler}
}

type CreateTaskRequest struct {
	Title               string     `json:"title" validate:"required"`
	ScheduleType        string     `json:"schedule_type" validate:"required"`
	Priority            int        `json:"priority"`
	ManualScheduledTime *time.Time `json:"manual_scheduled_time"`
	Recurrence          string     `json:"recurrence"`
}

type UpdateTaskRequest struct {
	Title               *string    `json:"title"`
	ScheduleType        *string    `json:"schedule_type"`
	Priority            *int       `json:"priority"`
	ManualScheduledTime *time.Time `json:"manual_scheduled_time"`
	Recurrence          *string    `json:"recurrence"`
}

func validScheduleType(t string) bool {
	switch t {
	case "priority", "time", "recurrence", "none":
		return true
	}
	return false
}

func (h *TaskHandler) CreateTask(ctx context.Context, c *app.RequestContext) {
	var req CreateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !validScheduleType(req.ScheduleType) {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Unknown schedule_type: " + req.ScheduleType})
		return
	}
	if (req.ScheduleType == "time" || req.ScheduleType == "recurrence") && req.ManualScheduledTime == nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "manual_scheduled_time is required for time and recurrence tasks"})
		return
	}
	if req.ScheduleType == "recurrence" && req.Recurrence == "" {
		c.JSON(http.StatusBadRequest, utils.H{"error": "recurrence rule is required for recurrence tasks"})
		return
	}
	if err := validation.ValidateRecurrenceRule(req.Recurrence); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{
			"error":             "Recurrence rule does not match the schema.",
			"validation_errors": err.Error(),
		})
		return
	}

	userID := userIDFromRequest(c)
	task := schedDB.Task{
		UserID:              userID,
		Title:               req.Title,
		ScheduleType:        req.ScheduleType,
		Priority:            req.Priority,
		ManualScheduledTime: req.ManualScheduledTime,
		Recurrence:          req.Recurrence,
	}

	if result := h.DB.Create(&task); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create task: " + result.Error.Error()})
		return
	}

	// Pinned tasks get their schedule row directly; the engine only ever
	// treats it as occupancy.
	if req.ScheduleType == "time" || req.ScheduleType == "recurrence" {
		row := schedDB.ScheduledTask{
			UserID:              userID,
			TaskID:              task.ID,
			Title:               task.Title,
			ScheduleType:        task.ScheduleType,
			Priority:            task.Priority,
			ManualScheduledTime: task.ManualScheduledTime,
			Recurrence:          task.Recurrence,
			ScheduledTime:       *req.ManualScheduledTime,
		}
		if result := h.DB.Create(&row); result.Error != nil {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create schedule for task: " + result.Error.Error()})
			return
		}
	}

	h.respondAfterReconcile(ctx, c, http.StatusCreated, userID, task)
}

func (h *TaskHandler) GetTasks(ctx context.Context, c *app.RequestContext) {
	var tasks []schedDB.Task
	if err := h.DB.Where("user_id = ?", userIDFromRequest(c)).Order("created_at").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch tasks: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(ctx context.Context, c *app.RequestContext) {
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid task id"})
		return
	}
	var task schedDB.Task
	err := h.DB.Where("user_id = ?", userIDFromRequest(c)).First(&task, id).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(ctx context.Context, c *app.RequestContext) {
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid task id"})
		return
	}
	var req UpdateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	userID := userIDFromRequest(c)
	var task schedDB.Task
	err := h.DB.Where("user_id = ?", userID).First(&task, id).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.ScheduleType != nil {
		if !validScheduleType(*req.ScheduleType) {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Unknown schedule_type: " + *req.ScheduleType})
			return
		}
		task.ScheduleType = *req.ScheduleType
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.ManualScheduledTime != nil {
		task.ManualScheduledTime = req.ManualScheduledTime
	}
	if req.Recurrence != nil {
		if err := validation.ValidateRecurrenceRule(*req.Recurrence); err != nil {
			c.JSON(http.StatusBadRequest, utils.H{
				"error":             "Recurrence rule does not match the schema.",
				"validation_errors": err.Error(),
			})
			return
		}
		task.Recurrence = *req.Recurrence
	}

	if err := h.DB.Save(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to update task: " + err.Error()})
		return
	}

	// Re-sync the denormalized copies before recomputing placement.
	if err := h.Reconciler.ProjectTaskEdits(ctx, task); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to update schedules for task: " + err.Error()})
		return
	}

	h.respondAfterReconcile(ctx, c, http.StatusOK, userID, task)
}

func (h *TaskHandler) DeleteTask(ctx context.Context, c *app.RequestContext) {
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid task id"})
		return
	}
	userID := userIDFromRequest(c)

	var task schedDB.Task
	err := h.DB.Where("user_id = ?", userID).First(&task, id).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + err.Error()})
		return
	}

	if err := h.DB.Delete(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete task: " + err.Error()})
		return
	}
	// Completed schedule rows stay as history; open ones go with the task.
	err = h.DB.Where("task_id = ? AND user_id = ? AND is_completed = ?", id, userID, false).
		Delete(&schedDB.ScheduledTask{}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete schedules for task: " + err.Error()})
		return
	}

	h.respondAfterReconcile(ctx, c, http.StatusOK, userID, utils.H{"deleted": id})
}

func (h *TaskHandler) respondAfterReconcile(ctx context.Context, c *app.RequestContext, status int, userID uint, body interface{}) {
	if err := h.Reconciler.Reconcile(ctx, userID); err != nil {
		log.Printf("Reconcile after task mutation failed for user %d: %v", userID, err)
		c.JSON(status, utils.H{"result": body, "reconcile_warning": err.Error()})
		return
	}
	c.JSON(status, body)
}
