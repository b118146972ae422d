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
	"task-scheduler-service/internal/scheduler/engine"
	"task-scheduler-service/internal/scheduler/services"
)

type EventHandler struct {
	DB         *gorm.DB
	Reconciler *services.ReconcileService
}

func NewEventHandler(db *gorm.DB, reconciler *services.ReconcileService) *EventHandler {
	return &EventHandler{DB: db, Reconciler: reconciler}
}

type CreateEventRequest struct {
	Title     string    `json:"title" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	EventType string    `json:"event_type" validate:"required"`
}

type ToggleDayRequest struct {
	Date string `json:"date" validate:"required"` // YYYY-MM-DD
}

func validEventType(t string) bool {
	switch engine.EventType(t) {
	case engine.EventNightShift, engine.EventDayShift, engine.EventDayOff, engine.EventOther:
		return true
	}
	// The override markers are written through the toggle endpoint only.
	return false
}

func (h *EventHandler) CreateEvent(ctx context.Context, c *app.RequestContext) {
	var req CreateEventRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !validEventType(req.EventType) {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Unknown event_type: " + req.EventType})
		return
	}
	if req.EndTime.Before(req.StartTime) {
		c.JSON(http.StatusBadRequest, utils.H{"error": "end_time precedes start_time"})
		return
	}

	userID := userIDFromRequest(c)
	event := schedDB.WorkEvent{
		UserID:    userID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		EventType: req.EventType,
	}
	if result := h.DB.Create(&event); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create event: " + result.Error.Error()})
		return
	}
	h.respondAfterReconcile(ctx, c, http.StatusCreated, userID, event)
}

func (h *EventHandler) GetEvents(ctx context.Context, c *app.RequestContext) {
	var rows []schedDB.WorkEvent
	if err := h.DB.Where("user_id = ?", userIDFromRequest(c)).Order("start_time").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch events: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *EventHandler) DeleteEvent(ctx context.Context, c *app.RequestContext) {
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid event id"})
		return
	}
	userID := userIDFromRequest(c)

	result := h.DB.Where("user_id = ?", userID).Delete(&schedDB.WorkEvent{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete event: " + result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, utils.H{"error": "Event not found"})
		return
	}
	h.respondAfterReconcile(ctx, c, http.StatusOK, userID, utils.H{"deleted": id})
}

// ToggleDay flips a day's scheduling override. A day with a marker loses it;
// a naturally free day gains schedule-exclude; a workday gains
// schedule-include. The markers are synthetic calendar entries resolved by
// the reconcile service, never by the engine.
func (h *EventHandler) ToggleDay(ctx context.Context, c *app.RequestContext) {
	var req ToggleDayRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid date, expected YYYY-MM-DD: " + err.Error()})
		return
	}
	userID := userIDFromRequest(c)

	var dayRows []schedDB.WorkEvent
	err = h.DB.
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, day, day.AddDate(0, 0, 1)).
		Find(&dayRows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch events: " + err.Error()})
		return
	}

	var marker *schedDB.WorkEvent
	var naturalEvents []engine.WorkEvent
	for i, row := range dayRows {
		t := engine.EventType(row.EventType)
		if t == engine.EventScheduleExclude || t == engine.EventScheduleInclude {
			marker = &dayRows[i]
			continue
		}
		naturalEvents = append(naturalEvents, row.ToEngine())
	}

	if marker != nil {
		if err := h.DB.Delete(marker).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to remove override: " + err.Error()})
			return
		}
		h.respondAfterReconcile(ctx, c, http.StatusOK, userID, utils.H{"date": req.Date, "override": nil})
		return
	}

	markerType := engine.EventScheduleInclude
	if engine.IsHoliday(day, naturalEvents) {
		markerType = engine.EventScheduleExclude
	}
	row := schedDB.WorkEvent{
		UserID:    userID,
		Title:     string(markerType),
		StartTime: day,
		EndTime:   day,
		EventType: string(markerType),
	}
	if err := h.DB.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create override: " + err.Error()})
		return
	}
	h.respondAfterReconcile(ctx, c, http.StatusOK, userID, utils.H{"date": req.Date, "override": string(markerType)})
}

func (h *EventHandler) respondAfterReconcile(ctx context.Context, c *app.RequestContext, status int, userID uint, body interface{}) {
	if err := h.Reconciler.Reconcile(ctx, userID); err != nil {
		log.Printf("Reconcile after calendar mutation failed for user %d: %v", userID, err)
		c.JSON(status, utils.H{"result": body, "reconcile_warning": err.Error()})
		return
	}
	c.JSON(status, body)
}
