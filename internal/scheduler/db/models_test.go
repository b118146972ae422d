package db

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"task-scheduler-service/internal/scheduler/engine"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDBFile := "test_gorm.db"
	_ = os.Remove(testDBFile)

	gormDB, err := gorm.Open(sqlite.Open(testDBFile), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = gormDB.AutoMigrate(&Task{}, &ScheduledTask{}, &WorkEvent{}, &AppSettings{})
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return gormDB
}

func teardownTestDB(gormDB *gorm.DB, t *testing.T) {
	sqlDB, err := gormDB.DB()
	if err == nil {
		err = sqlDB.Close()
		if err != nil {
			t.Logf("Warning: could not close test DB: %v", err)
		}
	}
	err = os.Remove("test_gorm.db")
	if err != nil && !os.IsNotExist(err) {
		t.Logf("Warning: could not remove test DB file: %v", err)
	}
}

func TestTaskCRUD(t *testing.T) {
	gormDB := setupTestDB(t)
	defer teardownTestDB(gormDB, t)

	task := Task{
		UserID:       1,
		Title:        "write report",
		ScheduleType: "priority",
		Priority:     4,
	}
	result := gormDB.Create(&task)
	assert.NoError(t, result.Error)
	assert.NotZero(t, task.ID)

	var fetched Task
	assert.NoError(t, gormDB.First(&fetched, task.ID).Error)
	assert.Equal(t, "write report", fetched.Title)
	assert.Equal(t, 4, fetched.Priority)

	assert.NoError(t, gormDB.Model(&fetched).Update("priority", 5).Error)
	assert.NoError(t, gormDB.First(&fetched, task.ID).Error)
	assert.Equal(t, 5, fetched.Priority)

	assert.NoError(t, gormDB.Delete(&Task{}, task.ID).Error)
	err := gormDB.First(&Task{}, task.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestScheduledTaskRoundTrip(t *testing.T) {
	gormDB := setupTestDB(t)
	defer teardownTestDB(gormDB, t)

	at := time.Date(2024, time.March, 9, 8, 0, 0, 0, time.UTC)
	row, err := ScheduledTaskFromEngine(1, engine.ScheduledTask{
		TaskID:        7,
		Title:         "gym",
		ScheduleType:  engine.ScheduleRecurrence,
		ScheduledTime: at,
		Recurrence:    &engine.RecurrenceRule{Type: engine.RecurWeekly, DaysOfWeek: []int{6}},
	})
	require.NoError(t, err)
	require.NoError(t, gormDB.Create(&row).Error)

	var fetched ScheduledTask
	require.NoError(t, gormDB.First(&fetched, row.ID).Error)

	snap, err := fetched.ToEngine()
	require.NoError(t, err)
	assert.Equal(t, uint(7), snap.TaskID)
	assert.Equal(t, engine.ScheduleRecurrence, snap.ScheduleType)
	require.NotNil(t, snap.Recurrence)
	assert.Equal(t, engine.RecurWeekly, snap.Recurrence.Type)
	assert.Equal(t, []int{6}, snap.Recurrence.DaysOfWeek)
	assert.True(t, at.Equal(snap.ScheduledTime))
}

func TestTaskToEngineBadRule(t *testing.T) {
	task := Task{Recurrence: "{not json"}
	_, err := task.ToEngine()
	assert.Error(t, err)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings(3)
	assert.Equal(t, uint(3), s.UserID)
	es := s.ToEngine()
	assert.Equal(t, 8, es.StartTimeMorning)
	assert.Equal(t, 13, es.StartTimeAfternoon)
	assert.Equal(t, 3, es.MaxTasksPerDay)
	assert.Equal(t, float64(1), es.ScheduleInterval)
}
