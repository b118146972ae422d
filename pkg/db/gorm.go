package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormDB initializes and returns a GORM DB instance.
// It uses environment variables for configuration.
// DB_DSN for the database connection string.
// DB_TYPE for "mysql" or "sqlite" (defaults to sqlite for dev).
func NewGormDB() (*gorm.DB, error) {
	dbType := os.Getenv("DB_TYPE")
	dsn := os.Getenv("DB_DSN")

	var dialector gorm.Dialector

	if dbType == "mysql" {
		if dsn == "" {
			dsn = "root:@tcp(127.0.0.1:3306)/task_scheduler?charset=utf8mb4&parseTime=True&loc=Local"
			log.Println("Using default MySQL DSN: ", dsn)
		}
		dialector = mysql.Open(dsn)
	} else {
		// Default to SQLite for ease of local development
		if dsn == "" {
			dsn = "scheduler.db"
			log.Println("Using default SQLite DSN: ", dsn)
		}
		dialector = sqlite.Open(dsn)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully.")
	return db, nil
}

// AutoMigrate performs auto-migration for the given GORM models.
func AutoMigrate(db *gorm.DB, models ...interface{}) error {
	err := db.AutoMigrate(models...)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	log.Println("Database migration completed successfully for provided models.")
	return nil
}
