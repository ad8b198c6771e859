package database

import (
	"log"
	"strings"

	"github.com/codyseavey/vault-tracker/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Initialize(dbPath string) error {
	db, err := Open(dbPath, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the sqlite database at dsn and migrates the schema.
// Use ":memory:" for tests.
func Open(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	// Foreign keys are off by default in sqlite; collection deletes cascade to items
	db, err := gorm.Open(sqlite.Open(dsn+pragmaSuffix(dsn)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	if dsn == ":memory:" {
		// Every new connection to :memory: gets its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Println("Database connected successfully")

	err = db.AutoMigrate(
		&models.Profile{},
		&models.Collection{},
		&models.Item{},
		&models.CollectionValueSnapshot{},
	)
	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

func pragmaSuffix(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&_foreign_keys=on"
	}
	return "?_foreign_keys=on"
}
