package postgres

import (
	"log"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/config"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/logger"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MustInitDB(cfg *config.WorkerConfig) *gorm.DB {
	dsn := cfg.OrderDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	db.AutoMigrate(&models.OrderModel{}, &logger.OrderCompletedEvent{}, &logger.OrderFailedEvent{})

	return db
}
