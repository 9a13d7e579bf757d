package logger

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type OrderCompletedEvent struct {
	ID 		  uint `gorm:"primaryKey"`
	OrderID   string
	Version   int64
	Timestamp time.Time
}

type OrderFailedEvent struct {
	ID 		  uint `gorm:"primaryKey"`
	OrderID   string
	Version   int64
	Reason 	  string
	Timestamp time.Time
}

// OrderEventLogger records terminal order outcomes for audit. Failures to
// write audit rows never affect message settlement.
type OrderEventLogger interface {
	LogOrderCompleted(ctx context.Context, event OrderCompletedEvent) error
	LogOrderFailed(ctx context.Context, event OrderFailedEvent) error
}

type PGOrderEventLogger struct {
	db *gorm.DB
}

func NewPGOrderEventLogger(db *gorm.DB) *PGOrderEventLogger {
	return &PGOrderEventLogger{db: db}
}

func (l *PGOrderEventLogger) LogOrderCompleted(ctx context.Context, event OrderCompletedEvent) error {
	return l.db.WithContext(ctx).Create(&event).Error
}

func (l *PGOrderEventLogger) LogOrderFailed(ctx context.Context, event OrderFailedEvent) error {
	return l.db.WithContext(ctx).Create(&event).Error
}

// NopOrderEventLogger discards audit events. Used with the in-memory store.
type NopOrderEventLogger struct{}

func (NopOrderEventLogger) LogOrderCompleted(ctx context.Context, event OrderCompletedEvent) error {
	return nil
}

func (NopOrderEventLogger) LogOrderFailed(ctx context.Context, event OrderFailedEvent) error {
	return nil
}
