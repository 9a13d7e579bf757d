package models

import (
	"time"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

type OrderModel struct {
	ID 		  string 			 `gorm:"primaryKey"`
	Status 	  domain.OrderStatus `gorm:"index"`
	Version   int64
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
