package domain

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	StatusPending 	 OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusFailed 	 OrderStatus = "FAILED"
)

// Terminal reports whether no further transition may leave the status.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Order struct {
	ID 		  string
	Status 	  OrderStatus
	Version   int64
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type QueueType string

const (
	OrderQueue 	 QueueType = "orders"
	PaymentQueue QueueType = "payments"
)

type OrderEvent string

const (
	EventStartProcessing   OrderEvent = "START_PROCESSING"
	EventPaymentConfirmed  OrderEvent = "PAYMENT_CONFIRMED"
	EventPaymentRejected   OrderEvent = "PAYMENT_REJECTED"
	EventFulfillmentFailed OrderEvent = "FULFILLMENT_FAILED"
)

// QueueMessage is the JSON envelope carried on both channels.
type QueueMessage struct {
	OrderID 	 string 		 `json:"orderId"`
	QueueType 	 QueueType 		 `json:"queueType"`
	Payload 	 json.RawMessage `json:"payload"`
	AttemptCount int 			 `json:"attemptCount"`
}

// PaymentResult is the payload shape on the payment channel.
type PaymentResult struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

const (
	PaymentResultConfirmed = "confirmed"
	PaymentResultRejected  = "rejected"
)
