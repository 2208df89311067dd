package domain

import "time"

type WebhookRegistration struct {
	UserID    int64     `json:"userId"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryFailed    DeliveryState = "failed"
)

// Delivery describes one webhook notification and its terminal outcome.
type Delivery struct {
	ID         string
	UserID     int64
	Event      string
	URL        string
	State      DeliveryState
	Attempts   int
	StatusCode int
	LastError  string
	CreatedAt  time.Time
	FinishedAt time.Time
}
