package domain

import "time"

// NotificationKind categorizes user-facing notifications.
type NotificationKind string

const (
	NotificationCheckedOut              NotificationKind = "checked_out"
	NotificationAutomaticCheckoutFailed NotificationKind = "automatic_checkout_failed"
	NotificationDataAccessed            NotificationKind = "data_accessed"
)

// Notification is an entry of the in-app inbox.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}
