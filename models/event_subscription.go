package models

import "time"

// UserSubscription is one telegram chat subscribed to event notifications.
type UserSubscription struct {
	UserID           int       `json:"user_id" bson:"user_id"`
	User             string    `json:"user" bson:"user"`
	SubscriptionType string    `json:"subscription_type" bson:"subscription_type"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
