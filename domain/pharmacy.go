package domain

import "time"

// SubscriptionStatus is the billing state of a pharmacy listing.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

type Pharmacy struct {
	ID                 int64              `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Address            string             `db:"address" json:"address"`
	Latitude           *float64           `db:"latitude" json:"latitude"`
	Longitude          *float64           `db:"longitude" json:"longitude"`
	Phone              string             `db:"phone" json:"phone"`
	OwnerID            *int64             `db:"owner_id" json:"-"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (p Pharmacy) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}
