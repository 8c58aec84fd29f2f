package domain

import "time"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// ParseReservationStatus returns false for strings outside the status domain.
func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch st := ReservationStatus(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo encodes pending -> confirmed -> completed with cancellation
// reachable from both non-terminal states.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

type Reservation struct {
	ID            int64             `db:"id" json:"id"`
	UserID        int64             `db:"user_id" json:"user_id"`
	PharmacyID    int64             `db:"pharmacy_id" json:"pharmacy_id"`
	MedicationID  int64             `db:"medication_id" json:"medication_id"`
	Quantity      int64             `db:"quantity" json:"quantity"`
	Status        ReservationStatus `db:"status" json:"status"`
	CustomerName  string            `db:"customer_name" json:"customer_name"`
	CustomerPhone string            `db:"customer_phone" json:"customer_phone"`
	Notes         string            `db:"notes" json:"notes"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`

	Medication *Medication `db:"-" json:"medication,omitempty"`
	Pharmacy   *Pharmacy   `db:"-" json:"pharmacy,omitempty"`
}
