package domain

import "time"

type Role string

const (
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
