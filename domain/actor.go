package domain

// Actor is the authenticated caller resolved by the access boundary.
type Actor struct {
	UserID int64
	Role   Role
}
