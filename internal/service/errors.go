package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that map errors to responses.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindInvalidTransition
	KindInvalidStatus
	KindForbidden
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindInvalidTransition:
		return "INVALID_TRANSITION"
	case KindInvalidStatus:
		return "INVALID_STATUS"
	case KindForbidden:
		return "FORBIDDEN"
	case KindConflict:
		return "CONFLICT"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// Error is a business-rule failure with a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewInsufficientStock(message string) *Error {
	return &Error{Kind: KindInsufficientStock, Message: message}
}

func NewInvalidTransitionf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidStatusf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidStatus, Message: fmt.Sprintf(format, args...)}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewUnauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Client-facing messages.
const (
	ErrMsgMedicationNotFound    = "Medication not found"
	ErrMsgPharmacyNotFound      = "Pharmacy not found"
	ErrMsgInventoryNotFound     = "Inventory item not found"
	ErrMsgReservationNotFound   = "Reservation not found"
	ErrMsgNoStock               = "No pharmacies found with this medication in stock"
	ErrMsgNotEnoughStock        = "Not enough stock available"
	ErrMsgMedicationRequired    = "Medication name is required"
	ErrMsgMedicationIDRequired  = "Medication ID is required"
	ErrMsgPharmacyAndMedication = "Pharmacy and medication are required"
	ErrMsgQuantityPositive      = "Quantity must be at least 1"
	ErrMsgStockNegative         = "Stock quantity cannot be negative"
	ErrMsgPriceNegative         = "Price cannot be negative"
	ErrMsgStatusRequired        = "Status is required"
)
