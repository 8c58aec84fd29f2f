package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("conflict")
)

// TxManager runs fn inside a single database transaction. Repositories called
// with the ctx handed to fn use that transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CatalogRepository interface {
	GetMedication(ctx context.Context, id int64) (*domain.Medication, error)
	MedicationByName(ctx context.Context, name string) (*domain.Medication, error)
	FirstMedicationByName(ctx context.Context, substr string) (*domain.Medication, error)
	SearchMedications(ctx context.Context, substr string, limit int) ([]domain.Medication, error)
	MedicationsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Medication, error)
	CreateMedication(ctx context.Context, m *domain.Medication) (bool, error)

	PharmacyByOwner(ctx context.Context, ownerID int64) (*domain.Pharmacy, error)
	PharmaciesByIDs(ctx context.Context, ids []int64) (map[int64]domain.Pharmacy, error)
	CreatePharmacy(ctx context.Context, p *domain.Pharmacy) error
}

// InventoryFilter narrows a pharmacy's inventory listing.
type InventoryFilter struct {
	PharmacyID int64
	Search     string
	Limit      int
	Offset     int
}

type InventoryRepository interface {
	Get(ctx context.Context, pharmacyID, medicationID int64) (*domain.InventoryEntry, error)
	GetByID(ctx context.Context, pharmacyID, id int64) (*domain.InventoryEntry, error)
	// Merge adds delta to an existing entry and overwrites its price, or
	// creates the entry when the pair has none.
	Merge(ctx context.Context, pharmacyID, medicationID, delta int64, price decimal.Decimal, at time.Time) (*domain.InventoryEntry, error)
	Update(ctx context.Context, e *domain.InventoryEntry) error
	// Debit and Credit report false when no row was changed.
	Debit(ctx context.Context, pharmacyID, medicationID, quantity int64, at time.Time) (bool, error)
	Credit(ctx context.Context, pharmacyID, medicationID, quantity int64, at time.Time) (bool, error)
	ListInStock(ctx context.Context, medicationID int64) ([]domain.InventoryEntry, error)
	List(ctx context.Context, f InventoryFilter) ([]domain.InventoryEntry, int64, error)
	LowStock(ctx context.Context, pharmacyID int64, threshold int64, limit int) ([]domain.InventoryEntry, int64, error)
}

// ReservationFilter selects reservations by owner. Exactly one of UserID and
// PharmacyID is normally set.
type ReservationFilter struct {
	UserID     int64
	PharmacyID int64
	Status     domain.ReservationStatus
	Limit      int
	Offset     int
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	// UpdateStatus moves a reservation from one status to another and reports
	// false if it was no longer in the expected status.
	UpdateStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (bool, error)
	List(ctx context.Context, f ReservationFilter) ([]domain.Reservation, int64, error)
	Revenue(ctx context.Context, pharmacyID int64, status domain.ReservationStatus, from, to time.Time) (decimal.Decimal, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

func likePattern(substr string) string {
	return "%" + substr + "%"
}
