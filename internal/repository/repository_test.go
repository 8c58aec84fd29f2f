package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmalink/m/domain"
	"pharmalink/m/internal/dbtest"
)

type fixture struct {
	db       *sqlx.DB
	catalog  *Catalog
	stock    *Inventory
	bookings *Reservations
	users    *Users
	tx       *SQLTx
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	return fixture{
		db:       db,
		catalog:  NewCatalog(db),
		stock:    NewInventory(db),
		bookings: NewReservations(db),
		users:    NewUsers(db),
		tx:       NewTxManager(db),
	}
}

func (f fixture) seed(t *testing.T) (patient domain.User, pharmacy domain.Pharmacy, med domain.Medication) {
	t.Helper()
	ctx := context.Background()
	patient = domain.User{Email: "Patient@Example.com", PasswordHash: "x", Role: domain.RolePatient, Name: "John"}
	require.NoError(t, f.users.Create(ctx, &patient))
	owner := domain.User{Email: "owner@example.com", PasswordHash: "x", Role: domain.RolePharmacist, Name: "Sarah"}
	require.NoError(t, f.users.Create(ctx, &owner))

	lat, lng := -1.2656, 36.8073
	pharmacy = domain.Pharmacy{Name: "Goodlife", Address: "Waiyaki Way", Latitude: &lat, Longitude: &lng, OwnerID: &owner.ID}
	require.NoError(t, f.catalog.CreatePharmacy(ctx, &pharmacy))

	med = domain.Medication{Name: "Panadol", Category: "Pain Relief", GenericName: "Paracetamol"}
	created, err := f.catalog.CreateMedication(ctx, &med)
	require.NoError(t, err)
	require.True(t, created)
	return patient, pharmacy, med
}

func TestCatalog_Medications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, _, panadol := f.seed(t)

	dup := domain.Medication{Name: "Panadol"}
	created, err := f.catalog.CreateMedication(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	extra := domain.Medication{Name: "Panadol Extra"}
	_, err = f.catalog.CreateMedication(ctx, &extra)
	require.NoError(t, err)

	first, err := f.catalog.FirstMedicationByName(ctx, "PANADOL")
	require.NoError(t, err)
	assert.Equal(t, panadol.ID, first.ID)

	found, err := f.catalog.SearchMedications(ctx, "nad", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = f.catalog.FirstMedicationByName(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	exact, err := f.catalog.MedicationByName(ctx, "panadol extra")
	require.NoError(t, err)
	assert.Equal(t, extra.ID, exact.ID)
	_, err = f.catalog.MedicationByName(ctx, "Panad")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := f.catalog.MedicationsByIDs(ctx, []int64{panadol.ID, extra.ID})
	require.NoError(t, err)
	assert.Equal(t, "Panadol Extra", byID[extra.ID].Name)
}

func TestCatalog_Pharmacies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, pharmacy, _ := f.seed(t)

	got, err := f.catalog.PharmacyByOwner(ctx, *pharmacy.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, pharmacy.ID, got.ID)
	assert.True(t, got.HasCoordinates())
	assert.Equal(t, domain.SubscriptionInactive, got.SubscriptionStatus)

	_, err = f.catalog.PharmacyByOwner(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	bare := domain.Pharmacy{Name: "No Coordinates"}
	require.NoError(t, f.catalog.CreatePharmacy(ctx, &bare))
	all, err := f.catalog.PharmaciesByIDs(ctx, []int64{pharmacy.ID, bare.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.False(t, all[bare.ID].HasCoordinates())
}

func TestInventory_MergeDebitCredit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, pharmacy, med := f.seed(t)
	now := time.Now().UTC()

	e, err := f.stock.Merge(ctx, pharmacy.ID, med.ID, 50, decimal.NewFromInt(500), now)
	require.NoError(t, err)
	assert.EqualValues(t, 50, e.StockQuantity)

	e, err = f.stock.Merge(ctx, pharmacy.ID, med.ID, 5, decimal.RequireFromString("450.50"), now)
	require.NoError(t, err)
	assert.EqualValues(t, 55, e.StockQuantity)
	assert.True(t, e.Price.Equal(decimal.RequireFromString("450.5")), "price %s", e.Price)

	ok, err := f.stock.Debit(ctx, pharmacy.ID, med.ID, 56, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.stock.Debit(ctx, pharmacy.ID, med.ID, 55, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.stock.Credit(ctx, pharmacy.ID, med.ID, 3, now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.stock.Get(ctx, pharmacy.ID, med.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.StockQuantity)

	ok, err = f.stock.Credit(ctx, pharmacy.ID, med.ID+100, 3, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInventory_ListAndLowStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, pharmacy, panadol := f.seed(t)
	ventolin := domain.Medication{Name: "Ventolin"}
	_, err := f.catalog.CreateMedication(ctx, &ventolin)
	require.NoError(t, err)

	base := time.Now().UTC()
	_, err = f.stock.Merge(ctx, pharmacy.ID, panadol.ID, 4, decimal.NewFromInt(10), base)
	require.NoError(t, err)
	_, err = f.stock.Merge(ctx, pharmacy.ID, ventolin.ID, 40, decimal.NewFromInt(20), base.Add(time.Second))
	require.NoError(t, err)

	list, total, err := f.stock.List(ctx, InventoryFilter{PharmacyID: pharmacy.ID, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, ventolin.ID, list[0].MedicationID, "most recently updated first")

	list, total, err = f.stock.List(ctx, InventoryFilter{PharmacyID: pharmacy.ID, Search: "pana", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, panadol.ID, list[0].MedicationID)

	low, lowTotal, err := f.stock.LowStock(ctx, pharmacy.ID, domain.LowStockThreshold, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, lowTotal)
	assert.Equal(t, panadol.ID, low[0].MedicationID)

	stocked, err := f.stock.ListInStock(ctx, ventolin.ID)
	require.NoError(t, err)
	assert.Len(t, stocked, 1)
}

func TestInventory_UpdateMissing(t *testing.T) {
	f := setup(t)
	err := f.stock.Update(context.Background(), &domain.InventoryEntry{ID: 42, PharmacyID: 1, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservations_StatusAndList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	patient, pharmacy, med := f.seed(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		r := domain.Reservation{UserID: patient.ID, PharmacyID: pharmacy.ID, MedicationID: med.ID, Quantity: 1, Status: domain.StatusPending}
		require.NoError(t, f.bookings.Create(ctx, &r))
		ids = append(ids, r.ID)
	}

	ok, err := f.bookings.UpdateStatus(ctx, ids[0], domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.bookings.UpdateStatus(ctx, ids[0], domain.StatusPending, domain.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok, "stale expected status must not match")

	list, total, err := f.bookings.List(ctx, ReservationFilter{UserID: patient.ID, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)

	list, total, err = f.bookings.List(ctx, ReservationFilter{PharmacyID: pharmacy.ID, Status: domain.StatusConfirmed, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, ids[0], list[0].ID)

	_, err = f.bookings.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservations_Revenue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	patient, pharmacy, med := f.seed(t)
	_, err := f.stock.Merge(ctx, pharmacy.ID, med.ID, 100, decimal.RequireFromString("12.50"), time.Now().UTC())
	require.NoError(t, err)

	march := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	book := func(qty int64, status domain.ReservationStatus, at time.Time) {
		r := domain.Reservation{UserID: patient.ID, PharmacyID: pharmacy.ID, MedicationID: med.ID, Quantity: qty, Status: status, CreatedAt: at}
		require.NoError(t, f.bookings.Create(ctx, &r))
	}
	book(2, domain.StatusCompleted, march.Add(36*time.Hour))
	book(1, domain.StatusCompleted, march)
	book(4, domain.StatusPending, march.Add(time.Hour))
	book(3, domain.StatusCompleted, march.Add(-time.Second))
	book(5, domain.StatusCompleted, april)

	total, err := f.bookings.Revenue(ctx, pharmacy.ID, domain.StatusCompleted, march, april)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("37.5").Equal(total), total.String())

	total, err = f.bookings.Revenue(ctx, pharmacy.ID+1, domain.StatusCompleted, march, april)
	require.NoError(t, err)
	assert.True(t, total.IsZero(), total.String())
}

func TestUsers_CreateConcurrentDuplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n = 6
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			u := domain.User{Email: "race@example.com", PasswordHash: "x", Role: domain.RolePatient, Name: "Race"}
			errs <- f.users.Create(ctx, &u)
		}()
	}
	created := 0
	for i := 0; i < n; i++ {
		err := <-errs
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, created)
}

func TestUsers_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	patient, _, _ := f.seed(t)
	assert.Equal(t, "patient@example.com", patient.Email)

	dup := domain.User{Email: "PATIENT@example.com", PasswordHash: "y", Role: domain.RolePatient, Name: "Other"}
	assert.ErrorIs(t, f.users.Create(ctx, &dup), ErrConflict)

	got, err := f.users.GetByEmail(ctx, " Patient@example.com ")
	require.NoError(t, err)
	assert.Equal(t, patient.ID, got.ID)
	assert.Equal(t, domain.RolePatient, got.Role)
}

func TestTxManager_RollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, pharmacy, med := f.seed(t)
	_, err := f.stock.Merge(ctx, pharmacy.ID, med.ID, 10, decimal.NewFromInt(1), time.Now().UTC())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = f.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := f.stock.Debit(ctx, pharmacy.ID, med.ID, 4, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := f.stock.Get(ctx, pharmacy.ID, med.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.StockQuantity)
}
