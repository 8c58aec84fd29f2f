package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/domain"
)

const (
	medicationColumns = `id, name, category, generic_name, description, created_at`
	pharmacyColumns   = `id, name, address, latitude, longitude, phone, owner_id, subscription_status, created_at`
)

// Catalog stores medications and pharmacies.
type Catalog struct {
	db *sqlx.DB
}

func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

var _ CatalogRepository = (*Catalog)(nil)

func (c *Catalog) GetMedication(ctx context.Context, id int64) (*domain.Medication, error) {
	var m domain.Medication
	err := sqlx.GetContext(ctx, conn(ctx, c.db), &m, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication %d: %w", id, err)
	}
	return &m, nil
}

// MedicationByName looks a medication up by its exact name, ignoring case.
func (c *Catalog) MedicationByName(ctx context.Context, name string) (*domain.Medication, error) {
	var m domain.Medication
	err := sqlx.GetContext(ctx, conn(ctx, c.db), &m,
		`SELECT `+medicationColumns+` FROM medications WHERE LOWER(name) = LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication %q: %w", name, err)
	}
	return &m, nil
}

// FirstMedicationByName returns the earliest catalogued medication whose name
// contains substr, ignoring case.
func (c *Catalog) FirstMedicationByName(ctx context.Context, substr string) (*domain.Medication, error) {
	var m domain.Medication
	err := sqlx.GetContext(ctx, conn(ctx, c.db), &m,
		`SELECT `+medicationColumns+` FROM medications WHERE LOWER(name) LIKE LOWER($1) ORDER BY id LIMIT 1`, likePattern(substr))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find medication %q: %w", substr, err)
	}
	return &m, nil
}

func (c *Catalog) SearchMedications(ctx context.Context, substr string, limit int) ([]domain.Medication, error) {
	meds := []domain.Medication{}
	err := sqlx.SelectContext(ctx, conn(ctx, c.db), &meds,
		`SELECT `+medicationColumns+` FROM medications WHERE LOWER(name) LIKE LOWER($1) ORDER BY id LIMIT $2`, likePattern(substr), limit)
	if err != nil {
		return nil, fmt.Errorf("search medications: %w", err)
	}
	return meds, nil
}

func (c *Catalog) MedicationsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Medication, error) {
	out := make(map[int64]domain.Medication, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ext := conn(ctx, c.db)
	query, args, err := sqlx.In(`SELECT `+medicationColumns+` FROM medications WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare medications query: %w", err)
	}
	var meds []domain.Medication
	if err := sqlx.SelectContext(ctx, ext, &meds, ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load medications: %w", err)
	}
	for _, m := range meds {
		out[m.ID] = m
	}
	return out, nil
}

// CreateMedication inserts m and reports false when a medication with the
// same name already exists.
func (c *Catalog) CreateMedication(ctx context.Context, m *domain.Medication) (bool, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err := conn(ctx, c.db).QueryRowxContext(ctx,
		`INSERT INTO medications (name, category, generic_name, description, created_at) VALUES ($1, $2, $3, $4, $5)
                ON CONFLICT DO NOTHING RETURNING id`,
		m.Name, m.Category, m.GenericName, m.Description, m.CreatedAt).Scan(&m.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create medication %q: %w", m.Name, err)
	}
	return true, nil
}

func (c *Catalog) PharmacyByOwner(ctx context.Context, ownerID int64) (*domain.Pharmacy, error) {
	var p domain.Pharmacy
	err := sqlx.GetContext(ctx, conn(ctx, c.db), &p, `SELECT `+pharmacyColumns+` FROM pharmacies WHERE owner_id = $1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pharmacy for owner %d: %w", ownerID, err)
	}
	return &p, nil
}

func (c *Catalog) PharmaciesByIDs(ctx context.Context, ids []int64) (map[int64]domain.Pharmacy, error) {
	out := make(map[int64]domain.Pharmacy, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ext := conn(ctx, c.db)
	query, args, err := sqlx.In(`SELECT `+pharmacyColumns+` FROM pharmacies WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare pharmacies query: %w", err)
	}
	var pharmacies []domain.Pharmacy
	if err := sqlx.SelectContext(ctx, ext, &pharmacies, ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load pharmacies: %w", err)
	}
	for _, p := range pharmacies {
		out[p.ID] = p
	}
	return out, nil
}

func (c *Catalog) CreatePharmacy(ctx context.Context, p *domain.Pharmacy) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = domain.SubscriptionInactive
	}
	err := conn(ctx, c.db).QueryRowxContext(ctx,
		`INSERT INTO pharmacies (name, address, latitude, longitude, phone, owner_id, subscription_status, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.Name, p.Address, p.Latitude, p.Longitude, p.Phone, p.OwnerID, string(p.SubscriptionStatus), p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create pharmacy %q: %w", p.Name, err)
	}
	return nil
}
