package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
)

const inventoryColumns = `i.id, i.pharmacy_id, i.medication_id, i.stock_quantity, i.price, i.updated_at`

// Inventory stores per-pharmacy stock levels.
type Inventory struct {
	db *sqlx.DB
}

func NewInventory(db *sqlx.DB) *Inventory {
	return &Inventory{db: db}
}

var _ InventoryRepository = (*Inventory)(nil)

func (r *Inventory) Get(ctx context.Context, pharmacyID, medicationID int64) (*domain.InventoryEntry, error) {
	var e domain.InventoryEntry
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &e,
		`SELECT `+inventoryColumns+` FROM inventory i WHERE i.pharmacy_id = $1 AND i.medication_id = $2`, pharmacyID, medicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory (%d, %d): %w", pharmacyID, medicationID, err)
	}
	return &e, nil
}

func (r *Inventory) GetByID(ctx context.Context, pharmacyID, id int64) (*domain.InventoryEntry, error) {
	var e domain.InventoryEntry
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &e,
		`SELECT `+inventoryColumns+` FROM inventory i WHERE i.id = $1 AND i.pharmacy_id = $2`, id, pharmacyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory %d: %w", id, err)
	}
	return &e, nil
}

func (r *Inventory) Merge(ctx context.Context, pharmacyID, medicationID, delta int64, price decimal.Decimal, at time.Time) (*domain.InventoryEntry, error) {
	var e domain.InventoryEntry
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &e,
		`INSERT INTO inventory (pharmacy_id, medication_id, stock_quantity, price, updated_at) VALUES ($1, $2, $3, $4, $5)
                ON CONFLICT (pharmacy_id, medication_id) DO UPDATE
                SET stock_quantity = inventory.stock_quantity + excluded.stock_quantity, price = excluded.price, updated_at = excluded.updated_at
                RETURNING id, pharmacy_id, medication_id, stock_quantity, price, updated_at`,
		pharmacyID, medicationID, delta, price, at)
	if err != nil {
		return nil, fmt.Errorf("merge inventory (%d, %d): %w", pharmacyID, medicationID, err)
	}
	return &e, nil
}

func (r *Inventory) Update(ctx context.Context, e *domain.InventoryEntry) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE inventory SET stock_quantity = $1, price = $2, updated_at = $3 WHERE id = $4 AND pharmacy_id = $5`,
		e.StockQuantity, e.Price, e.UpdatedAt, e.ID, e.PharmacyID)
	if err != nil {
		return fmt.Errorf("update inventory %d: %w", e.ID, err)
	}
	return requireRow(res)
}

// Debit subtracts quantity only while enough stock remains. The check and the
// write are one statement, so the row lock taken by the UPDATE covers both.
func (r *Inventory) Debit(ctx context.Context, pharmacyID, medicationID, quantity int64, at time.Time) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE inventory SET stock_quantity = stock_quantity - $1, updated_at = $2
                WHERE pharmacy_id = $3 AND medication_id = $4 AND stock_quantity >= $5`,
		quantity, at, pharmacyID, medicationID, quantity)
	if err != nil {
		return false, fmt.Errorf("debit inventory (%d, %d): %w", pharmacyID, medicationID, err)
	}
	return affected(res)
}

func (r *Inventory) Credit(ctx context.Context, pharmacyID, medicationID, quantity int64, at time.Time) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE inventory SET stock_quantity = stock_quantity + $1, updated_at = $2
                WHERE pharmacy_id = $3 AND medication_id = $4`,
		quantity, at, pharmacyID, medicationID)
	if err != nil {
		return false, fmt.Errorf("credit inventory (%d, %d): %w", pharmacyID, medicationID, err)
	}
	return affected(res)
}

func (r *Inventory) ListInStock(ctx context.Context, medicationID int64) ([]domain.InventoryEntry, error) {
	entries := []domain.InventoryEntry{}
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &entries,
		`SELECT `+inventoryColumns+` FROM inventory i WHERE i.medication_id = $1 AND i.stock_quantity > 0 ORDER BY i.pharmacy_id`, medicationID)
	if err != nil {
		return nil, fmt.Errorf("list stock for medication %d: %w", medicationID, err)
	}
	return entries, nil
}

func (r *Inventory) List(ctx context.Context, f InventoryFilter) ([]domain.InventoryEntry, int64, error) {
	ext := conn(ctx, r.db)
	where := ` FROM inventory i JOIN medications m ON m.id = i.medication_id WHERE i.pharmacy_id = $1`
	args := []any{f.PharmacyID}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		where += fmt.Sprintf(" AND LOWER(m.name) LIKE LOWER($%d)", len(args))
	}

	var total int64
	if err := sqlx.GetContext(ctx, ext, &total, `SELECT COUNT(*)`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + inventoryColumns + where +
		fmt.Sprintf(" ORDER BY i.updated_at DESC, i.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	entries := []domain.InventoryEntry{}
	if err := sqlx.SelectContext(ctx, ext, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}
	return entries, total, nil
}

// LowStock returns up to limit entries below threshold, lowest first, and the
// total number of such entries.
func (r *Inventory) LowStock(ctx context.Context, pharmacyID int64, threshold int64, limit int) ([]domain.InventoryEntry, int64, error) {
	ext := conn(ctx, r.db)
	var total int64
	if err := sqlx.GetContext(ctx, ext, &total,
		`SELECT COUNT(*) FROM inventory WHERE pharmacy_id = $1 AND stock_quantity < $2`, pharmacyID, threshold); err != nil {
		return nil, 0, fmt.Errorf("count low stock: %w", err)
	}
	entries := []domain.InventoryEntry{}
	if err := sqlx.SelectContext(ctx, ext, &entries,
		`SELECT `+inventoryColumns+` FROM inventory i WHERE i.pharmacy_id = $1 AND i.stock_quantity < $2
                ORDER BY i.stock_quantity ASC, i.id ASC LIMIT $3`, pharmacyID, threshold, limit); err != nil {
		return nil, 0, fmt.Errorf("list low stock: %w", err)
	}
	return entries, total, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func requireRow(res sql.Result) error {
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
