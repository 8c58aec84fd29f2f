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

const reservationColumns = `id, user_id, pharmacy_id, medication_id, quantity, status, customer_name, customer_phone, notes, created_at`

// Reservations stores reservation records.
type Reservations struct {
	db *sqlx.DB
}

func NewReservations(db *sqlx.DB) *Reservations {
	return &Reservations{db: db}
}

var _ ReservationRepository = (*Reservations)(nil)

func (r *Reservations) Create(ctx context.Context, res *domain.Reservation) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	err := conn(ctx, r.db).QueryRowxContext(ctx,
		`INSERT INTO reservations (user_id, pharmacy_id, medication_id, quantity, status, customer_name, customer_phone, notes, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		res.UserID, res.PharmacyID, res.MedicationID, res.Quantity, string(res.Status),
		res.CustomerName, res.CustomerPhone, res.Notes, res.CreatedAt).Scan(&res.ID)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *Reservations) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var res domain.Reservation
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return &res, nil
}

func (r *Reservations) UpdateStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE reservations SET status = $1 WHERE id = $2 AND status = $3`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update reservation %d: %w", id, err)
	}
	return affected(res)
}

// List returns a page of reservations, newest first, and the total match count.
func (r *Reservations) List(ctx context.Context, f ReservationFilter) ([]domain.Reservation, int64, error) {
	ext := conn(ctx, r.db)
	where := ` FROM reservations WHERE 1 = 1`
	var args []any
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.PharmacyID != 0 {
		args = append(args, f.PharmacyID)
		where += fmt.Sprintf(" AND pharmacy_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := sqlx.GetContext(ctx, ext, &total, `SELECT COUNT(*)`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + reservationColumns + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	list := []domain.Reservation{}
	if err := sqlx.SelectContext(ctx, ext, &list, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	return list, total, nil
}

// Revenue sums quantity * current price over a pharmacy's reservations in
// status created within [from, to).
func (r *Reservations) Revenue(ctx context.Context, pharmacyID int64, status domain.ReservationStatus, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &total,
		`SELECT COALESCE(SUM(r.quantity * i.price), 0)
                FROM reservations r
                JOIN inventory i ON i.pharmacy_id = r.pharmacy_id AND i.medication_id = r.medication_id
                WHERE r.pharmacy_id = $1 AND r.status = $2 AND r.created_at >= $3 AND r.created_at < $4`,
		pharmacyID, string(status), from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum revenue for pharmacy %d: %w", pharmacyID, err)
	}
	return total, nil
}
