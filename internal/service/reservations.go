package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/repository"
)

// Reservations runs the reservation lifecycle. Stock is debited when a
// reservation is created and credited back exactly once if it is cancelled.
type Reservations struct {
	tx           repository.TxManager
	catalog      repository.CatalogRepository
	reservations repository.ReservationRepository
	ledger       *Ledger
	log          *zap.Logger
	now          func() time.Time
}

func NewReservations(tx repository.TxManager, catalog repository.CatalogRepository, reservations repository.ReservationRepository, ledger *Ledger, log *zap.Logger) *Reservations {
	return &Reservations{
		tx:           tx,
		catalog:      catalog,
		reservations: reservations,
		ledger:       ledger,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type CreateReservationRequest struct {
	PharmacyID    int64
	MedicationID  int64
	Quantity      int64
	CustomerName  string
	CustomerPhone string
	Notes         string
}

func (r CreateReservationRequest) Validate() error {
	if r.PharmacyID <= 0 || r.MedicationID <= 0 {
		return NewValidation(ErrMsgPharmacyAndMedication)
	}
	if r.Quantity < 1 {
		return NewValidation(ErrMsgQuantityPositive)
	}
	return nil
}

// Create debits stock and records a pending reservation in one transaction.
func (s *Reservations) Create(ctx context.Context, actor domain.Actor, req CreateReservationRequest) (*domain.Reservation, error) {
	if actor.Role != domain.RolePatient {
		return nil, NewForbidden("Access denied")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &domain.Reservation{
		UserID:        actor.UserID,
		PharmacyID:    req.PharmacyID,
		MedicationID:  req.MedicationID,
		Quantity:      req.Quantity,
		Status:        domain.StatusPending,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     s.now(),
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.Debit(ctx, req.PharmacyID, req.MedicationID, req.Quantity); err != nil {
			return err
		}
		return s.reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation created",
		zap.Int64("reservation_id", res.ID),
		zap.Int64("user_id", res.UserID),
		zap.Int64("pharmacy_id", res.PharmacyID),
		zap.Int64("medication_id", res.MedicationID),
		zap.Int64("quantity", res.Quantity))
	if err := s.enrich(ctx, []*domain.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

// Transition moves a reservation of the pharmacist's pharmacy to status.
// Patients may only move their own reservations to cancelled.
func (s *Reservations) Transition(ctx context.Context, actor domain.Actor, id int64, status string) (*domain.Reservation, error) {
	if strings.TrimSpace(status) == "" {
		return nil, NewValidation(ErrMsgStatusRequired)
	}
	next, ok := domain.ParseReservationStatus(status)
	if !ok {
		return nil, NewInvalidStatusf("Invalid status: %s", status)
	}

	owns, err := s.ownership(ctx, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RolePatient && next != domain.StatusCancelled {
		return nil, NewForbidden("Patients can only cancel reservations")
	}

	var res *domain.Reservation
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.reservations.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !owns(current)) {
			return NewNotFound(ErrMsgReservationNotFound)
		}
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return NewInvalidTransitionf("Cannot change status from %s to %s", current.Status, next)
		}
		moved, err := s.reservations.UpdateStatus(ctx, id, current.Status, next)
		if err != nil {
			return err
		}
		if !moved {
			return NewInvalidTransitionf("Reservation is no longer %s", current.Status)
		}
		if next == domain.StatusCancelled {
			if err := s.ledger.Credit(ctx, current.PharmacyID, current.MedicationID, current.Quantity); err != nil {
				// A missing entry here breaks the debit/credit pairing; it is
				// never a caller error.
				return fmt.Errorf("restore stock for reservation %d: %v", id, err)
			}
		}
		current.Status = next
		res = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation status changed",
		zap.Int64("reservation_id", id),
		zap.Int64("actor_id", actor.UserID),
		zap.String("status", string(next)))
	if err := s.enrich(ctx, []*domain.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel is the patient-side cancellation of their own reservation.
func (s *Reservations) Cancel(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	if actor.Role != domain.RolePatient {
		return nil, NewForbidden("Access denied")
	}
	return s.Transition(ctx, actor, id, string(domain.StatusCancelled))
}

// Get returns a reservation visible to actor. Reservations owned by someone
// else are reported as not found.
func (s *Reservations) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	owns, err := s.ownership(ctx, actor)
	if err != nil {
		return nil, err
	}
	res, err := s.reservations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !owns(res)) {
		return nil, NewNotFound(ErrMsgReservationNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, []*domain.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

// ReservationQuery filters a listing. Status is optional.
type ReservationQuery struct {
	Status string
	PageRequest
}

// List pages through the patient's own reservations, or a pharmacist's
// pharmacy reservations, newest first.
func (s *Reservations) List(ctx context.Context, actor domain.Actor, q ReservationQuery) (domain.Page[domain.Reservation], error) {
	page := q.PageRequest.Normalize()
	filter := repository.ReservationFilter{Limit: page.PerPage, Offset: page.Offset()}
	if q.Status != "" {
		st, ok := domain.ParseReservationStatus(q.Status)
		if !ok {
			return domain.Page[domain.Reservation]{}, NewInvalidStatusf("Invalid status: %s", q.Status)
		}
		filter.Status = st
	}

	switch actor.Role {
	case domain.RolePatient:
		filter.UserID = actor.UserID
	case domain.RolePharmacist:
		p, err := PharmacyFor(ctx, s.catalog, actor)
		if err != nil {
			return domain.Page[domain.Reservation]{}, err
		}
		filter.PharmacyID = p.ID
	default:
		return domain.Page[domain.Reservation]{}, NewForbidden("Access denied")
	}

	items, total, err := s.reservations.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Reservation]{}, err
	}
	ptrs := make([]*domain.Reservation, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	if err := s.enrich(ctx, ptrs); err != nil {
		return domain.Page[domain.Reservation]{}, err
	}
	return domain.NewPage(items, page.Page, page.PerPage, total), nil
}

// ownership returns a predicate telling whether actor may see a reservation.
func (s *Reservations) ownership(ctx context.Context, actor domain.Actor) (func(*domain.Reservation) bool, error) {
	switch actor.Role {
	case domain.RolePatient:
		return func(r *domain.Reservation) bool { return r.UserID == actor.UserID }, nil
	case domain.RolePharmacist:
		p, err := PharmacyFor(ctx, s.catalog, actor)
		if err != nil {
			return nil, err
		}
		return func(r *domain.Reservation) bool { return r.PharmacyID == p.ID }, nil
	}
	return nil, NewForbidden("Access denied")
}

func (s *Reservations) enrich(ctx context.Context, items []*domain.Reservation) error {
	if len(items) == 0 {
		return nil
	}
	medIDs := make([]int64, 0, len(items))
	pharmIDs := make([]int64, 0, len(items))
	for _, r := range items {
		medIDs = append(medIDs, r.MedicationID)
		pharmIDs = append(pharmIDs, r.PharmacyID)
	}
	meds, err := s.catalog.MedicationsByIDs(ctx, medIDs)
	if err != nil {
		return fmt.Errorf("load medications: %w", err)
	}
	pharmacies, err := s.catalog.PharmaciesByIDs(ctx, pharmIDs)
	if err != nil {
		return fmt.Errorf("load pharmacies: %w", err)
	}
	for _, r := range items {
		if m, ok := meds[r.MedicationID]; ok {
			r.Medication = &m
		}
		if p, ok := pharmacies[r.PharmacyID]; ok {
			r.Pharmacy = &p
		}
	}
	return nil
}
