package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/repository"
)

// Ledger owns stock levels. Every stock mutation goes through it so that
// debits are conditional and never drive a quantity below zero.
type Ledger struct {
	tx        repository.TxManager
	catalog   repository.CatalogRepository
	inventory repository.InventoryRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewLedger(tx repository.TxManager, catalog repository.CatalogRepository, inventory repository.InventoryRepository, log *zap.Logger) *Ledger {
	return &Ledger{
		tx:        tx,
		catalog:   catalog,
		inventory: inventory,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StockInput adds stock for a medication. Price defaults to zero on create.
type StockInput struct {
	MedicationID  int64
	StockQuantity int64
	Price         decimal.Decimal
}

func (in StockInput) Validate() error {
	if in.MedicationID <= 0 {
		return NewValidation(ErrMsgMedicationIDRequired)
	}
	if in.StockQuantity < 0 {
		return NewValidation(ErrMsgStockNegative)
	}
	if in.Price.IsNegative() {
		return NewValidation(ErrMsgPriceNegative)
	}
	return nil
}

// StockPatch overwrites the fields that are set.
type StockPatch struct {
	StockQuantity *int64
	Price         *decimal.Decimal
}

func (p StockPatch) Validate() error {
	if p.StockQuantity != nil && *p.StockQuantity < 0 {
		return NewValidation(ErrMsgStockNegative)
	}
	if p.Price != nil && p.Price.IsNegative() {
		return NewValidation(ErrMsgPriceNegative)
	}
	return nil
}

// Upsert merges in.StockQuantity into the pharmacy's entry for the medication,
// creating it if needed. The price is overwritten either way.
func (l *Ledger) Upsert(ctx context.Context, pharmacyID int64, in StockInput) (*domain.InventoryEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	med, err := l.catalog.GetMedication(ctx, in.MedicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFound(ErrMsgMedicationNotFound)
	}
	if err != nil {
		return nil, err
	}

	entry, err := l.inventory.Merge(ctx, pharmacyID, in.MedicationID, in.StockQuantity, in.Price, l.now())
	if err != nil {
		return nil, err
	}
	entry.Medication = med
	l.log.Info("inventory upserted",
		zap.Int64("pharmacy_id", pharmacyID),
		zap.Int64("medication_id", in.MedicationID),
		zap.Int64("stock_quantity", entry.StockQuantity))
	return entry, nil
}

// Adjust overwrites quantity and/or price of the (pharmacy, medication) entry.
func (l *Ledger) Adjust(ctx context.Context, pharmacyID, medicationID int64, patch StockPatch) (*domain.InventoryEntry, error) {
	return l.adjust(ctx, patch, func(ctx context.Context) (*domain.InventoryEntry, error) {
		return l.inventory.Get(ctx, pharmacyID, medicationID)
	})
}

// AdjustEntry is Adjust addressed by entry id. Entries of other pharmacies
// are reported as not found.
func (l *Ledger) AdjustEntry(ctx context.Context, pharmacyID, entryID int64, patch StockPatch) (*domain.InventoryEntry, error) {
	return l.adjust(ctx, patch, func(ctx context.Context) (*domain.InventoryEntry, error) {
		return l.inventory.GetByID(ctx, pharmacyID, entryID)
	})
}

func (l *Ledger) adjust(ctx context.Context, patch StockPatch, load func(context.Context) (*domain.InventoryEntry, error)) (*domain.InventoryEntry, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var entry *domain.InventoryEntry
	err := l.tx.WithTransaction(ctx, func(ctx context.Context) error {
		e, err := load(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound(ErrMsgInventoryNotFound)
		}
		if err != nil {
			return err
		}
		if patch.StockQuantity != nil {
			e.StockQuantity = *patch.StockQuantity
		}
		if patch.Price != nil {
			e.Price = *patch.Price
		}
		e.UpdatedAt = l.now()
		if err := l.inventory.Update(ctx, e); err != nil {
			return err
		}
		med, err := l.catalog.GetMedication(ctx, e.MedicationID)
		if err != nil {
			return err
		}
		e.Medication = med
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Debit removes quantity from the entry. It fails with InsufficientStock when
// the entry is missing or holds less than quantity; the check and the write
// are one conditional statement.
func (l *Ledger) Debit(ctx context.Context, pharmacyID, medicationID, quantity int64) error {
	if quantity < 1 {
		return NewValidation(ErrMsgQuantityPositive)
	}
	ok, err := l.inventory.Debit(ctx, pharmacyID, medicationID, quantity, l.now())
	if err != nil {
		return err
	}
	if !ok {
		return NewInsufficientStock(ErrMsgNotEnoughStock)
	}
	return nil
}

// Credit returns quantity to an existing entry.
func (l *Ledger) Credit(ctx context.Context, pharmacyID, medicationID, quantity int64) error {
	ok, err := l.inventory.Credit(ctx, pharmacyID, medicationID, quantity, l.now())
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFound(ErrMsgInventoryNotFound)
	}
	return nil
}

// List pages through a pharmacy's inventory, newest update first, optionally
// filtered by a medication-name substring.
func (l *Ledger) List(ctx context.Context, pharmacyID int64, search string, page PageRequest) (domain.Page[domain.InventoryEntry], error) {
	page = page.Normalize()
	entries, total, err := l.inventory.List(ctx, repository.InventoryFilter{
		PharmacyID: pharmacyID,
		Search:     strings.TrimSpace(search),
		Limit:      page.PerPage,
		Offset:     page.Offset(),
	})
	if err != nil {
		return domain.Page[domain.InventoryEntry]{}, err
	}
	if err := l.attachMedications(ctx, entries); err != nil {
		return domain.Page[domain.InventoryEntry]{}, err
	}
	return domain.NewPage(entries, page.Page, page.PerPage, total), nil
}

func (l *Ledger) attachMedications(ctx context.Context, entries []domain.InventoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.MedicationID)
	}
	meds, err := l.catalog.MedicationsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load medications: %w", err)
	}
	for i := range entries {
		if m, ok := meds[entries[i].MedicationID]; ok {
			entries[i].Medication = &m
		}
	}
	return nil
}

// PharmacyFor resolves the pharmacy owned by a pharmacist.
func PharmacyFor(ctx context.Context, catalog repository.CatalogRepository, actor domain.Actor) (*domain.Pharmacy, error) {
	if actor.Role != domain.RolePharmacist {
		return nil, NewForbidden("Access denied")
	}
	p, err := catalog.PharmacyByOwner(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFound(ErrMsgPharmacyNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PharmacyFor resolves the pharmacy owned by actor.
func (l *Ledger) PharmacyFor(ctx context.Context, actor domain.Actor) (*domain.Pharmacy, error) {
	return PharmacyFor(ctx, l.catalog, actor)
}
