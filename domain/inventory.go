package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// InventoryEntry is the stock and price of one medication at one pharmacy.
// At most one entry exists per (pharmacy_id, medication_id).
type InventoryEntry struct {
	ID            int64           `db:"id" json:"id"`
	PharmacyID    int64           `db:"pharmacy_id" json:"pharmacy_id"`
	MedicationID  int64           `db:"medication_id" json:"medication_id"`
	StockQuantity int64           `db:"stock_quantity" json:"stock_quantity"`
	Price         decimal.Decimal `db:"price" json:"price"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Medication *Medication `db:"-" json:"medication,omitempty"`
}

// LowStockThreshold marks entries a pharmacist should restock.
const LowStockThreshold = 10
