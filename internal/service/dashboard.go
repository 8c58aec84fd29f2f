package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
	"pharmalink/m/internal/repository"
)

const dashboardListSize = 5

type DashboardStats struct {
	PendingReservations int64 `json:"pending_reservations"`
	TotalMedications    int64 `json:"total_medications"`
	LowStockItems       int64 `json:"low_stock_items"`
	// MonthlyRevenue values completed reservations created this UTC month
	// at the current inventory price.
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
}

type Dashboard struct {
	Pharmacy           domain.Pharmacy         `json:"pharmacy"`
	Stats              DashboardStats          `json:"stats"`
	RecentReservations []domain.Reservation    `json:"recent_reservations"`
	LowStock           []domain.InventoryEntry `json:"low_stock_items"`
}

// Dashboard summarises a pharmacist's pharmacy.
func (s *Reservations) Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	p, err := PharmacyFor(ctx, s.catalog, actor)
	if err != nil {
		return nil, err
	}

	_, pending, err := s.reservations.List(ctx, repository.ReservationFilter{
		PharmacyID: p.ID, Status: domain.StatusPending, Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	recent, err := s.List(ctx, actor, ReservationQuery{PageRequest: PageRequest{Page: 1, PerPage: dashboardListSize}})
	if err != nil {
		return nil, err
	}
	_, stocked, err := s.ledger.inventory.List(ctx, repository.InventoryFilter{PharmacyID: p.ID, Limit: 1})
	if err != nil {
		return nil, err
	}
	low, lowCount, err := s.ledger.inventory.LowStock(ctx, p.ID, domain.LowStockThreshold, dashboardListSize)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.attachMedications(ctx, low); err != nil {
		return nil, err
	}
	from, to := monthBounds(s.now())
	revenue, err := s.reservations.Revenue(ctx, p.ID, domain.StatusCompleted, from, to)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Pharmacy: *p,
		Stats: DashboardStats{
			PendingReservations: pending,
			TotalMedications:    stocked,
			LowStockItems:       lowCount,
			MonthlyRevenue:      revenue.Round(2),
		},
		RecentReservations: recent.Items,
		LowStock:           low,
	}, nil
}

// monthBounds returns the first instant of t's UTC month and of the next one.
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
