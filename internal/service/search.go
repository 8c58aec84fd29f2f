package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/repository"
)

const autocompleteLimit = 10

// MedicationCache memoises autocomplete results. Implementations must treat
// errors as misses.
type MedicationCache interface {
	Get(ctx context.Context, query string) ([]domain.Medication, bool)
	Set(ctx context.Context, query string, meds []domain.Medication)
}

// Search answers patient-facing catalog and availability queries.
type Search struct {
	catalog   repository.CatalogRepository
	inventory repository.InventoryRepository
	cache     MedicationCache
	log       *zap.Logger
}

// NewSearch builds a Search. cache may be nil.
func NewSearch(catalog repository.CatalogRepository, inventory repository.InventoryRepository, cache MedicationCache, log *zap.Logger) *Search {
	return &Search{catalog: catalog, inventory: inventory, cache: cache, log: log}
}

// SearchMedications autocompletes medication names. Queries shorter than two
// characters return an empty list.
func (s *Search) SearchMedications(ctx context.Context, query string) ([]domain.Medication, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []domain.Medication{}, nil
	}
	key := strings.ToLower(query)
	if s.cache != nil {
		if meds, ok := s.cache.Get(ctx, key); ok {
			return meds, nil
		}
	}
	meds, err := s.catalog.SearchMedications(ctx, query, autocompleteLimit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, meds)
	}
	return meds, nil
}

// PharmacyQuery locates pharmacies stocking a medication. Latitude and
// Longitude are given together or not at all.
type PharmacyQuery struct {
	Medication    string
	Latitude      *float64
	Longitude     *float64
	MaxDistanceKm *float64
}

func (q PharmacyQuery) Validate() error {
	if strings.TrimSpace(q.Medication) == "" {
		return NewValidation(ErrMsgMedicationRequired)
	}
	if (q.Latitude == nil) != (q.Longitude == nil) {
		return NewValidation("Latitude and longitude must be provided together")
	}
	if q.Latitude != nil && (*q.Latitude < -90 || *q.Latitude > 90) {
		return NewValidation("Latitude must be between -90 and 90")
	}
	if q.Longitude != nil && (*q.Longitude < -180 || *q.Longitude > 180) {
		return NewValidation("Longitude must be between -180 and 180")
	}
	if q.MaxDistanceKm != nil && *q.MaxDistanceKm < 0 {
		return NewValidation("Max distance cannot be negative")
	}
	return nil
}

func (q PharmacyQuery) hasLocation() bool {
	return q.Latitude != nil && q.Longitude != nil
}

// PharmacyMatch is a pharmacy with its offer for the searched medication.
// Distance is nil when either side lacks coordinates.
type PharmacyMatch struct {
	domain.Pharmacy
	Price    decimal.Decimal `json:"price"`
	Stock    int64           `json:"stock"`
	Distance *float64        `json:"distance"`
}

type PharmacySearchResult struct {
	Medication domain.Medication `json:"medication"`
	Pharmacies []PharmacyMatch   `json:"pharmacies"`
}

// FindPharmacies resolves the first medication whose name contains the query
// and ranks the pharmacies holding it in stock. With a location, matches are
// ordered by ascending distance with unknown distances last; otherwise by
// ascending price. Ties keep pharmacy id order.
func (s *Search) FindPharmacies(ctx context.Context, q PharmacyQuery) (*PharmacySearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	med, err := s.catalog.FirstMedicationByName(ctx, strings.TrimSpace(q.Medication))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFound(ErrMsgMedicationNotFound)
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.inventory.ListInStock(ctx, med.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, NewNotFound(ErrMsgNoStock)
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PharmacyID)
	}
	pharmacies, err := s.catalog.PharmaciesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]PharmacyMatch, 0, len(entries))
	for _, e := range entries {
		p, ok := pharmacies[e.PharmacyID]
		if !ok {
			continue
		}
		m := PharmacyMatch{Pharmacy: p, Price: e.Price, Stock: e.StockQuantity}
		if q.hasLocation() && p.HasCoordinates() {
			d := Haversine(*q.Latitude, *q.Longitude, *p.Latitude, *p.Longitude)
			m.Distance = &d
		}
		if q.hasLocation() && q.MaxDistanceKm != nil && m.Distance != nil && *m.Distance > *q.MaxDistanceKm {
			continue
		}
		matches = append(matches, m)
	}

	rank(matches, q.hasLocation())
	s.log.Debug("pharmacy search",
		zap.String("query", q.Medication),
		zap.Int64("medication_id", med.ID),
		zap.Int("results", len(matches)))
	return &PharmacySearchResult{Medication: *med, Pharmacies: matches}, nil
}

func rank(matches []PharmacyMatch, byDistance bool) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if byDistance {
			switch {
			case a.Distance == nil && b.Distance == nil:
			case a.Distance == nil:
				return false
			case b.Distance == nil:
				return true
			case *a.Distance != *b.Distance:
				return *a.Distance < *b.Distance
			}
		} else if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}
