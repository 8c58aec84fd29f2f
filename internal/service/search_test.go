package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmalink/m/domain"
)

func TestHaversine(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(-1.26, 36.80, -1.26, 36.80))
	assert.Equal(t, 111.19, Haversine(0, 0, 0, 1))
	assert.Equal(t, Haversine(-1.26, 36.80, -1.29, 36.82), Haversine(-1.29, 36.82, -1.26, 36.80))
}

func pharmacyNames(matches []PharmacyMatch) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	return names
}

func TestSearch_RanksByDistance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	med := e.medication(t, "Panadol")
	_, far := e.pharmacy(t, "Far", ptr(-1.2888), ptr(36.80))
	_, near := e.pharmacy(t, "Near", ptr(-1.2645), ptr(36.80))
	_, unknown := e.pharmacy(t, "Unknown", nil, nil)
	for _, p := range []domain.Pharmacy{far, near, unknown} {
		e.stock(t, p.ID, med.ID, 5, "100")
	}

	res, err := e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "panadol", Latitude: ptr(-1.26), Longitude: ptr(36.80)})
	require.NoError(t, err)
	assert.Equal(t, "Panadol", res.Medication.Name)
	assert.Equal(t, []string{"Near", "Far", "Unknown"}, pharmacyNames(res.Pharmacies))
	assert.InDelta(t, 0.5, *res.Pharmacies[0].Distance, 0.01)
	assert.InDelta(t, 3.2, *res.Pharmacies[1].Distance, 0.01)
	assert.Nil(t, res.Pharmacies[2].Distance)
	assert.Equal(t, int64(5), res.Pharmacies[0].Stock)

	res, err = e.search.FindPharmacies(ctx, PharmacyQuery{
		Medication: "panadol", Latitude: ptr(-1.26), Longitude: ptr(36.80), MaxDistanceKm: ptr(1.0),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Near", "Unknown"}, pharmacyNames(res.Pharmacies))
}

func TestSearch_RanksByPriceWithoutLocation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	med := e.medication(t, "Amoxil")
	_, a := e.pharmacy(t, "A", ptr(-1.0), ptr(36.0))
	_, b := e.pharmacy(t, "B", nil, nil)
	_, c := e.pharmacy(t, "C", nil, nil)
	_, d := e.pharmacy(t, "D", nil, nil)
	e.stock(t, a.ID, med.ID, 5, "300")
	e.stock(t, b.ID, med.ID, 5, "250")
	e.stock(t, c.ID, med.ID, 5, "250")
	e.stock(t, d.ID, med.ID, 0, "10")

	res, err := e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "amox", MaxDistanceKm: ptr(0.0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, pharmacyNames(res.Pharmacies))
	for _, m := range res.Pharmacies {
		assert.Nil(t, m.Distance)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	med := e.medication(t, "Brufen")
	for _, name := range []string{"P1", "P2", "P3", "P4"} {
		_, p := e.pharmacy(t, name, ptr(-1.25), ptr(36.81))
		e.stock(t, p.ID, med.ID, 1, "50")
	}
	q := PharmacyQuery{Medication: "brufen", Latitude: ptr(-1.26), Longitude: ptr(36.80)}
	first, err := e.search.FindPharmacies(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2", "P3", "P4"}, pharmacyNames(first.Pharmacies))
	for i := 0; i < 5; i++ {
		again, err := e.search.FindPharmacies(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, first.Pharmacies, again.Pharmacies)
	}
}

func TestSearch_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	med := e.medication(t, "Panadol")
	_, p := e.pharmacy(t, "Goodlife", nil, nil)
	e.stock(t, p.ID, med.ID, 0, "100")

	_, err := e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "  "})
	requireKind(t, err, KindValidation)
	_, err = e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "panadol", Latitude: ptr(1.0)})
	requireKind(t, err, KindValidation)
	_, err = e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "panadol", Latitude: ptr(91.0), Longitude: ptr(0.0)})
	requireKind(t, err, KindValidation)
	_, err = e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "zyrtec"})
	requireKind(t, err, KindNotFound)
	_, err = e.search.FindPharmacies(ctx, PharmacyQuery{Medication: "panadol"})
	requireKind(t, err, KindNotFound)
	assert.Equal(t, ErrMsgNoStock, err.Error())
}

type memoryCache struct {
	mu   sync.Mutex
	hits int
	data map[string][]domain.Medication
}

func (c *memoryCache) Get(_ context.Context, key string) ([]domain.Medication, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meds, ok := c.data[key]
	if ok {
		c.hits++
	}
	return meds, ok
}

func (c *memoryCache) Set(_ context.Context, key string, meds []domain.Medication) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = meds
}

func TestSearch_Autocomplete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, name := range []string{"Panadol", "Panadol Extra", "Amoxil"} {
		e.medication(t, name)
	}
	cache := &memoryCache{data: map[string][]domain.Medication{}}
	search := NewSearch(e.catalog, e.inventory, cache, zapNop())

	meds, err := search.SearchMedications(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, meds)
	assert.NotNil(t, meds)

	meds, err = search.SearchMedications(ctx, "PANA")
	require.NoError(t, err)
	assert.Len(t, meds, 2)

	meds, err = search.SearchMedications(ctx, "pana")
	require.NoError(t, err)
	assert.Len(t, meds, 2)
	assert.Equal(t, 1, cache.hits)
}

func TestSearch_AutocompleteLimit(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 12; i++ {
		e.medication(t, "Vitamin "+string(rune('A'+i)))
	}
	meds, err := e.search.SearchMedications(context.Background(), "vitamin")
	require.NoError(t, err)
	assert.Len(t, meds, autocompleteLimit)
}
