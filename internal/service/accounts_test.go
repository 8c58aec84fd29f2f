package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmalink/m/domain"
)

func TestAccounts_RegisterPharmacist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, pharmacy, err := e.accounts.Register(ctx, RegisterRequest{
		Email: "Sarah@Goodlife.co.ke", Password: "password", Name: "Sarah", Role: domain.RolePharmacist,
		Pharmacy: &PharmacyDetails{Name: "Goodlife", Latitude: ptr(-1.26), Longitude: ptr(36.80)},
	})
	require.NoError(t, err)
	assert.Equal(t, "sarah@goodlife.co.ke", user.Email)
	require.NotNil(t, pharmacy)
	assert.Equal(t, user.ID, *pharmacy.OwnerID)
	assert.Equal(t, domain.SubscriptionInactive, pharmacy.SubscriptionStatus)

	got, err := e.accounts.Authenticate(ctx, "sarah@goodlife.co.ke", "password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	owned, err := PharmacyFor(ctx, e.catalog, domain.Actor{UserID: user.ID, Role: user.Role})
	require.NoError(t, err)
	assert.Equal(t, pharmacy.ID, owned.ID)
}

func TestAccounts_RegisterRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	valid := RegisterRequest{Email: "john@example.com", Password: "password", Name: "John", Role: domain.RolePatient}

	_, _, err := e.accounts.Register(ctx, valid)
	require.NoError(t, err)
	_, _, err = e.accounts.Register(ctx, valid)
	requireKind(t, err, KindConflict)

	cases := map[string]func(r *RegisterRequest){
		"bad email":        func(r *RegisterRequest) { r.Email = "nope" },
		"short password":   func(r *RegisterRequest) { r.Password = "123" },
		"admin role":       func(r *RegisterRequest) { r.Role = domain.RoleAdmin },
		"patient pharmacy": func(r *RegisterRequest) { r.Pharmacy = &PharmacyDetails{Name: "X"} },
		"missing name":     func(r *RegisterRequest) { r.Name = " " },
		"half a coordinate": func(r *RegisterRequest) {
			r.Role = domain.RolePharmacist
			r.Pharmacy = &PharmacyDetails{Name: "X", Latitude: ptr(1.0)}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			req.Email = "other@example.com"
			mutate(&req)
			_, _, err := e.accounts.Register(ctx, req)
			requireKind(t, err, KindValidation)
		})
	}
}

func TestAccounts_RegisterRollsBackUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first, _, err := e.accounts.Register(ctx, RegisterRequest{
		Email: "a@pharmacy.test", Password: "password", Name: "A", Role: domain.RolePharmacist,
		Pharmacy: &PharmacyDetails{Name: "Goodlife"},
	})
	require.NoError(t, err)

	_, _, err = e.accounts.Register(ctx, RegisterRequest{
		Email: "a@pharmacy.test", Password: "password", Name: "B", Role: domain.RolePharmacist,
		Pharmacy: &PharmacyDetails{Name: "Haltons"},
	})
	requireKind(t, err, KindConflict)

	_, err = e.accounts.Profile(ctx, domain.Actor{UserID: first.ID + 1, Role: domain.RolePharmacist})
	requireKind(t, err, KindNotFound)
}

func TestAccounts_Authenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _, err := e.accounts.Register(ctx, RegisterRequest{Email: "john@example.com", Password: "password", Name: "John", Role: domain.RolePatient})
	require.NoError(t, err)

	_, err = e.accounts.Authenticate(ctx, "john@example.com", "wrong")
	requireKind(t, err, KindUnauthorized)
	_, err = e.accounts.Authenticate(ctx, "nobody@example.com", "password")
	requireKind(t, err, KindUnauthorized)
	u, err := e.accounts.Authenticate(ctx, " JOHN@example.com ", "password")
	require.NoError(t, err)
	assert.Equal(t, "John", u.Name)
}
