package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/auth"
	"pharmalink/m/internal/repository"
)

const minPasswordLength = 6

// Accounts registers and authenticates users.
type Accounts struct {
	tx      repository.TxManager
	users   repository.UserRepository
	catalog repository.CatalogRepository
	log     *zap.Logger
}

func NewAccounts(tx repository.TxManager, users repository.UserRepository, catalog repository.CatalogRepository, log *zap.Logger) *Accounts {
	return &Accounts{tx: tx, users: users, catalog: catalog, log: log}
}

// PharmacyDetails optionally creates the pharmacy a registering pharmacist owns.
type PharmacyDetails struct {
	Name      string
	Address   string
	Phone     string
	Latitude  *float64
	Longitude *float64
}

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     domain.Role
	Pharmacy *PharmacyDetails
}

func (r RegisterRequest) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return NewValidation("A valid email is required")
	}
	if len(r.Password) < minPasswordLength {
		return NewValidation("Password must be at least 6 characters")
	}
	if strings.TrimSpace(r.Name) == "" {
		return NewValidation("Name is required")
	}
	if r.Role != domain.RolePatient && r.Role != domain.RolePharmacist {
		return NewValidation("Role must be patient or pharmacist")
	}
	if r.Pharmacy != nil {
		if r.Role != domain.RolePharmacist {
			return NewValidation("Only pharmacists can register a pharmacy")
		}
		if strings.TrimSpace(r.Pharmacy.Name) == "" {
			return NewValidation("Pharmacy name is required")
		}
		if (r.Pharmacy.Latitude == nil) != (r.Pharmacy.Longitude == nil) {
			return NewValidation("Latitude and longitude must be provided together")
		}
	}
	return nil
}

// Register creates the user and, for pharmacists, their pharmacy atomically.
func (a *Accounts) Register(ctx context.Context, req RegisterRequest) (*domain.User, *domain.Pharmacy, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
	}

	var pharmacy *domain.Pharmacy
	err = a.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := a.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return NewConflict("Email already registered")
			}
			return err
		}
		if req.Pharmacy == nil {
			return nil
		}
		pharmacy = &domain.Pharmacy{
			Name:      strings.TrimSpace(req.Pharmacy.Name),
			Address:   strings.TrimSpace(req.Pharmacy.Address),
			Phone:     strings.TrimSpace(req.Pharmacy.Phone),
			Latitude:  req.Pharmacy.Latitude,
			Longitude: req.Pharmacy.Longitude,
			OwnerID:   &user.ID,
		}
		return a.catalog.CreatePharmacy(ctx, pharmacy)
	})
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, pharmacy, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords fail
// the same way.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewUnauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, NewUnauthorized("Invalid email or password")
	}
	return user, nil
}

// Profile returns the user behind actor.
func (a *Accounts) Profile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := a.users.GetByID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFound("User not found")
	}
	return user, err
}
