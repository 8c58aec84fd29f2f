// Package seed loads the medication catalog and demo accounts.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/auth"
	"pharmalink/m/internal/repository"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "password"

var demoMedications = []domain.Medication{
	{Name: "Panadol", Category: "Pain Relief", Description: "Pain reliever and fever reducer", GenericName: "Paracetamol"},
	{Name: "Augmentin", Category: "Antibiotic", Description: "Broad-spectrum antibiotic", GenericName: "Amoxicillin/Clavulanate"},
	{Name: "Metformin", Category: "Diabetes", Description: "Oral diabetes medicine", GenericName: "Metformin Hydrochloride"},
	{Name: "Amlodipine", Category: "Blood Pressure", Description: "Calcium channel blocker", GenericName: "Amlodipine Besylate"},
	{Name: "Omeprazole", Category: "Acid Reflux", Description: "Proton pump inhibitor", GenericName: "Omeprazole"},
	{Name: "Amoxicillin", Category: "Antibiotic", Description: "Penicillin antibiotic", GenericName: "Amoxicillin"},
	{Name: "Ventolin", Category: "Asthma", Description: "Bronchodilator", GenericName: "Salbutamol"},
	{Name: "Losartan", Category: "Blood Pressure", Description: "Angiotensin II receptor blocker", GenericName: "Losartan Potassium"},
	{Name: "Atorvastatin", Category: "Cholesterol", Description: "Statin medication", GenericName: "Atorvastatin Calcium"},
	{Name: "Cetirizine", Category: "Allergy", Description: "Antihistamine", GenericName: "Cetirizine Hydrochloride"},
}

var demoUsers = []domain.User{
	{Email: "patient@example.com", Role: domain.RolePatient, Name: "John Patient", Phone: "+254712345678"},
	{Email: "pharmacist@example.com", Role: domain.RolePharmacist, Name: "Sarah Pharmacist", Phone: "+254723456789"},
	{Email: "pharmacist2@example.com", Role: domain.RolePharmacist, Name: "Peter Pharmacist", Phone: "+254745678901"},
	{Email: "pharmacist3@example.com", Role: domain.RolePharmacist, Name: "Grace Pharmacist", Phone: "+254756789012"},
	{Email: "admin@example.com", Role: domain.RoleAdmin, Name: "Admin User", Phone: "+254734567890"},
}

type demoPharmacy struct {
	owner    string
	pharmacy domain.Pharmacy
}

func coord(v float64) *float64 { return &v }

func nowUTC() time.Time { return time.Now().UTC() }

var demoPharmacies = []demoPharmacy{
	{"pharmacist@example.com", domain.Pharmacy{
		Name: "Goodlife Pharmacy Westlands", Address: "ABC Place, Waiyaki Way, Nairobi",
		Latitude: coord(-1.265590), Longitude: coord(36.807350), Phone: "+254711123456",
		SubscriptionStatus: domain.SubscriptionActive,
	}},
	{"pharmacist2@example.com", domain.Pharmacy{
		Name: "Pharmaceutical Access Ltd", Address: "Kimathi Street, CBD, Nairobi",
		Latitude: coord(-1.285270), Longitude: coord(36.821350), Phone: "+254722789012",
		SubscriptionStatus: domain.SubscriptionActive,
	}},
	{"pharmacist3@example.com", domain.Pharmacy{
		Name: "Mediheal Pharmacy", Address: "Mombasa Road, Nairobi",
		Latitude: coord(-1.319240), Longitude: coord(36.854870), Phone: "+254733456789",
		SubscriptionStatus: domain.SubscriptionInactive,
	}},
}

// Summary counts what a seed run created.
type Summary struct {
	Medications int
	Users       int
	Pharmacies  int
	Inventory   int
}

// Demo creates the demo catalog, accounts, pharmacies and stock. Existing
// rows are left untouched, so running it twice is harmless.
type Demo struct {
	tx        repository.TxManager
	catalog   repository.CatalogRepository
	inventory repository.InventoryRepository
	users     repository.UserRepository
	log       *zap.Logger
}

func NewDemo(tx repository.TxManager, catalog repository.CatalogRepository, inventory repository.InventoryRepository, users repository.UserRepository, log *zap.Logger) *Demo {
	return &Demo{tx: tx, catalog: catalog, inventory: inventory, users: users, log: log}
}

func (d *Demo) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return sum, err
	}

	err = d.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var meds []domain.Medication
		for _, m := range demoMedications {
			med := m
			created, err := d.catalog.CreateMedication(ctx, &med)
			if err != nil {
				return err
			}
			if created {
				sum.Medications++
			}
			if med.ID == 0 {
				existing, err := d.catalog.MedicationByName(ctx, med.Name)
				if err != nil {
					return fmt.Errorf("find medication %q: %w", med.Name, err)
				}
				med = *existing
			}
			meds = append(meds, med)
		}

		owners := map[string]int64{}
		for _, u := range demoUsers {
			user := u
			user.PasswordHash = hash
			err := d.users.Create(ctx, &user)
			switch {
			case errors.Is(err, repository.ErrConflict):
				existing, err := d.users.GetByEmail(ctx, user.Email)
				if err != nil {
					return err
				}
				user = *existing
			case err != nil:
				return err
			default:
				sum.Users++
			}
			owners[user.Email] = user.ID
		}

		for _, dp := range demoPharmacies {
			ownerID := owners[dp.owner]
			pharmacy, err := d.catalog.PharmacyByOwner(ctx, ownerID)
			if errors.Is(err, repository.ErrNotFound) {
				p := dp.pharmacy
				p.OwnerID = &ownerID
				if err := d.catalog.CreatePharmacy(ctx, &p); err != nil {
					return err
				}
				sum.Pharmacies++
				pharmacy = &p
			} else if err != nil {
				return err
			}

			n, err := d.stock(ctx, pharmacy, meds)
			if err != nil {
				return err
			}
			sum.Inventory += n
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	d.log.Info("seeded demo data",
		zap.Int("medications", sum.Medications),
		zap.Int("users", sum.Users),
		zap.Int("pharmacies", sum.Pharmacies),
		zap.Int("inventory", sum.Inventory))
	return sum, nil
}

// stock gives the pharmacy a deterministic subset of meds it does not hold yet.
func (d *Demo) stock(ctx context.Context, pharmacy *domain.Pharmacy, meds []domain.Medication) (int, error) {
	quantity := int64(20)
	if pharmacy.SubscriptionStatus == domain.SubscriptionActive {
		quantity = 50
	}
	created := 0
	for _, med := range meds {
		if (pharmacy.ID+med.ID)%3 != 0 {
			continue
		}
		_, err := d.inventory.Get(ctx, pharmacy.ID, med.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, err
		}
		price := decimal.NewFromInt(500 + med.ID*50)
		if _, err := d.inventory.Merge(ctx, pharmacy.ID, med.ID, quantity, price, nowUTC()); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
