package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/repository"
)

// LoadCatalogFile ingests a medication CSV from path. See LoadCatalog.
func LoadCatalogFile(ctx context.Context, catalog repository.CatalogRepository, path string, log *zap.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open medication catalog %s: %w", path, err)
	}
	defer file.Close()
	return LoadCatalog(ctx, catalog, file, log)
}

// LoadCatalog reads name,category,generic_name,description rows and stores
// each medication, ignoring names already present. A leading header row is
// skipped. It returns the number of medications created.
func LoadCatalog(ctx context.Context, catalog repository.CatalogRepository, r io.Reader, log *zap.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	created := 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("skipping unreadable catalog row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}

		med := domain.Medication{Name: field(record, 0)}
		if med.Name == "" {
			continue
		}
		med.Category = field(record, 1)
		med.GenericName = field(record, 2)
		med.Description = field(record, 3)

		ok, err := catalog.CreateMedication(ctx, &med)
		if err != nil {
			return created, fmt.Errorf("catalog line %d: %w", line, err)
		}
		if ok {
			created++
		}
	}

	log.Info("seeded medication catalog", zap.Int("created", created))
	return created, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
