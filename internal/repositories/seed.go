package repositories

import (
	"log/slog"
	"os"

	"dcia/internal/errors"
	"dcia/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadSeed reads and parses a YAML catalog seed file.
func LoadSeed(path string) (models.CatalogSeed, error) {
	var seed models.CatalogSeed
	payload, err := os.ReadFile(path)
	if err != nil {
		return seed, errors.Wrap(err, "read catalog seed", slog.String("path", path))
	}
	if err = yaml.Unmarshal(payload, &seed); err != nil {
		return seed, errors.Wrap(err, "parse catalog seed", slog.String("path", path))
	}
	for _, subtype := range seed.Subtypes {
		for _, item := range subtype.Items {
			for device := range item.Locations {
				if _, ok := models.ParseDeviceType(device); !ok {
					return models.CatalogSeed{}, errors.New("unknown device type in catalog seed",
						slog.String("subtype", subtype.Name),
						slog.String("item", item.Name),
						slog.String("device", device))
				}
			}
		}
	}
	return seed, nil
}
