package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

// RateTable holds the flat shipping-rate table and storage-device price list
// loaded from YAML at startup. Lookups are pure; the table never changes at
// runtime.
type RateTable struct {
	Currency       string          `yaml:"currency"`
	DefaultRate    float64         `yaml:"default_rate"`
	Zones          []ShippingZone  `yaml:"zones"`
	StorageDevices []StorageDevice `yaml:"storage_devices"`
}

type ShippingZone struct {
	Name      string   `yaml:"name"`
	Locations []string `yaml:"locations"`
	Rate      float64  `yaml:"rate"`
}

type StorageDevice struct {
	Type       models.StorageType `yaml:"type"`
	Capacities []StorageCapacity  `yaml:"capacities"`
}

type StorageCapacity struct {
	CapacityGB float64 `yaml:"capacity_gb"`
	Price      float64 `yaml:"price"`
}

func LoadRateTable(path string) (*RateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate table %s: %w", path, err)
	}

	var table RateTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse rate table %s: %w", path, err)
	}
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("invalid rate table %s: %w", path, err)
	}
	return &table, nil
}

func (t *RateTable) validate() error {
	if t.DefaultRate < 0 {
		return fmt.Errorf("default_rate must not be negative")
	}
	if len(t.StorageDevices) == 0 {
		return fmt.Errorf("at least one storage device is required")
	}
	for _, device := range t.StorageDevices {
		if len(device.Capacities) == 0 {
			return fmt.Errorf("storage device %q has no capacities", device.Type)
		}
		for _, capacity := range device.Capacities {
			if capacity.CapacityGB <= 0 || capacity.Price < 0 {
				return fmt.Errorf("storage device %q has an invalid capacity entry", device.Type)
			}
		}
	}
	return nil
}

// ShippingRate returns the rate for a destination, falling back to the
// default rate when no zone matches.
func (t *RateTable) ShippingRate(destination string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(destination))
	for _, zone := range t.Zones {
		for _, location := range zone.Locations {
			if strings.ToLower(strings.TrimSpace(location)) == normalized {
				return zone.Rate
			}
		}
	}
	return t.DefaultRate
}

// StoragePrice returns the price of the given device/capacity combination.
func (t *RateTable) StoragePrice(storageType models.StorageType, capacityGB float64) (float64, error) {
	for _, device := range t.StorageDevices {
		if device.Type != storageType {
			continue
		}
		for _, capacity := range device.Capacities {
			if capacity.CapacityGB == capacityGB {
				return capacity.Price, nil
			}
		}
		return 0, fmt.Errorf("storage device %q has no %gGB option", storageType, capacityGB)
	}
	return 0, fmt.Errorf("unknown storage device %q", storageType)
}
