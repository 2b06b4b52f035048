package catalog

import (
	"strings"
	"testing"

	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	pricer := NewPricer(testRateTable())

	items := models.OrderItems{
		Products: []models.Product{
			{ID: "p1", Name: "Reaper", FileSizeGB: 1.5, Price: 30000},
			{ID: "p2", Name: "LMMS", FileSizeGB: 0.75, IsFree: true, Price: 99999},
		},
		LibraryPacks: []models.LibraryPack{
			{ID: "lp1", Name: "Drum Kit Vol 1", FileSizeGB: 12, Price: 10000},
		},
	}
	storage := models.StorageSelection{Type: models.StorageHDD, CapacityGB: 500}

	totals, err := pricer.ComputeTotals(items, storage, "arusha")
	if err != nil {
		t.Fatalf("ComputeTotals() error: %v", err)
	}

	if totals.StorageGB != 14.25 {
		t.Fatalf("storage GB = %v, want 14.25", totals.StorageGB)
	}
	// 30000 (paid product) + 10000 (pack) + 110000 (HDD 500) + 12000 (shipping);
	// the free product's listed price must not be charged.
	if totals.Amount != 162000 {
		t.Fatalf("amount = %v, want 162000", totals.Amount)
	}
	if totals.Shipping != 12000 {
		t.Fatalf("shipping = %v, want 12000", totals.Shipping)
	}
}

func TestComputeTotalsSelectionTooLarge(t *testing.T) {
	t.Parallel()

	pricer := NewPricer(testRateTable())

	items := models.OrderItems{
		Products: []models.Product{{ID: "p1", FileSizeGB: 80}},
	}
	storage := models.StorageSelection{Type: models.StorageUSB, CapacityGB: 64}

	_, err := pricer.ComputeTotals(items, storage, "dar")
	if err == nil {
		t.Fatal("expected error when selection exceeds device capacity")
	}
	if !strings.Contains(err.Error(), "holds only") {
		t.Fatalf("error %q does not explain the capacity problem", err)
	}
}

func TestComputeTotalsUnknownDevice(t *testing.T) {
	t.Parallel()

	pricer := NewPricer(testRateTable())

	_, err := pricer.ComputeTotals(models.OrderItems{}, models.StorageSelection{Type: models.StorageNVMeSSD, CapacityGB: 500}, "dar")
	if err == nil {
		t.Fatal("expected error for device missing from the rate table")
	}
}
