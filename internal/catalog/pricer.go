package catalog

import (
	"fmt"

	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

// Pricer computes the totals snapshotted onto an order at creation time.
// It is a pure aggregation over the selected items and the rate table.
type Pricer struct {
	rates *RateTable
}

func NewPricer(rates *RateTable) *Pricer {
	return &Pricer{rates: rates}
}

type Totals struct {
	StorageGB float64
	Amount    float64
	Shipping  float64
}

// ComputeTotals sums file sizes and prices for the selection, adds the
// storage device price and the destination's shipping rate, and verifies the
// bundle fits on the chosen device.
func (p *Pricer) ComputeTotals(items models.OrderItems, storage models.StorageSelection, destination string) (Totals, error) {
	var totals Totals

	for _, product := range items.Products {
		totals.StorageGB += product.FileSizeGB
		if !product.IsFree {
			totals.Amount += product.Price
		}
	}
	for _, pack := range items.LibraryPacks {
		totals.StorageGB += pack.FileSizeGB
		totals.Amount += pack.Price
	}

	if totals.StorageGB > storage.CapacityGB {
		return Totals{}, fmt.Errorf("selection needs %gGB but %s holds only %gGB",
			totals.StorageGB, storage.Type, storage.CapacityGB)
	}

	devicePrice, err := p.rates.StoragePrice(storage.Type, storage.CapacityGB)
	if err != nil {
		return Totals{}, err
	}
	totals.Amount += devicePrice

	totals.Shipping = p.rates.ShippingRate(destination)
	totals.Amount += totals.Shipping

	return totals, nil
}
