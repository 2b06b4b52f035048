package services

import (
	"context"
	"fmt"

	"github.com/studiobuilderapp/studiobuilder/internal/email"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// ProviderOrderEmailSender renders and sends order email through the
// configured provider.
type ProviderOrderEmailSender struct {
	provider email.Provider
}

func NewProviderOrderEmailSender(provider email.Provider) *ProviderOrderEmailSender {
	if provider == nil {
		provider = email.NoopProvider{}
	}
	return &ProviderOrderEmailSender{provider: provider}
}

func (s *ProviderOrderEmailSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	subject, text, err := email.RenderOrderConfirmation(email.OrderConfirmationInfo{
		OrderID:          order.ID.String(),
		CustomerName:     order.Customer.Name,
		ItemCount:        len(order.Items.Products) + len(order.Items.LibraryPacks),
		StorageLabel:     storageLabel(order.Storage),
		TotalStorageGB:   order.TotalStorageGB,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		ConfirmationCode: order.ConfirmationCode,
		Location:         order.Customer.Location,
	})
	if err != nil {
		return err
	}

	return s.provider.SendEmail(ctx, &email.Email{
		To:      order.Customer.Email,
		Subject: subject,
		Text:    text,
	})
}

func storageLabel(storage models.StorageSelection) string {
	var name string
	switch storage.Type {
	case models.StorageUSB:
		name = "USB flash drive"
	case models.StorageHDD:
		name = "External HDD"
	case models.StorageSataSSD:
		name = "SATA SSD"
	case models.StorageNVMeSSD:
		name = "NVMe SSD"
	default:
		name = string(storage.Type)
	}
	return fmt.Sprintf("%s %.0f GB", name, storage.CapacityGB)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *models.Order) error {
	return nil
}
