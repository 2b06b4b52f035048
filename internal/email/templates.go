package email

import (
	"bytes"
	"fmt"
	"text/template"
)

// OrderConfirmationInfo carries the fields rendered into the confirmation
// email sent once a payment is confirmed.
type OrderConfirmationInfo struct {
	OrderID          string
	CustomerName     string
	ItemCount        int
	StorageLabel     string
	TotalStorageGB   float64
	TotalAmount      float64
	Currency         string
	ConfirmationCode string
	Location         string
}

var orderConfirmationText = template.Must(template.New("order_confirmation_text").Parse(
	`Hi {{.CustomerName}},

Your payment has been received. Your studio bundle is being prepared.

Order:        {{.OrderID}}
Items:        {{.ItemCount}}
Storage:      {{.StorageLabel}} ({{printf "%.0f" .TotalStorageGB}} GB used)
Total:        {{.Currency}} {{printf "%.2f" .TotalAmount}}
{{- if .ConfirmationCode}}
Confirmation: {{.ConfirmationCode}}
{{- end}}

We will ship the loaded drive to {{.Location}}. You'll hear from us once it is
on its way.

Studio Builder
`))

// RenderOrderConfirmation produces the subject and plain-text body for the
// payment-received email.
func RenderOrderConfirmation(info OrderConfirmationInfo) (subject, text string, err error) {
	var buf bytes.Buffer
	if err := orderConfirmationText.Execute(&buf, info); err != nil {
		return "", "", fmt.Errorf("failed to render order confirmation: %w", err)
	}
	shortID := info.OrderID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fmt.Sprintf("Payment received - order %s", shortID), buf.String(), nil
}
