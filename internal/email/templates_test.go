package email

import (
	"strings"
	"testing"
)

func TestRenderOrderConfirmation(t *testing.T) {
	t.Parallel()

	subject, text, err := RenderOrderConfirmation(OrderConfirmationInfo{
		OrderID:          "3f2a1b9c-0000-4000-8000-000000000000",
		CustomerName:     "Asha Mrema",
		ItemCount:        3,
		StorageLabel:     "External HDD 500 GB",
		TotalStorageGB:   14,
		TotalAmount:      162000,
		Currency:         "TZS",
		ConfirmationCode: "CONF-7",
		Location:         "Arusha",
	})
	if err != nil {
		t.Fatalf("RenderOrderConfirmation() error: %v", err)
	}

	if !strings.Contains(subject, "3f2a1b9c") {
		t.Fatalf("subject %q does not carry the short order id", subject)
	}
	for _, want := range []string{"Asha Mrema", "External HDD 500 GB", "TZS 162000.00", "CONF-7", "Arusha"} {
		if !strings.Contains(text, want) {
			t.Fatalf("body missing %q:\n%s", want, text)
		}
	}
}

func TestRenderOrderConfirmationWithoutConfirmationCode(t *testing.T) {
	t.Parallel()

	_, text, err := RenderOrderConfirmation(OrderConfirmationInfo{
		OrderID:      "abc",
		CustomerName: "Juma",
	})
	if err != nil {
		t.Fatalf("RenderOrderConfirmation() error: %v", err)
	}
	if strings.Contains(text, "Confirmation:") {
		t.Fatalf("body shows empty confirmation line:\n%s", text)
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	provider, err := NewProvider(Config{})
	if err != nil {
		t.Fatalf("NewProvider() error: %v", err)
	}
	if _, ok := provider.(NoopProvider); !ok {
		t.Fatalf("NewProvider() with empty config = %T, want NoopProvider", provider)
	}

	if _, err := NewProvider(Config{Provider: "sendgrid"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
