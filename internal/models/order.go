package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusProcessing     OrderStatus = "processing"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodPesapal PaymentMethod = "pesapal"
	PaymentMethodOther   PaymentMethod = "other"
)

// Customer is captured at checkout and immutable afterwards.
type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

// OrderItems is a snapshot of the selected catalog entries at order-creation
// time. Catalog edits after creation never alter a placed order.
type OrderItems struct {
	Products     []Product     `json:"products"`
	LibraryPacks []LibraryPack `json:"library_packs"`
}

// StorageSelection is the physical storage device chosen for the bundle.
type StorageSelection struct {
	Type       StorageType `json:"type"`
	CapacityGB float64     `json:"capacity_gb"`
}

type StorageType string

const (
	StorageUSB     StorageType = "usb"
	StorageHDD     StorageType = "hdd"
	StorageSataSSD StorageType = "sata-ssd"
	StorageNVMeSSD StorageType = "nvme-ssd"
)

type Order struct {
	ID                uuid.UUID        `json:"id"`
	Customer          Customer         `json:"customer"`
	Items             OrderItems       `json:"items"`
	Storage           StorageSelection `json:"storage"`
	TotalStorageGB    float64          `json:"total_storage_gb"`
	TotalAmount       float64          `json:"total_amount"`
	Currency          string           `json:"currency"`
	Status            OrderStatus      `json:"status"`
	PaymentMethod     PaymentMethod    `json:"payment_method,omitempty"`
	GatewayTrackingID string           `json:"gateway_tracking_id,omitempty"`
	ConfirmationCode  string           `json:"confirmation_code,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	PaidAt            time.Time        `json:"paid_at,omitzero"`
}

// Terminal reports whether no further status transitions are accepted.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidTransition reports whether an order may move from one status to
// another. Same-status writes are allowed so that repeated reconciliations of
// the same gateway outcome stay idempotent.
func ValidTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}

	switch from {
	case StatusPendingPayment:
		return to == StatusProcessing || to == StatusPaid || to == StatusCancelled
	case StatusProcessing:
		return to == StatusPendingPayment || to == StatusPaid || to == StatusCancelled
	case StatusPaid:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
