package models

import "time"

// Product is a catalog entry: a DAW, plugin suite, or sample tool that
// occupies disk space on the shipped storage device.
type Product struct {
	ID           string        `json:"id"`
	CategoryID   string        `json:"category_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	FileSizeGB   float64       `json:"file_size_gb"`
	IsFree       bool          `json:"is_free"`
	Price        float64       `json:"price"`
	Features     []string      `json:"features,omitempty"`
	LibraryPacks []LibraryPack `json:"library_packs,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// LibraryPack is an optional sample/preset pack attached to a product.
type LibraryPack struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	FileSizeGB  float64 `json:"file_size_gb"`
	Price       float64 `json:"price"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	HelperText  string    `json:"helper_text,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}
