package model

import (
	"strings"
	"time"
)

// Item is a tracked physical item, addressed by its unique code.
type Item struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedByID *int64    `json:"created_by_id,omitempty"`

	// Joined from users (not always populated).
	CreatedBy string `json:"created_by,omitempty"`
}

// ItemInput holds the editable fields of an item. Code is only honoured on
// creation; a blank code asks for a generated one.
type ItemInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Quantity    int    `json:"quantity"`
	Status      string `json:"status"`
}

// ItemFilter narrows an item listing. Empty fields are ignored.
type ItemFilter struct {
	Search   string
	Category string
	Status   string
}

// Suggested item statuses. Any non-empty status is accepted.
const (
	ItemStatusAvailable   = "available"
	ItemStatusInUse       = "in_use"
	ItemStatusMaintenance = "maintenance"
	ItemStatusRetired     = "retired"
)

// ItemStatuses lists the suggested statuses in display order.
var ItemStatuses = []string{
	ItemStatusAvailable,
	ItemStatusInUse,
	ItemStatusMaintenance,
	ItemStatusRetired,
}

// DefaultQuantity is used when a submission leaves quantity empty.
const DefaultQuantity = 1

// Normalize applies defaults to an input: trims free text, fills in
// status and clamps quantity.
func (in *ItemInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		in.Status = ItemStatusAvailable
	}
	if in.Quantity < 0 {
		in.Quantity = 0
	}
}
