package models

// Table and StaffMember are read-only reference data mirrored from the
// backend. They are stored as wrapped single-key JSON records in settings
// rather than as their own collections, so there are no gorm tags here.
//
// Occupancy fields on Table are derived state: the engine recomputes them from
// order replay outcomes and they are never authoritative on the client.

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusCleaning  = "cleaning"
)

type Table struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	Capacity       int    `json:"capacity"`
	Section        string `json:"section"`
	Status         string `json:"status"`
	CurrentOrderID string `json:"current_order_id,omitempty"`
	StaffID        string `json:"staff_id,omitempty"`
}

type StaffMember struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	OnDuty bool   `json:"on_duty"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
}
