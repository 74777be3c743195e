package model

import "time"

// Vendor is a party renting stalls. Name is unique ignoring case.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – business name.
//	Owner     – person responsible for the business.
//	Birthdate – owner's birthdate; owners must be adults.
//	Type      – kind of goods sold.
//	Address   – postal address.
//	Contact   – phone or other contact detail.
type Vendor struct {
	ID        uint64     `json:"id"`                  // vendors.id
	Name      string     `json:"name"`                // vendors.name
	Owner     string     `json:"owner"`               // vendors.owner
	Birthdate *time.Time `json:"birthdate,omitempty"` // vendors.birthdate (nullable)
	Type      string     `json:"type"`                // vendors.type
	Address   string     `json:"address"`             // vendors.address
	Contact   string     `json:"contact"`             // vendors.contact
	CreatedAt time.Time  `json:"created_at"`          // vendors.created_at
	UpdatedAt time.Time  `json:"updated_at"`          // vendors.updated_at
}

// VendorView is a vendor listing row.
type VendorView struct {
	Vendor
	HasRental bool `json:"has_rental"`
}
