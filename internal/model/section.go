package model

import "time"

// Section groups stalls inside a group label. Stall numbers are shared by
// every section of the same group.
type Section struct {
	ID           uint64    `json:"id"`             // sections.id
	Group        string    `json:"group"`          // sections.group_name
	Name         string    `json:"name"`           // sections.name
	StallsPerRow int       `json:"stalls_per_row"` // sections.stalls_per_row
	CreatedAt    time.Time `json:"created_at"`     // sections.created_at
	UpdatedAt    time.Time `json:"updated_at"`     // sections.updated_at
}

// SectionView is a section listing row.
type SectionView struct {
	Section
	StallCount int `json:"stall_count"`
}
