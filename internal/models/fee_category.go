package models

import (
	"strings"
	"time"
)

// FeeCategory classifies what a fee is charged for (tuition, transport, ...).
// Mirrors FeeFrequency structurally: tenant-scoped, system rows protected.
type FeeCategory struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	Description  string    `db:"description" json:"description"`
	IsSystem     bool      `db:"is_system" json:"is_system"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultCategories returns the system categories seeded per tenant.
func DefaultCategories() []FeeCategory {
	return []FeeCategory{
		{Name: "Tuition Fee", Code: "TUITION_FEE", IsSystem: true, DisplayOrder: 1, Active: true},
		{Name: "Admission Fee", Code: "ADMISSION_FEE", IsSystem: true, DisplayOrder: 2, Active: true},
		{Name: "Transport Fee", Code: "TRANSPORT_FEE", IsSystem: true, DisplayOrder: 3, Active: true},
		{Name: "Examination Fee", Code: "EXAMINATION_FEE", IsSystem: true, DisplayOrder: 4, Active: true},
		{Name: "Library Fee", Code: "LIBRARY_FEE", IsSystem: true, DisplayOrder: 5, Active: true},
		{Name: "Activity Fee", Code: "ACTIVITY_FEE", IsSystem: true, DisplayOrder: 6, Active: true},
	}
}

// DeriveCategoryCode builds a category code from a display name:
// uppercase with underscores, e.g. "Sports Fee" -> "SPORTS_FEE".
func DeriveCategoryCode(name string) string {
	code := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.ToUpper(strings.Trim(code, "_"))
}
