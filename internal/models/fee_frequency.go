package models

import (
	"regexp"
	"strings"
	"time"
)

// Built-in frequency codes seeded for every tenant. Custom frequencies carry
// tenant-defined codes and rely on MonthsInterval for scheduling.
const (
	FrequencyOneTime    = "one-time"
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencyHalfYearly = "half-yearly"
	FrequencyYearly     = "yearly"
)

// FeeFrequency defines a billing cadence for fee structures.
// MonthsInterval is 0 for one-time charges, else the number of months
// between occurrences.
type FeeFrequency struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	Name           string    `db:"name" json:"name"`
	Code           string    `db:"code" json:"code"`
	MonthsInterval int       `db:"months_interval" json:"months_interval"`
	IsSystem       bool      `db:"is_system" json:"is_system"`
	DisplayOrder   int       `db:"display_order" json:"display_order"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultFrequencies returns the five system cadences seeded per tenant.
func DefaultFrequencies() []FeeFrequency {
	return []FeeFrequency{
		{Name: "One Time", Code: FrequencyOneTime, MonthsInterval: 0, IsSystem: true, DisplayOrder: 1, Active: true},
		{Name: "Monthly", Code: FrequencyMonthly, MonthsInterval: 1, IsSystem: true, DisplayOrder: 2, Active: true},
		{Name: "Quarterly", Code: FrequencyQuarterly, MonthsInterval: 3, IsSystem: true, DisplayOrder: 3, Active: true},
		{Name: "Half Yearly", Code: FrequencyHalfYearly, MonthsInterval: 6, IsSystem: true, DisplayOrder: 4, Active: true},
		{Name: "Yearly", Code: FrequencyYearly, MonthsInterval: 12, IsSystem: true, DisplayOrder: 5, Active: true},
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveFrequencyCode builds a frequency code from a display name:
// lowercase with hyphens, e.g. "Half Yearly" -> "half-yearly".
func DeriveFrequencyCode(name string) string {
	code := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(code, "-")
}
