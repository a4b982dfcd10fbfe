package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// FeeStructure is a priced fee offering for a set of classes in an academic
// year. It is a template: per-student obligations are FeeAssignments that
// copy the amount at assignment time.
type FeeStructure struct {
	ID           string          `db:"id" json:"id"`
	TenantID     string          `db:"tenant_id" json:"tenant_id"`
	Name         string          `db:"name" json:"name"`
	CategoryID   string          `db:"category_id" json:"category_id"`
	FrequencyID  string          `db:"frequency_id" json:"frequency_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	AcademicYear string          `db:"academic_year" json:"academic_year"`
	DueDay       int             `db:"due_day" json:"due_day"`
	Active       bool            `db:"active" json:"active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// FeeStructureDetail joins catalog names and class bindings for responses.
type FeeStructureDetail struct {
	FeeStructure
	CategoryName  string   `db:"category_name" json:"category_name"`
	CategoryCode  string   `db:"category_code" json:"category_code"`
	FrequencyName string   `db:"frequency_name" json:"frequency_name"`
	FrequencyCode string   `db:"frequency_code" json:"frequency_code"`
	ClassIDs      []string `json:"class_ids"`
}

// FeeStructureFilter restricts fee structure listings.
type FeeStructureFilter struct {
	AcademicYear string
	CategoryID   string
	ClassID      string
	Active       *bool
	Page         int
	PageSize     int
}

var academicYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

// ValidAcademicYear reports whether the value follows the "YYYY-YYYY" form.
func ValidAcademicYear(year string) bool {
	return academicYearPattern.MatchString(year)
}
