package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionCreate         = "CREATE"
	AuditActionUpdate         = "UPDATE"
	AuditActionDelete         = "DELETE"
	AuditActionFeePayment     = "FEE_PAYMENT"
	AuditActionFeeAssignment  = "FEE_ASSIGNMENT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
)

// AuditLog represents an activity trail record scoped to a tenant.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	TenantID   *string   `db:"tenant_id" json:"tenant_id,omitempty"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
