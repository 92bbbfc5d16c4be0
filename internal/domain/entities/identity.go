package entities

import (
	"math"

	"github.com/google/uuid"
)

// Identity is the authenticated caller of a protected request
type Identity struct {
	IsMaster     bool
	UserID       uuid.UUID
	ApiKeyID     uuid.UUID
	MonthlyLimit int64
}

// MasterIdentity is the unlimited operator identity. It is never persisted.
func MasterIdentity() *Identity {
	return &Identity{IsMaster: true, MonthlyLimit: math.MaxInt64}
}

// QuotaMeta is the rate-limit metadata surfaced to the caller
type QuotaMeta struct {
	Limit     int64
	Remaining int64
	Used      int64
	Unlimited bool
}

// UnlimitedQuota is the metadata reported for the master identity
func UnlimitedQuota() QuotaMeta {
	return QuotaMeta{Limit: math.MaxInt64, Remaining: math.MaxInt64, Used: 0, Unlimited: true}
}

// AuthKind discriminates AuthResult
type AuthKind int

const (
	AuthDenied AuthKind = iota
	AuthAllowed
)

// DenyReason explains an AuthDenied result
type DenyReason string

const (
	DenyQuotaExceeded DenyReason = "quota_exceeded"
)

// AuthResult is the outcome of the rate-limit decision for a resolved identity.
// Identity is set only for AuthAllowed, Reason only for AuthDenied; Meta is always populated.
type AuthResult struct {
	Kind     AuthKind
	Identity *Identity
	Meta     QuotaMeta
	Reason   DenyReason
	// Reserved is true when a unit was already committed to the ledger for this request.
	Reserved bool
	// Period is the month bucket the reserved unit was taken from.
	Period Period
}

// Allowed builds an AuthAllowed result
func Allowed(id *Identity, meta QuotaMeta, reserved bool) AuthResult {
	return AuthResult{Kind: AuthAllowed, Identity: id, Meta: meta, Reserved: reserved}
}

// Denied builds an AuthDenied result
func Denied(reason DenyReason, meta QuotaMeta) AuthResult {
	return AuthResult{Kind: AuthDenied, Meta: meta, Reason: reason}
}
