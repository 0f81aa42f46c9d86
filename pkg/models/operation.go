package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// OperationDescriptor is the canonical description of a single requested
// operation, as presented to the authorization gate.
type OperationDescriptor struct {
	Client ClientType
	Target string
	Risk   RiskLevel
}

// Fingerprint returns a stable content hash of the descriptor's identity
// (client and target). Confirmation tokens are bound to this value, so a
// token issued for one operation can never authorize a different one.
// Risk is derived from the target and deliberately excluded.
func (d OperationDescriptor) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(d.Client))
	h.Write([]byte{0})
	h.Write([]byte(d.Target))
	return hex.EncodeToString(h.Sum(nil))
}

// DecisionKind enumerates the outcomes of the authorization gate.
type DecisionKind int

const (
	// DecisionAllow permits immediate execution.
	DecisionAllow DecisionKind = iota + 1
	// DecisionDeny rejects the operation with a human-readable reason.
	DecisionDeny
	// DecisionNeedsConfirmation rejects the operation but issues a
	// confirmation id the caller can resubmit with.
	DecisionNeedsConfirmation
)

// Decision is the outcome of gating one operation descriptor.
type Decision struct {
	Kind           DecisionKind
	Reason         string
	ConfirmationID string
}

// Allow builds an allow decision.
func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

// Deny builds a deny decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Kind: DecisionDeny, Reason: reason}
}

// NeedsConfirmation builds a needs-confirmation decision carrying a freshly
// issued confirmation id.
func NeedsConfirmation(confirmationID, reason string) Decision {
	return Decision{
		Kind:           DecisionNeedsConfirmation,
		Reason:         reason,
		ConfirmationID: confirmationID,
	}
}
