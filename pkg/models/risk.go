// Package models defines core domain types for the operation gateway.
package models

import "fmt"

// RiskLevel grades the blast radius of an operation. Levels form a total
// order: RiskLow < RiskMedium < RiskHigh < RiskExtreme.
type RiskLevel int

const (
	// RiskLow covers read-only operations.
	RiskLow RiskLevel = iota + 1
	// RiskMedium covers data mutations that are reversible in principle.
	RiskMedium
	// RiskHigh covers destructive or schema-changing operations.
	RiskHigh
	// RiskExtreme covers operations that destroy entire systems. Never
	// executable through the gateway.
	RiskExtreme
)

// String returns the canonical lowercase name of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskExtreme:
		return "extreme"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}

// SafetyMode is the per-client operating mode of the gateway.
type SafetyMode string

const (
	// SafetyModeSafe permits only low-risk operations.
	SafetyModeSafe SafetyMode = "safe"
	// SafetyModeUnsafe permits medium-risk operations and, with
	// confirmation, high-risk operations.
	SafetyModeUnsafe SafetyMode = "unsafe"
)

// ParseSafetyMode converts a string into a SafetyMode.
func ParseSafetyMode(s string) (SafetyMode, error) {
	switch SafetyMode(s) {
	case SafetyModeSafe:
		return SafetyModeSafe, nil
	case SafetyModeUnsafe:
		return SafetyModeUnsafe, nil
	default:
		return "", fmt.Errorf("invalid safety mode: %q", s)
	}
}

// ClientType identifies the subsystem an operation targets.
type ClientType string

const (
	// ClientDatabase is the SQL execution path.
	ClientDatabase ClientType = "database"
	// ClientManagementAPI is the control-plane REST path.
	ClientManagementAPI ClientType = "management_api"
	// ClientSDK is the admin SDK path.
	ClientSDK ClientType = "sdk"
)

// ParseClientType converts a string into a ClientType.
func ParseClientType(s string) (ClientType, error) {
	switch ClientType(s) {
	case ClientDatabase:
		return ClientDatabase, nil
	case ClientManagementAPI:
		return ClientManagementAPI, nil
	case ClientSDK:
		return ClientSDK, nil
	default:
		return "", fmt.Errorf("invalid client type: %q", s)
	}
}

// ClientTypes lists all known client types in a stable order.
func ClientTypes() []ClientType {
	return []ClientType{ClientDatabase, ClientManagementAPI, ClientSDK}
}
