package services

import (
	"fmt"

	"github.com/warden-db/warden/pkg/models"
)

// authorizationGate applies the safety policy to operation descriptors.
// The decision table, in order:
//
//	EXTREME            -> deny, unconditionally
//	SAFE   + LOW       -> allow
//	SAFE   + MED/HIGH  -> deny
//	UNSAFE + LOW/MED   -> allow
//	UNSAFE + HIGH      -> allow only with a valid matching confirmation
//	                      token; otherwise issue a fresh token
type authorizationGate struct {
	registry SafetyRegistry
	ledger   ConfirmationLedger
	logger   Logger
	metrics  MetricsCollector
}

// NewAuthorizationGate creates the gate.
func NewAuthorizationGate(registry SafetyRegistry, ledger ConfirmationLedger, logger Logger, metrics MetricsCollector) AuthorizationGate {
	return &authorizationGate{
		registry: registry,
		ledger:   ledger,
		logger:   logger,
		metrics:  metrics,
	}
}

func (g *authorizationGate) Authorize(descriptor models.OperationDescriptor, confirmationID string) models.Decision {
	decision := g.decide(descriptor, confirmationID)

	g.metrics.IncrementCounter("gate_decisions_total",
		"client", string(descriptor.Client),
		"risk", descriptor.Risk.String(),
		"decision", decisionLabel(decision.Kind))

	switch decision.Kind {
	case models.DecisionAllow:
		g.logger.Debug("Operation allowed",
			"client", string(descriptor.Client),
			"risk", descriptor.Risk.String())
	case models.DecisionDeny:
		g.logger.Info("Operation denied",
			"client", string(descriptor.Client),
			"risk", descriptor.Risk.String(),
			"reason", decision.Reason)
	case models.DecisionNeedsConfirmation:
		g.logger.Info("Operation needs confirmation",
			"client", string(descriptor.Client),
			"risk", descriptor.Risk.String(),
			"confirmation_id", decision.ConfirmationID)
	}

	return decision
}

func (g *authorizationGate) decide(descriptor models.OperationDescriptor, confirmationID string) models.Decision {
	if descriptor.Risk == models.RiskExtreme {
		return models.Deny(fmt.Sprintf(
			"operation %q is extreme risk and can never run through this gateway",
			descriptor.Target))
	}

	mode := g.registry.Mode(descriptor.Client)

	if mode == models.SafetyModeSafe {
		if descriptor.Risk == models.RiskLow {
			return models.Allow()
		}
		return models.Deny(fmt.Sprintf(
			"%s risk operations are not allowed while %s is in safe mode; switch to unsafe mode first",
			descriptor.Risk, descriptor.Client))
	}

	// Unsafe mode.
	if descriptor.Risk <= models.RiskMedium {
		return models.Allow()
	}

	// High risk: a valid, matching, unexpired token authorizes exactly one
	// execution. Any consume failure falls through to a fresh token, so
	// callers always get a usable id back rather than an opaque error.
	fingerprint := descriptor.Fingerprint()
	if confirmationID != "" {
		err := g.ledger.Consume(confirmationID, fingerprint)
		if err == nil {
			return models.Allow()
		}
		g.logger.Info("Confirmation token rejected, issuing a fresh one",
			"confirmation_id", confirmationID,
			"error", err.Error())
	}

	newID := g.ledger.Create(fingerprint)
	return models.NeedsConfirmation(newID, fmt.Sprintf(
		"operation %q is high risk and requires confirmation; resubmit the identical request with this confirmation id",
		descriptor.Target))
}

func decisionLabel(kind models.DecisionKind) string {
	switch kind {
	case models.DecisionAllow:
		return "allow"
	case models.DecisionDeny:
		return "deny"
	case models.DecisionNeedsConfirmation:
		return "needs_confirmation"
	default:
		return "unknown"
	}
}
