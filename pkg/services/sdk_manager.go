package services

import (
	"context"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
	"github.com/warden-db/warden/pkg/repositories"
)

// sdkManager implements SDKManager.
type sdkManager struct {
	dispatcher repositories.SDKDispatcher
	classifier *SDKClassifier
	gate       AuthorizationGate
	logger     Logger
	metrics    MetricsCollector
}

// NewSDKManager creates an SDK manager.
func NewSDKManager(
	dispatcher repositories.SDKDispatcher,
	classifier *SDKClassifier,
	gate AuthorizationGate,
	logger Logger,
	metrics MetricsCollector,
) SDKManager {
	return &sdkManager{
		dispatcher: dispatcher,
		classifier: classifier,
		gate:       gate,
		logger:     logger,
		metrics:    metrics,
	}
}

func (m *sdkManager) CallMethod(ctx context.Context, call *models.SDKCall, confirmationID string) (map[string]interface{}, error) {
	timer := m.metrics.StartTimer("sdk_call_duration_seconds")
	defer timer.Stop()

	if call.Method == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "method is required")
	}

	risk, err := m.classifier.Classify(call.Method)
	if err != nil {
		m.metrics.IncrementCounter("sdk_calls_total", "status", "unsupported")
		return nil, err
	}

	descriptor := models.OperationDescriptor{
		Client: models.ClientSDK,
		Target: call.Method,
		Risk:   risk,
	}

	decision := m.gate.Authorize(descriptor, confirmationID)
	switch decision.Kind {
	case models.DecisionDeny:
		m.metrics.IncrementCounter("sdk_calls_total", "status", "denied")
		return nil, errors.OperationNotAllowed(risk.String(), decision.Reason)
	case models.DecisionNeedsConfirmation:
		m.metrics.IncrementCounter("sdk_calls_total", "status", "needs_confirmation")
		return nil, errors.ConfirmationRequired(decision.ConfirmationID, risk.String(), decision.Reason)
	}

	response, err := m.dispatcher.Dispatch(ctx, call.Method, call.Params)
	if err != nil {
		m.metrics.IncrementCounter("sdk_calls_total", "status", "failed")
		return nil, err
	}

	m.metrics.IncrementCounter("sdk_calls_total", "status", "success")
	m.logger.Info("SDK method executed", "method", call.Method, "risk", risk.String())

	return response, nil
}
