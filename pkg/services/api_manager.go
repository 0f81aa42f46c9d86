package services

import (
	"context"
	"strings"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
	"github.com/warden-db/warden/pkg/repositories"
)

// knownPlaceholders are the path template placeholders the manager will
// substitute. "ref" is special: it is always injected from configuration
// and never accepted from the caller, so a request can only ever address
// the project this gateway fronts.
var knownPlaceholders = map[string]bool{
	"ref":           true,
	"id":            true,
	"slug":          true,
	"function_slug": true,
	"branch_id":     true,
	"provider_id":   true,
	"tpa_id":        true,
}

// managementManager implements ManagementManager.
type managementManager struct {
	client     repositories.ManagementClient
	classifier *APIClassifier
	gate       AuthorizationGate
	projectRef string
	logger     Logger
	metrics    MetricsCollector
}

// NewManagementManager creates a management API manager bound to one
// project ref.
func NewManagementManager(
	client repositories.ManagementClient,
	classifier *APIClassifier,
	gate AuthorizationGate,
	projectRef string,
	logger Logger,
	metrics MetricsCollector,
) ManagementManager {
	return &managementManager{
		client:     client,
		classifier: classifier,
		gate:       gate,
		projectRef: projectRef,
		logger:     logger,
		metrics:    metrics,
	}
}

func (m *managementManager) ExecuteRequest(ctx context.Context, req *models.ManagementRequest, confirmationID string) (map[string]interface{}, error) {
	timer := m.metrics.StartTimer("management_request_duration_seconds")
	defer timer.Stop()

	if req.Method == "" || req.Path == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "method and path are required")
	}

	risk := m.classifier.Classify(req.Method, req.Path)

	descriptor := models.OperationDescriptor{
		Client: models.ClientManagementAPI,
		Target: req.Target(),
		Risk:   risk,
	}

	decision := m.gate.Authorize(descriptor, confirmationID)
	switch decision.Kind {
	case models.DecisionDeny:
		m.metrics.IncrementCounter("management_requests_total", "status", "denied")
		return nil, errors.OperationNotAllowed(risk.String(), decision.Reason)
	case models.DecisionNeedsConfirmation:
		m.metrics.IncrementCounter("management_requests_total", "status", "needs_confirmation")
		return nil, errors.ConfirmationRequired(decision.ConfirmationID, risk.String(), decision.Reason)
	}

	resolved, err := m.resolvePath(req.Path, req.PathParams)
	if err != nil {
		m.metrics.IncrementCounter("management_requests_total", "status", "invalid")
		return nil, err
	}

	response, err := m.client.Do(ctx, strings.ToUpper(req.Method), resolved, req.QueryParams, req.Body)
	if err != nil {
		m.metrics.IncrementCounter("management_requests_total", "status", "failed")
		return nil, err
	}

	m.metrics.IncrementCounter("management_requests_total", "status", "success")
	m.logger.Info("Management request executed",
		"method", req.Method,
		"path", req.Path,
		"risk", risk.String())

	return response, nil
}

// resolvePath substitutes path parameters into the template. The project
// ref comes from configuration; caller-supplied ref values are rejected,
// as are unknown placeholders and parameters the template does not use.
func (m *managementManager) resolvePath(template string, params map[string]string) (string, error) {
	if _, ok := params["ref"]; ok {
		return "", errors.New(errors.CodeInvalidRequest,
			"path parameter \"ref\" is injected from configuration and cannot be supplied")
	}

	used := make(map[string]bool, len(params))
	resolved := template

	for _, match := range placeholderRe.FindAllString(template, -1) {
		name := strings.Trim(match, "{}")
		if !knownPlaceholders[name] {
			return "", errors.Newf(errors.CodeInvalidRequest,
				"unknown path placeholder %q in %s", name, template)
		}

		var value string
		if name == "ref" {
			value = m.projectRef
		} else {
			v, ok := params[name]
			if !ok || v == "" {
				return "", errors.Newf(errors.CodeInvalidRequest,
					"missing path parameter %q for %s", name, template)
			}
			value = v
			used[name] = true
		}

		if strings.ContainsAny(value, "/?#") {
			return "", errors.Newf(errors.CodeInvalidRequest,
				"path parameter %q contains path separators", name)
		}
		resolved = strings.Replace(resolved, match, value, 1)
	}

	for name := range params {
		if !used[name] {
			return "", errors.Newf(errors.CodeInvalidRequest,
				"path parameter %q does not appear in %s", name, template)
		}
	}

	return resolved, nil
}
