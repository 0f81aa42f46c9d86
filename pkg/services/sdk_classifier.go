package services

import (
	"sort"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
)

// SDKClassifier assigns risk levels to admin SDK method calls by method
// name. The method set is closed: anything outside the table is an
// unsupported operation, not a default risk.
type SDKClassifier struct {
	risks map[string]models.RiskLevel
}

// NewSDKClassifier creates a classifier with the built-in method table.
func NewSDKClassifier() *SDKClassifier {
	return &SDKClassifier{
		risks: map[string]models.RiskLevel{
			// Reads.
			"list_users":     models.RiskLow,
			"get_user_by_id": models.RiskLow,

			// Account mutations.
			"create_user":          models.RiskMedium,
			"update_user_by_id":    models.RiskMedium,
			"invite_user_by_email": models.RiskMedium,
			"generate_link":        models.RiskMedium,

			// Destructive.
			"delete_user":   models.RiskHigh,
			"delete_factor": models.RiskHigh,
		},
	}
}

// Classify returns the risk level for a method name, or an
// UNSUPPORTED_OPERATION error for methods outside the table.
func (c *SDKClassifier) Classify(method string) (models.RiskLevel, error) {
	risk, ok := c.risks[method]
	if !ok {
		return 0, errors.Newf(errors.CodeUnsupportedOperation,
			"unsupported sdk method: %q", method)
	}
	return risk, nil
}

// Methods returns the supported method names in sorted order.
func (c *SDKClassifier) Methods() []string {
	methods := make([]string, 0, len(c.risks))
	for m := range c.risks {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}
