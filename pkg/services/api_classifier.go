package services

import (
	"regexp"
	"strings"

	"github.com/warden-db/warden/pkg/models"
)

// APIClassifier assigns risk levels to management API calls from the HTTP
// method and path. Defaults are by method; an override table raises
// specific paths. Paths are matched against templates, so both template
// form (/v1/projects/{ref}) and concrete form match.
type APIClassifier struct {
	overrides []apiOverride
}

type apiOverride struct {
	method  string
	pattern *regexp.Regexp
	risk    models.RiskLevel
}

// NewAPIClassifier creates a classifier with the built-in override table.
func NewAPIClassifier() *APIClassifier {
	c := &APIClassifier{}

	// Deleting the project itself destroys everything behind the gateway.
	c.add("DELETE", "/v1/projects/{ref}", models.RiskExtreme)

	// State-changing project lifecycle operations that default rules
	// would grade medium.
	c.add("POST", "/v1/projects/{ref}/pause", models.RiskHigh)
	c.add("POST", "/v1/projects/{ref}/restore", models.RiskHigh)
	c.add("POST", "/v1/projects/{ref}/restore/cancel", models.RiskHigh)
	c.add("POST", "/v1/projects/{ref}/upgrade", models.RiskHigh)
	c.add("POST", "/v1/projects/{ref}/read-replicas/setup", models.RiskHigh)
	c.add("POST", "/v1/projects/{ref}/read-replicas/remove", models.RiskHigh)
	c.add("POST", "/v1/projects/{ref}/database/backups/restore-pitr", models.RiskHigh)
	c.add("PUT", "/v1/projects/{ref}/config/auth", models.RiskHigh)
	c.add("PATCH", "/v1/projects/{ref}/config/database/postgres", models.RiskHigh)

	return c
}

func (c *APIClassifier) add(method, template string, risk models.RiskLevel) {
	c.overrides = append(c.overrides, apiOverride{
		method:  method,
		pattern: compilePathTemplate(template),
		risk:    risk,
	})
}

// Classify returns the risk level for a method and path. Unknown methods
// grade high.
func (c *APIClassifier) Classify(method, path string) models.RiskLevel {
	method = strings.ToUpper(strings.TrimSpace(method))
	path = normalizePath(path)

	for _, o := range c.overrides {
		if o.method == method && o.pattern.MatchString(path) {
			return o.risk
		}
	}

	switch method {
	case "GET", "HEAD", "OPTIONS":
		return models.RiskLow
	case "POST", "PUT", "PATCH":
		return models.RiskMedium
	case "DELETE":
		return models.RiskHigh
	default:
		return models.RiskHigh
	}
}

var placeholderRe = regexp.MustCompile(`\{[^/{}]+\}`)

// compilePathTemplate turns /v1/projects/{ref}/x into an anchored regexp
// where each placeholder matches one path segment. Placeholders in the
// candidate path also match, so templates match templates.
func compilePathTemplate(template string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(normalizePath(template))
	// QuoteMeta escapes { and } so the placeholder now reads \{ref\}.
	pattern := regexp.MustCompile(`\\\{[^/]+\\\}`).ReplaceAllString(escaped, `[^/]+`)
	return regexp.MustCompile("^" + pattern + "$")
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
