// Package handlers exposes the gateway over a JSON HTTP surface.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
	"github.com/warden-db/warden/pkg/services"
)

// GatewayHandler wires the operation managers to HTTP routes.
type GatewayHandler struct {
	queries    services.QueryManager
	management services.ManagementManager
	sdk        services.SDKManager
	registry   services.SafetyRegistry
	logger     zerolog.Logger
}

// NewGatewayHandler creates the handler set.
func NewGatewayHandler(
	queries services.QueryManager,
	management services.ManagementManager,
	sdk services.SDKManager,
	registry services.SafetyRegistry,
	logger zerolog.Logger,
) *GatewayHandler {
	return &GatewayHandler{
		queries:    queries,
		management: management,
		sdk:        sdk,
		registry:   registry,
		logger:     logger.With().Str("component", "http-handler").Logger(),
	}
}

// Register mounts all routes on the router.
func (h *GatewayHandler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/query", h.handleQuery).Methods(http.MethodPost)
	v1.HandleFunc("/migrations", h.handleListMigrations).Methods(http.MethodGet)
	v1.HandleFunc("/management/request", h.handleManagementRequest).Methods(http.MethodPost)
	v1.HandleFunc("/sdk/call", h.handleSDKCall).Methods(http.MethodPost)
	v1.HandleFunc("/safety", h.handleSafetyModes).Methods(http.MethodGet)
	v1.HandleFunc("/safety/rules", h.handleSafetyRules).Methods(http.MethodGet)
	v1.HandleFunc("/safety/{client}", h.handleGetSafetyMode).Methods(http.MethodGet)
	v1.HandleFunc("/safety/{client}", h.handleSetSafetyMode).Methods(http.MethodPut)
}

type queryRequest struct {
	Query          string `json:"query"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	MigrationName  string `json:"migration_name,omitempty"`
}

func (h *GatewayHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.queries.HandleQuery(r.Context(), req.Query, req.ConfirmationID, req.MigrationName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *GatewayHandler) handleListMigrations(w http.ResponseWriter, r *http.Request) {
	opts := models.MigrationListOptions{
		Limit:             intQuery(r, "limit", 50),
		Offset:            intQuery(r, "offset", 0),
		NamePattern:       r.URL.Query().Get("name_pattern"),
		IncludeStatements: r.URL.Query().Get("include_statements") == "true",
	}

	records, err := h.queries.ListMigrations(r.Context(), opts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []models.MigrationRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"migrations": records})
}

type managementRequest struct {
	models.ManagementRequest
	ConfirmationID string `json:"confirmation_id,omitempty"`
}

func (h *GatewayHandler) handleManagementRequest(w http.ResponseWriter, r *http.Request) {
	var req managementRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.management.ExecuteRequest(r.Context(), &req.ManagementRequest, req.ConfirmationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"result": response})
}

type sdkRequest struct {
	models.SDKCall
	ConfirmationID string `json:"confirmation_id,omitempty"`
}

func (h *GatewayHandler) handleSDKCall(w http.ResponseWriter, r *http.Request) {
	var req sdkRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.sdk.CallMethod(r.Context(), &req.SDKCall, req.ConfirmationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"result": response})
}

func (h *GatewayHandler) handleSafetyModes(w http.ResponseWriter, r *http.Request) {
	modes := h.registry.Modes()
	out := make(map[string]string, len(modes))
	for client, mode := range modes {
		out[string(client)] = string(mode)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"modes": out})
}

func (h *GatewayHandler) handleGetSafetyMode(w http.ResponseWriter, r *http.Request) {
	client, err := models.ParseClientType(mux.Vars(r)["client"])
	if err != nil {
		h.writeError(w, errors.Wrap(err, errors.CodeInvalidRequest, "unknown client type"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"client": string(client),
		"mode":   string(h.registry.Mode(client)),
	})
}

type safetyUpdateRequest struct {
	Mode string `json:"mode"`
}

func (h *GatewayHandler) handleSetSafetyMode(w http.ResponseWriter, r *http.Request) {
	client, err := models.ParseClientType(mux.Vars(r)["client"])
	if err != nil {
		h.writeError(w, errors.Wrap(err, errors.CodeInvalidRequest, "unknown client type"))
		return
	}

	var req safetyUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	mode, err := models.ParseSafetyMode(req.Mode)
	if err != nil {
		h.writeError(w, errors.Wrap(err, errors.CodeInvalidRequest, "unknown safety mode"))
		return
	}

	if err := h.registry.SetMode(client, mode); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"client": string(client),
		"mode":   string(mode),
	})
}

// handleSafetyRules describes the active policy in human-readable form.
func (h *GatewayHandler) handleSafetyRules(w http.ResponseWriter, r *http.Request) {
	modes := h.registry.Modes()

	rules := make([]map[string]interface{}, 0, len(modes))
	for _, client := range models.ClientTypes() {
		mode := modes[client]
		rules = append(rules, map[string]interface{}{
			"client": string(client),
			"mode":   string(mode),
			"allowed": map[string]string{
				"low":     "always allowed",
				"medium":  describeTier(mode, models.RiskMedium),
				"high":    describeTier(mode, models.RiskHigh),
				"extreme": "never allowed",
			},
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func describeTier(mode models.SafetyMode, risk models.RiskLevel) string {
	if mode == models.SafetyModeSafe {
		return "blocked in safe mode"
	}
	if risk >= models.RiskHigh {
		return "allowed in unsafe mode with confirmation"
	}
	return "allowed in unsafe mode"
}

func (h *GatewayHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *GatewayHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, errors.Wrap(err, errors.CodeInvalidRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *GatewayHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *GatewayHandler) writeError(w http.ResponseWriter, err error) {
	gateErr, ok := err.(*errors.Error)
	if !ok {
		gateErr = errors.Wrap(err, errors.CodeInternal, "internal error")
	}
	h.writeJSON(w, statusForCode(gateErr.Code), map[string]interface{}{"error": gateErr})
}

func statusForCode(code string) int {
	switch code {
	case errors.CodeInvalidRequest, errors.CodeSyntaxError, errors.CodeEmptyQuery,
		errors.CodeUnsupportedOperation:
		return http.StatusBadRequest
	case errors.CodeOperationNotAllowed:
		return http.StatusForbidden
	case errors.CodeConfirmationRequired:
		return http.StatusConflict
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
