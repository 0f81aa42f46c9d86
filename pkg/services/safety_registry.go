package services

import (
	"sync"

	"github.com/warden-db/warden/pkg/errors"
	"github.com/warden-db/warden/pkg/models"
)

// safetyRegistry is the in-memory SafetyRegistry. Every known client starts
// in safe mode; modes are process-local and reset on restart, which is the
// conservative failure direction.
type safetyRegistry struct {
	mu     sync.RWMutex
	modes  map[models.ClientType]models.SafetyMode
	logger Logger
}

// NewSafetyRegistry creates a registry with all client types in safe mode.
func NewSafetyRegistry(logger Logger) SafetyRegistry {
	modes := make(map[models.ClientType]models.SafetyMode)
	for _, client := range models.ClientTypes() {
		modes[client] = models.SafetyModeSafe
	}
	return &safetyRegistry{
		modes:  modes,
		logger: logger,
	}
}

func (r *safetyRegistry) Mode(client models.ClientType) models.SafetyMode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mode, ok := r.modes[client]
	if !ok {
		r.logger.Warn("Safety mode requested for unregistered client, reporting safe",
			"client", string(client))
		return models.SafetyModeSafe
	}
	return mode
}

func (r *safetyRegistry) SetMode(client models.ClientType, mode models.SafetyMode) error {
	if _, err := models.ParseClientType(string(client)); err != nil {
		return errors.Newf(errors.CodeInvalidRequest, "unknown client type: %q", client)
	}
	if _, err := models.ParseSafetyMode(string(mode)); err != nil {
		return errors.Newf(errors.CodeInvalidRequest, "unknown safety mode: %q", mode)
	}

	r.mu.Lock()
	previous := r.modes[client]
	r.modes[client] = mode
	r.mu.Unlock()

	if previous != mode {
		r.logger.Info("Safety mode changed",
			"client", string(client),
			"from", string(previous),
			"to", string(mode))
	}
	return nil
}

func (r *safetyRegistry) Modes() map[models.ClientType]models.SafetyMode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[models.ClientType]models.SafetyMode, len(r.modes))
	for client, mode := range r.modes {
		snapshot[client] = mode
	}
	return snapshot
}
