package lambda

import (
	"context"
	"sync"
	"time"

	"taxlator-api/internal/config"
	"taxlator-api/pkg/server"
)

// idleTimeout marks a warm container as stale
const idleTimeout = 5 * time.Minute

// ConnectionManager keeps one service container alive across invocations of
// a warm Lambda execution environment
type ConnectionManager struct {
	mu        sync.Mutex
	container *server.Container
	lastUsed  time.Time

	// loadConfig is replaced in tests
	loadConfig func() (*config.Config, error)
	now        func() time.Time
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the process wide connection manager
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = NewConnectionManager(config.GetOptimizedConfig)
	})
	return globalConnectionManager
}

// NewConnectionManager creates a manager that builds its container from the
// configuration returned by loadConfig
func NewConnectionManager(loadConfig func() (*config.Config, error)) *ConnectionManager {
	return &ConnectionManager{
		loadConfig: loadConfig,
		now:        time.Now,
	}
}

// Initialize builds the container from cfg unless one already exists
func (cm *ConnectionManager) Initialize(cfg *config.Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.initLocked(cfg)
}

func (cm *ConnectionManager) initLocked(cfg *config.Config) error {
	if cm.container != nil {
		return nil
	}

	container, err := server.NewContainer(cfg)
	if err != nil {
		return err
	}

	cm.container = container
	cm.lastUsed = cm.now()
	return nil
}

// GetContainer returns the warm container, building it on first use. A
// failed build is retried on the next call.
func (cm *ConnectionManager) GetContainer(ctx context.Context) (*server.Container, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		cfg, err := cm.loadConfig()
		if err != nil {
			return nil, err
		}
		if err := cm.initLocked(cfg); err != nil {
			return nil, err
		}
	}

	cm.lastUsed = cm.now()
	return cm.container, nil
}

// IsHealthy reports whether a container exists and was used recently
func (cm *ConnectionManager) IsHealthy() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		return false
	}
	return cm.now().Sub(cm.lastUsed) < idleTimeout
}

// Cleanup closes the container. The next GetContainer builds a new one.
func (cm *ConnectionManager) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		return nil
	}

	err := cm.container.Close()
	cm.container = nil
	return err
}

// UpdateLastUsed updates the last used timestamp
func (cm *ConnectionManager) UpdateLastUsed() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.lastUsed = cm.now()
}
