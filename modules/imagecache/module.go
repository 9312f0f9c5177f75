// Package imagecache is a content cache for chat images with a fixed time
// to live. Entries are evicted lazily on read and actively by a periodic
// sweeper; the whole cache is purged at service start.
package imagecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-monolith/mono"
)

// Module runs the store's background sweeper for the life of the process.
type Module struct {
	store  *Store
	cfg    Config
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the image cache module.
func NewModule(cfg Config) (*Module, error) {
	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Module{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
	}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "imagecache"
}

// Store returns the shared store handle.
func (m *Module) Store() *Store {
	return m.store
}

// Start purges stale entries left by a previous run and launches the
// sweeper. The sweeper outlives every connection and stops only with the
// module.
func (m *Module) Start(_ context.Context) error {
	if err := m.store.PurgeAll(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go m.runSweeper(ctx)

	m.logger.Info("image cache started",
		"dir", m.cfg.Dir, "ttl", m.cfg.TTL, "interval", m.cfg.SweepInterval)
	return nil
}

// Stop cancels the sweeper and waits for it to exit.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("image cache stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"cached_images": m.store.Count(),
		},
	}
}

func (m *Module) runSweeper(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			if _, err := m.store.Sweep(); err != nil {
				m.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
