package agent

import (
	"context"
	"log"
	"time"

	"github.com/minwoo/labpilot/internal/observability"
	"github.com/minwoo/labpilot/internal/registry"
)

// HealthChecker probes a service health endpoint.
type HealthChecker interface {
	Health(ctx context.Context, baseURL, path string) error
}

// Monitor periodically probes every enabled service so the dashboard and
// logs reflect which capabilities are reachable. It observes only; the
// registry is never mutated from here.
type Monitor struct {
	Registry *registry.Registry
	Checker  HealthChecker
	Logger   *observability.Logger
	Interval time.Duration
}

func NewMonitor(reg *registry.Registry, checker HealthChecker, logger *observability.Logger) *Monitor {
	return &Monitor{
		Registry: reg,
		Checker:  checker,
		Logger:   logger,
		Interval: 30 * time.Second,
	}
}

func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	log.Println("Service health monitor started...")
	m.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	for _, svc := range m.Registry.Enabled() {
		path, ok := svc.Operation("health")
		if !ok {
			path = "/health"
		}

		err := m.Checker.Health(ctx, svc.BaseURL, path)
		healthy := err == nil

		observability.SetServiceHealth(svc.Key, healthy)
		if m.Logger != nil {
			m.Logger.LogHealth(svc.Key, healthy)
		}
		if err != nil {
			log.Printf("Health probe failed for %s: %v", svc.Key, err)
		}
	}
}
