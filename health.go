package trellis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danpasecinic/trellis/internal/reflect"
)

type HealthStatus string

const (
	HealthStatusUp   HealthStatus = "up"
	HealthStatusDown HealthStatus = "down"
)

type HealthReport struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency"`
}

// HealthChecker is implemented by components and modules able to tell
// whether they work.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Live fails with the first failing check.
func (a *App) Live(ctx context.Context) error {
	for _, r := range a.Health(ctx) {
		if r.Status == HealthStatusDown {
			return NewError(ErrCodeHealthCheckFailed, "health check failed: "+r.Error, nil).WithComponent(r.Name)
		}
	}
	return nil
}

// Health runs every check concurrently: modules first, then components.
func (a *App) Health(ctx context.Context) []HealthReport {
	type target struct {
		name    string
		checker HealthChecker
	}

	var targets []target
	for _, m := range a.Modules() {
		if hc, ok := m.(HealthChecker); ok {
			targets = append(targets, target{reflect.TypeKeyFromValue(m), hc})
		}
	}
	if di, err := a.DI(); err == nil && di.container != nil {
		for _, e := range di.container.Entries() {
			if hc, ok := e.Instance.(HealthChecker); ok {
				targets = append(targets, target{e.Key, hc})
			}
		}
	}

	reports := make([]HealthReport, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			start := time.Now()
			err := t.checker.HealthCheck(ctx)
			reports[i] = HealthReport{
				Name:    t.name,
				Status:  HealthStatusUp,
				Latency: time.Since(start),
			}
			if err != nil {
				reports[i].Status = HealthStatusDown
				reports[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports
}
