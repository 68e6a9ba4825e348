package providers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
)

// MetricsHandle carries the recorder handed to services and the scrape
// handler. Handler is nil when metrics are disabled.
type MetricsHandle struct {
	Recorder metrics.Recorder
	Handler  http.Handler
}

// ProvideMetrics provides a Prometheus-backed recorder on a private registry,
// or a no-op recorder when metrics are disabled.
func ProvideMetrics(i do.Injector) (*MetricsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if !cfg.Metrics.Enabled {
		return &MetricsHandle{Recorder: metrics.Nop{}}, nil
	}

	reg := prometheus.NewRegistry()
	metrics.RegisterRuntime(reg)

	return &MetricsHandle{
		Recorder: metrics.NewCollector(reg),
		Handler:  metrics.Handler(reg),
	}, nil
}
