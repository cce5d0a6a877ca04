package orchestrator

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/config"
	"github.com/ayoubachak/marksim/internal/metrics"
)

// Module provides an Orchestrator to an fx application, wiring its
// shutdown to fx's lifecycle. Follows the order_matching fx
// module pattern (fx.Options(fx.Provide(NewEngine)) plus a lifecycle-hooked
// constructor).
var Module = fx.Options(
	fx.Provide(metrics.New),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(func() *prometheus.Registry { return prometheus.NewRegistry() }),
	fx.Provide(NewFx),
)

// NewFx constructs an Orchestrator and registers its Shutdown as an fx
// OnStop hook. The run loop itself is started by the caller (typically
// cmd/marksim) once every agent has been registered, not by OnStart —
// starting it here would race agent registration that happens after
// fx.New returns.
func NewFx(lifecycle fx.Lifecycle, logger *zap.Logger, cfg *config.Config, mtx *metrics.Metrics) (*Orchestrator, error) {
	o, err := New(logger, cfg, mtx)
	if err != nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down orchestrator")
			o.Shutdown()
			return nil
		},
	})

	return o, nil
}
