package trellis

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/trellis/config"
)

type Option func(*appConfig)

type appConfig struct {
	logger          *slog.Logger
	configPath      string
	configuration   *config.Configuration
	registerer      prometheus.Registerer
	tracerProvider  trace.TracerProvider
	shutdownTimeout time.Duration

	onPhase      []PhaseObserver
	onModule     []ModuleObserver
	onPostInject []PostInjectObserver
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) {
		cfg.logger = logger
	}
}

// WithConfigFile sets the JSON configuration file read at the first
// module registration. It defaults to resources/config.json.
func WithConfigFile(path string) Option {
	return func(cfg *appConfig) {
		cfg.configPath = path
	}
}

// WithConfig provides the configuration directly; no file is read.
func WithConfig(c *config.Configuration) Option {
	return func(cfg *appConfig) {
		cfg.configuration = c
	}
}

// WithPrometheus registers the lifecycle metrics on reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(cfg *appConfig) {
		cfg.registerer = reg
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *appConfig) {
		cfg.tracerProvider = tp
	}
}

// WithShutdownTimeout bounds Shutdown when Run stops the application.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(cfg *appConfig) {
		cfg.shutdownTimeout = timeout
	}
}

func WithPhaseObserver(observer PhaseObserver) Option {
	return func(cfg *appConfig) {
		cfg.onPhase = append(cfg.onPhase, observer)
	}
}

func WithModuleObserver(observer ModuleObserver) Option {
	return func(cfg *appConfig) {
		cfg.onModule = append(cfg.onModule, observer)
	}
}

func WithPostInjectObserver(observer PostInjectObserver) Option {
	return func(cfg *appConfig) {
		cfg.onPostInject = append(cfg.onPostInject, observer)
	}
}
