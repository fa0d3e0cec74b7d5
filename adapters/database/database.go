// Package database plugs a database connection into the application and
// publishes it as the component DatabaseConnection.
package database

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/internal/reflect"
)

const registerHookName = "database.registerConnection"

var errNotConnected = errors.New("database connection is not set up")

// Connector opens a connection and hands it out.
type Connector interface {
	SetupConnection(ctx context.Context) error
	Connection() any
}

type Adapter struct {
	connector Connector
	logger    *slog.Logger
}

func New(connector Connector) *Adapter {
	return &Adapter{
		connector: connector,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (a *Adapter) ModuleType() trellis.ModuleType {
	return trellis.ModuleTypeDatabase
}

// RegisterModule registers the hook publishing the connection once
// components are scanned.
func (a *Adapter) RegisterModule(_ context.Context, app *trellis.App) error {
	a.logger = app.Logger().With("module", "database", "connector", reflect.TypeKeyFromValue(a.connector))

	return app.RegisterNamedHook(
		trellis.PhaseDIAfterComponentScan,
		registerHookName,
		func(_ context.Context, app *trellis.App) error {
			di, err := app.DI()
			if err != nil {
				return err
			}
			conn := a.Connection()
			if reflect.IsNil(conn) {
				return trellis.NewError(trellis.ErrCodeModuleFailed, errNotConnected.Error(), nil)
			}
			a.logger.Debug("registering database connection", "identifier", trellis.DatabaseConnectionIdentifier)
			return di.RegisterInstance(conn, trellis.DatabaseConnectionIdentifier)
		},
	)
}

func (a *Adapter) Logger() *slog.Logger {
	return a.logger
}

func (a *Adapter) SetupConnection(ctx context.Context) error {
	a.logger.Info("setting up database connection")
	return a.connector.SetupConnection(ctx)
}

func (a *Adapter) Connection() any {
	return a.connector.Connection()
}

// HealthCheck defers to the connector when it can check itself, and
// otherwise only reports whether a connection exists.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.connector.(trellis.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	if reflect.IsNil(a.Connection()) {
		return errNotConnected
	}
	return nil
}

func (a *Adapter) Shutdown(ctx context.Context) error {
	s, ok := a.connector.(trellis.Shutdowner)
	if !ok {
		return nil
	}
	a.logger.Info("closing database connection")
	return s.Shutdown(ctx)
}
