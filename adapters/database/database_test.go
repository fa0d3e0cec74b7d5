package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/database"
	"github.com/danpasecinic/trellis/trellistest"
)

type Conn struct {
	DSN string
}

type connector struct {
	dsn    string
	fail   error
	conn   *Conn
	closed bool
}

func (c *connector) SetupConnection(context.Context) error {
	if c.fail != nil {
		return c.fail
	}
	c.conn = &Conn{DSN: c.dsn}
	return nil
}

func (c *connector) Connection() any {
	if c.conn == nil {
		return nil
	}
	return c.conn
}

func (c *connector) Shutdown(context.Context) error {
	c.closed = true
	return nil
}

type UserRepository struct {
	Conn *Conn `inject:"DatabaseConnection"`
}

func TestConnectionIsInjectable(t *testing.T) {
	ctx := context.Background()
	conn := &connector{dsn: "memory"}

	app := trellistest.New(t)
	app.RequireRegister(ctx,
		trellis.NewDIModule(trellis.NewComponent[UserRepository]()),
		database.New(conn),
	)
	app.RequireInit(ctx)

	published := trellistest.MustInvokeNamed[*Conn](app, trellis.DatabaseConnectionIdentifier)
	assert.Same(t, conn.conn, published)

	repo := trellistest.MustInvoke[*UserRepository](app)
	assert.Same(t, conn.conn, repo.Conn)
}

func TestSetupFailure(t *testing.T) {
	ctx := context.Background()
	refused := errors.New("connection refused")

	app := trellistest.New(t)
	app.RequireRegister(ctx, trellis.NewDIModule(), database.New(&connector{fail: refused}))

	err := app.Init(ctx)
	assert.True(t, trellis.IsModuleFailed(err), "expected module failure, got %v", err)
	assert.ErrorIs(t, err, refused)
}

func TestHealthAndShutdown(t *testing.T) {
	ctx := context.Background()
	conn := &connector{dsn: "memory"}
	adapter := database.New(conn)

	assert.Error(t, adapter.HealthCheck(ctx))
	require.NoError(t, adapter.SetupConnection(ctx))
	assert.NoError(t, adapter.HealthCheck(ctx))

	require.NoError(t, adapter.Shutdown(ctx))
	assert.True(t, conn.closed)
	assert.Equal(t, trellis.ModuleTypeDatabase, adapter.ModuleType())
}
