package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/trellis/cmd/trellis/commands"
	"github.com/danpasecinic/trellis/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := commands.NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewProject(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "new", "shop", "--dir", dir, "--module", "github.com/acme/shop")
	require.NoError(t, err)
	assert.Contains(t, out, "Project shop created")

	target := filepath.Join(dir, "shop")
	for _, f := range []string{"go.mod", "main.go", "components/greeter.go", "controllers/hello.go", "resources/config.json"} {
		assert.FileExists(t, filepath.Join(target, filepath.FromSlash(f)))
	}

	gomod, err := os.ReadFile(filepath.Join(target, "go.mod"))
	require.NoError(t, err)
	assert.Contains(t, string(gomod), "module github.com/acme/shop")

	mainSrc, err := os.ReadFile(filepath.Join(target, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(mainSrc), `_ "github.com/acme/shop/controllers"`)

	cfg, err := config.Load(filepath.Join(target, "resources", "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "github.com/acme/shop", cfg.BasePath)
}

func TestNewProjectRefusesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "shop"), 0o755))

	_, err := run(t, "new", "shop", "--dir", dir)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "new", "shop", "--dir", dir, "--force")
	assert.NoError(t, err)
}

func TestNewProjectRejectsBadName(t *testing.T) {
	_, err := run(t, "new", "1shop", "--dir", t.TempDir())
	assert.ErrorContains(t, err, "invalid project name")

	_, err = run(t, "new")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, config.Write(good, config.Default()))

	out, err := run(t, "config", "validate", "--config", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"logLevel": "loud"}`), 0o644))
	_, err = run(t, "config", "validate", "--config", bad)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = run(t, "config", "validate", "--config", filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"basePath": "github.com/acme/shop"}`), 0o644))

	out, err := run(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"basePath": "github.com/acme/shop"`)
	assert.Contains(t, out, `"dependencyTryMaxCount": 2000`)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "trellis dev (commit: none)\n", out)
}
