//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"

	"github.com/tourista/session-coordinator/internal/config"
	"github.com/tourista/session-coordinator/internal/dbtest/postgrestest"
	"github.com/tourista/session-coordinator/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	Cfg            map[string]any

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, name string) (istat infraStat) {
	t.Helper()

	// The config is read from $PWD/config.yaml, so every test runs the
	// binary in its own directory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, name+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = yaml.Unmarshal([]byte(validConfig), &istat.Cfg)
	require.NoError(t, err, "failed to parse config")

	istat.set("status", "enabled", false)
	istat.set("durableStore", "type", string(config.DurableStoreFile))
	istat.set("durableStore", "path", filepath.Join(istat.Procdir, "cookies.yaml"))

	return istat
}

func (istat *infraStat) set(section, key string, value any) {
	m, ok := istat.Cfg[section].(map[string]any)
	if !ok {
		m = map[string]any{}
		istat.Cfg[section] = m
	}
	m[key] = value
}

func embedded(value string) map[string]any {
	return map[string]any{"source": "embedded", "value": value}
}

func (istat *infraStat) UseAPI(url string) {
	istat.set("api", "baseURL", url)
}

func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.set("durableStore", "type", string(config.DurableStorePostgres))
	istat.set("database", "name", postgrestest.DBName)
	istat.set("database", "port", pgPort.Port())
	istat.set("database", "host", embedded(postgrestest.DBHost))
	istat.set("database", "user", embedded(postgrestest.DBUser))
	istat.set("database", "password", embedded(postgrestest.DBPassword))
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.set("durableStore", "type", string(config.DurableStoreValKey))
	istat.set("valkey", "host", embedded(net.JoinHostPort("localhost", vkPort.Port())))
	istat.set("valkey", "user", embedded(""))
	istat.set("valkey", "password", embedded(""))
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	data, err := yaml.Marshal(istat.Cfg)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, data, 0o600)
	require.NoError(t, err, "failed to write config")
}

// Run executes the binary in the test directory and returns its stdout.
func (istat *infraStat) Run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := exec.CommandContext(t.Context(), "../"+binary, append(args, "--graceful-shutdown", "0s")...)
	cmd.Dir = istat.Procdir
	cmd.Env = append(os.Environ(), "HOME="+istat.Procdir)
	cmd.Stdin = bytes.NewBufferString(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		t.Logf("%s %v stderr: %s", binary, args, stderr.String())
	}

	return stdout.String(), err
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
