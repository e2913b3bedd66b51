package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/code11/internal/config"
	"github.com/MeKo-Tech/code11/internal/server"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate runs the test in an empty directory with no reachable config file.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)
	cfgFile = ""
	globalConfig = nil
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// pflag keeps parsed values between executions.
	for _, name := range []string{"help", "version"} {
		if f := rootCmd.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "code11", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)

	output, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "Code 11")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)

	output, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "code11 version")

	output, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "Commit:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"serve", "config", "version"} {
		assert.Contains(t, names, expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)

	output, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, output, "unknown flag")
}

func TestRootCommandBadConfigFile(t *testing.T) {
	isolate(t)

	_, err := execute(t, "--config", "/nonexistent/code11.yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
	cfgFile = ""
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out.yaml")

	output, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote default configuration")
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)
	require.NoError(t, configInitCmd.Flags().Set("force", "false"))
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code11.yaml"), []byte("validation:\n  min_digits: 10\n"), 0o644))
	t.Setenv("CODE11_SERVER_PORT", "9191")

	output, err := execute(t, "config", "show", "--format", "yaml")
	require.NoError(t, err)

	var fromYAML config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &fromYAML))
	assert.Equal(t, 10, fromYAML.Validation.MinDigits)
	assert.Equal(t, 9191, fromYAML.Server.Port)

	output, err = execute(t, "config", "show", "--format", "json")
	require.NoError(t, err)

	var fromJSON config.Config
	require.NoError(t, json.Unmarshal([]byte(output), &fromJSON))
	assert.Equal(t, fromYAML, fromJSON)

	_, err = execute(t, "config", "show", "--format", "toml")
	require.Error(t, err)
	require.NoError(t, configShowCmd.Flags().Set("format", "yaml"))
}

func TestConfigPaths(t *testing.T) {
	isolate(t)

	output, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, output, "Environment prefix: CODE11")
}

func newServeCommand() *cobra.Command {
	c := &cobra.Command{Use: "serve"}
	addServeFlags(c.Flags())
	return c
}

func TestBuildServerConfig_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	sc := buildServerConfig(newServeCommand(), &cfg)

	assert.Equal(t, "localhost", sc.Host)
	assert.Equal(t, 8080, sc.Port)
	assert.Equal(t, int64(cfg.Server.MaxBodyKB), sc.MaxBodyKB)
	assert.Equal(t, cfg.ToBarcodeOptions(), sc.Defaults)
	assert.Equal(t, cfg.Batch.Workers, sc.BatchWorkers)
	assert.Equal(t, time.Second, sc.BatchProgressInterval)
	assert.False(t, sc.RateLimit.Enabled)
}

func TestBuildServerConfig_FlagsOverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 7000
	cfg.Validation.MinDigits = 4

	c := newServeCommand()
	require.NoError(t, c.Flags().Set("port", "9000"))
	require.NoError(t, c.Flags().Set("use-check", "true"))
	require.NoError(t, c.Flags().Set("rate-limit-enabled", "true"))
	require.NoError(t, c.Flags().Set("requests-per-minute", "3"))
	require.NoError(t, c.Flags().Set("max-body-kb", "16"))

	sc := buildServerConfig(c, &cfg)
	assert.Equal(t, 9000, sc.Port)
	assert.True(t, sc.Defaults.UseCheck)
	assert.Equal(t, 4, sc.Defaults.MinDigits, "unset flag keeps config value")
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 3, sc.RateLimit.RequestsPerMinute)
	assert.Equal(t, int64(16), sc.MaxBodyKB)
}

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	isolate(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	sc := server.Config{
		Host:       "127.0.0.1",
		Port:       0,
		CORSOrigin: "*",
		MaxBodyKB:  16,
		TimeoutSec: 5,
		Defaults:   config.DefaultConfig().ToBarcodeOptions(),
		RateLimit:  server.RateLimitConfig{Enabled: true, RequestsPerMinute: 10},
	}
	go func() { done <- runServer(ctx, sc, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServer_InvalidConfig(t *testing.T) {
	err := runServer(context.Background(), server.Config{MaxBodyKB: 0}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize server")
}
