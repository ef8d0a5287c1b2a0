package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/courses/internal/imagerecipe"
)

// testEnv is an isolated config and data directory pair.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{"COURSES_CONFIG_DIR", "COURSES_DATA_DIR", "COURSES_PORT", "COURSES_HOST", "COURSES_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
}

// cmdResult holds the outcome of one CLI invocation.
type cmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// run executes the CLI with the environment's directories injected.
func (e *testEnv) run(args ...string) cmdResult {
	e.t.Helper()
	all := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...)
	var stdout, stderr bytes.Buffer
	code := Execute(all, &stdout, &stderr)
	return cmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

func (e *testEnv) writeConfig(content string) {
	e.t.Helper()
	require.NoError(e.t, os.MkdirAll(e.ConfigDir, 0o755))
	require.NoError(e.t, os.WriteFile(filepath.Join(e.ConfigDir, configFileExt), []byte(content), 0o644))
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("version")
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Equal(t, "courses "+Version+"\n", res.Stdout)
	assert.NoDirExists(t, env.ConfigDir, "version must not touch the config dir")
}

func TestConfigFreeCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "help", args: []string{"help"}, want: "Usage:"},
		{name: "help for a subcommand", args: []string{"help", "serve"}, want: "serve"},
		{name: "bash completion", args: []string{"completion", "bash"}, want: "courses"},
		{name: "zsh completion", args: []string{"completion", "zsh"}, want: "courses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			res := env.run(tt.args...)
			require.Equal(t, 0, res.ExitCode, res.Stderr)
			assert.Contains(t, res.Stdout, tt.want)
			assert.NoDirExists(t, env.ConfigDir)
		})
	}
}

func TestSkipsConfig(t *testing.T) {
	root := NewRootCmd()
	root.InitDefaultCompletionCmd()
	root.InitDefaultHelpCmd()

	for _, args := range [][]string{{"version"}, {"help"}, {"completion", "fish"}, {"dockerfile"}} {
		cmd, _, err := root.Find(args)
		require.NoError(t, err, args)
		assert.True(t, skipsConfig(cmd), args)
	}
	for _, args := range [][]string{{"serve"}, {"seed"}, {"init"}, {"config"}} {
		cmd, _, err := root.Find(args)
		require.NoError(t, err, args)
		assert.False(t, skipsConfig(cmd), args)
	}
}

func TestDockerfile(t *testing.T) {
	env := newTestEnv(t)

	t.Run("default preset is go", func(t *testing.T) {
		res := env.run("dockerfile")
		require.Equal(t, 0, res.ExitCode, res.Stderr)
		assert.Equal(t, imagerecipe.GoService(imagerecipe.GoOptions{}).String(), res.Stdout)
	})

	t.Run("python preset", func(t *testing.T) {
		res := env.run("dockerfile", "--preset", "python")
		require.Equal(t, 0, res.ExitCode, res.Stderr)
		assert.Equal(t, imagerecipe.PythonService().String(), res.Stdout)
		assert.Contains(t, res.Stdout, `CMD ["uvicorn", "main:app", "--host", "0.0.0.0", "--port", "8000"]`)
	})

	t.Run("output file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "Dockerfile")
		res := env.run("dockerfile", "-o", out)
		require.Equal(t, 0, res.ExitCode, res.Stderr)
		assert.Empty(t, res.Stdout)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, imagerecipe.GoService(imagerecipe.GoOptions{}).String(), string(data))
	})

	t.Run("unknown preset", func(t *testing.T) {
		res := env.run("dockerfile", "--preset", "ruby")
		assert.Equal(t, exitUserError, res.ExitCode)
		assert.Contains(t, res.Stderr, `unknown preset "ruby"`)
	})
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("init")
	require.Equal(t, 0, res.ExitCode, res.Stderr)

	assert.FileExists(t, filepath.Join(env.ConfigDir, configFileExt))
	assert.DirExists(t, env.DataDir)
	assert.Contains(t, res.Stdout, env.DataDir)

	// A second run keeps an edited config.
	env.writeConfig("port: 9001\n")
	res = env.run("init")
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	data, err := os.ReadFile(filepath.Join(env.ConfigDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, "port: 9001\n", string(data))
}

func TestSeed(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("seed")
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Seeded 2 courses, 3 lessons, 3 quizzes")

	// Seeding twice replaces rather than duplicates.
	res = env.run("seed")
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "Seeded 2 courses, 3 lessons, 3 quizzes")
}

func decodeConfig(t *testing.T, out string) effectiveConfig {
	t.Helper()
	var cfg effectiveConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg), out)
	return cfg
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		env := newTestEnv(t)
		res := env.run("config")
		require.Equal(t, 0, res.ExitCode, res.Stderr)

		cfg := decodeConfig(t, res.Stdout)
		assert.Equal(t, "courses", cfg.Settings.ServiceName)
		assert.Equal(t, "0.0.0.0", cfg.Settings.Host)
		assert.Equal(t, 8000, cfg.Settings.Port)
		assert.Equal(t, "info", cfg.Settings.LogLevel)
		assert.Equal(t, "json", cfg.Settings.LogFormat)
		assert.True(t, cfg.Settings.ResetOnStart)
		assert.Equal(t, "demo_user", cfg.Settings.DefaultUser)
		assert.Equal(t, 10*time.Second, cfg.Settings.ShutdownTimeout)
		assert.Equal(t, env.DataDir, cfg.Resolved)
		assert.Equal(t, env.ConfigDir, cfg.ConfigDir)
	})

	t.Run("config file and env", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeConfig("port: 9100\nlog_level: debug\n")
		t.Setenv("COURSES_HOST", "127.0.0.1")

		res := env.run("config")
		require.Equal(t, 0, res.ExitCode, res.Stderr)
		cfg := decodeConfig(t, res.Stdout)
		assert.Equal(t, 9100, cfg.Settings.Port)
		assert.Equal(t, "debug", cfg.Settings.LogLevel)
		assert.Equal(t, "127.0.0.1", cfg.Settings.Host)
	})

	t.Run("data_dir from config file", func(t *testing.T) {
		env := newTestEnv(t)
		want := filepath.Join(t.TempDir(), "elsewhere")
		env.writeConfig("data_dir: " + want + "\n")

		var stdout, stderr bytes.Buffer
		code := Execute([]string{"--config-dir", env.ConfigDir, "config"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		assert.Equal(t, want, decodeConfig(t, stdout.String()).Resolved)
	})

	t.Run("invalid port", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeConfig("port: 70000\n")
		res := env.run("config")
		assert.Equal(t, exitUserError, res.ExitCode)
		assert.Contains(t, res.Stderr, "out of range")
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServe_BindFailure(t *testing.T) {
	env := newTestEnv(t)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	res := env.run("serve", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
	assert.Equal(t, exitSysError, res.ExitCode)
	assert.Contains(t, res.Stderr, "start server")
	assert.Contains(t, res.Stdout, "Server failed to start")
}

func TestServe_BadLogLevel(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("serve", "--log-level", "loud")
	assert.Equal(t, exitUserError, res.ExitCode)
	assert.Contains(t, res.Stderr, "log level")
}

func TestServe_RunsUntilCancelled(t *testing.T) {
	env := newTestEnv(t)
	port := freePort(t)
	base := "http://127.0.0.1:" + strconv.Itoa(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{
		"--config-dir", env.ConfigDir, "--data-dir", env.DataDir,
		"serve", "--host", "127.0.0.1", "--port", strconv.Itoa(port),
	})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/api/courses")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, ExitCode(nil))
	assert.Equal(t, exitUserError, ExitCode(errors.New("unknown flag")))
	assert.Equal(t, exitUserError, ExitCode(userError("bad %s", "input")))
	assert.Equal(t, exitSysError, ExitCode(sysError("disk: %w", os.ErrPermission)))

	err := sysError("open: %w", os.ErrNotExist)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
