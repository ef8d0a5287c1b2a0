package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir(t *testing.T) {
	switch runtime.GOOS {
	case "linux":
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/courses", got)

		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		got, err = DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "courses"), got)
	default:
		base, err := os.UserConfigDir()
		require.NoError(t, err)
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "courses"), got)
	}
}

func TestDefaultConfigDir_PlatformError(t *testing.T) {
	boom := errors.New("no home")
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.homeDir = func() (string, error) { return "", boom }
	platformDir.userConfigDir = func() (string, error) { return "", boom }
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.ErrorIs(t, err, boom)
}

func TestResolveConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	def, err := DefaultConfigDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag over env", "/flag/config", "/env/config", "/flag/config"},
		{"env without flag", "", "/env/config", "/env/config"},
		{"platform default", "", "", def},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{"flag over everything", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config.yaml over env", "", "/config/data", "/env/data", "/config/data"},
		{"env alone", "", "", "/env/data", "/env/data"},
		{"working directory default", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_RelativeBecomesAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	for name, resolve := range map[string]func() (string, error){
		"config flag": func() (string, error) { return ResolveConfigDir("relative/config") },
		"data flag":   func() (string, error) { return ResolveDataDir("relative/data", "") },
		"data config": func() (string, error) { return ResolveDataDir("", "relative/yaml") },
	} {
		t.Run(name, func(t *testing.T) {
			got, err := resolve()
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
		})
	}
}
