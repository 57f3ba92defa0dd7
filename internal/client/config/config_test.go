package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_NormalizesAndDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfg := &Config{
		DataDir:   tmp,
		ServerURL: "192.168.1.10:9999/",
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://192.168.1.10:9999", cfg.ServerURL)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, MethodAuto, cfg.Method)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, RetentionKeepForever, cfg.BackupRetention)
}

func TestConfig_Validate_KeepN(t *testing.T) {
	cfg := &Config{
		DataDir:         t.TempDir(),
		ServerURL:       "http://host:9999",
		BackupRetention: RetentionKeepN,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBackupKeep, cfg.BackupKeep)

	cfg.BackupKeep = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	tmp := t.TempDir()

	t.Run("bad scheme", func(t *testing.T) {
		cfg := &Config{DataDir: tmp, ServerURL: "ftp://host:21"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty server", func(t *testing.T) {
		cfg := &Config{DataDir: tmp}
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad method", func(t *testing.T) {
		cfg := &Config{DataDir: tmp, ServerURL: "http://host", Method: "rsync"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad retention", func(t *testing.T) {
		cfg := &Config{DataDir: tmp, ServerURL: "http://host", BackupRetention: "sometimes"}
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_Validate_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		DataDir:   t.TempDir(),
		ServerURL: "https://sync.lan",
		Method:    MethodIncremental,
		Timeout:   5 * time.Second,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://sync.lan", cfg.ServerURL)
	assert.Equal(t, MethodIncremental, cfg.Method)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestDetectDataDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { os.Chdir(wd) })

	// only the parent exists: fine for a client, not for a server
	require.NoError(t, os.MkdirAll(filepath.Join("data"), 0o755))
	if _, err := DetectDataDir(true); err == nil {
		// a real install in the home directory satisfied the lookup
		t.Skip("home directory has a data directory")
	}

	got, err := DetectDataDir(false)
	require.NoError(t, err)
	assert.Equal(t, "default-user", filepath.Base(got))

	require.NoError(t, os.MkdirAll(filepath.Join("SillyTavern", "data", "default-user"), 0o755))
	got, err = DetectDataDir(true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("SillyTavern", "data", "default-user"), relTo(t, tmp, got))
}

func relTo(t *testing.T, base, target string) string {
	t.Helper()
	base, err := filepath.EvalSymlinks(base)
	require.NoError(t, err)
	target, err = filepath.EvalSymlinks(target)
	require.NoError(t, err)
	rel, err := filepath.Rel(base, target)
	require.NoError(t, err)
	return rel
}
