package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBackupPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	now := time.Date(2024, 6, 1, 8, 30, 5, 0, time.Local)

	first := nextBackupPath(root, now)
	assert.Equal(t, root+".backup.20240601_083005", first)
	require.NoError(t, os.MkdirAll(first, 0o755))

	second := nextBackupPath(root, now)
	assert.Equal(t, first+"_1", second)
	require.NoError(t, os.MkdirAll(second, 0o755))

	assert.Equal(t, first+"_2", nextBackupPath(root, now))
}

func TestListBackups(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "data")

	for _, name := range []string{
		"data.backup.20240602_000000",
		"data.backup.20240601_120000_2",
		"data.backup.20240601_120000",
		"data.backup.20240601_120000_1",
		"data.backup.garbage",
		"other.backup.20240101_000000",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(parent, name), 0o755))
	}
	// files with a backup name are not backups
	require.NoError(t, os.WriteFile(filepath.Join(parent, "data.backup.20230101_000000"), nil, 0o644))

	backups, err := listBackups(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(parent, "data.backup.20240601_120000"),
		filepath.Join(parent, "data.backup.20240601_120000_1"),
		filepath.Join(parent, "data.backup.20240601_120000_2"),
		filepath.Join(parent, "data.backup.20240602_000000"),
	}, backups)
}

func TestBackupSkipsEmptyDir(t *testing.T) {
	clientRoot := filepath.Join(t.TempDir(), "data")
	serverRoot := t.TempDir()
	writeFile(t, serverRoot, "a.txt", 10, t1)

	c := newClient(t, startServer(t, serverRoot), clientRoot)
	res, err := c.SyncBundle(context.Background(), true)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Empty(t, res.BackupPath)

	backups, err := listBackups(clientRoot)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRetentionDeleteOnSuccess(t *testing.T) {
	serverRoot := t.TempDir()
	writeFile(t, serverRoot, "a.txt", 10, t1)

	clientRoot := filepath.Join(t.TempDir(), "data")
	writeFile(t, clientRoot, "old.txt", 10, t1)

	c := newClient(t, startServer(t, serverRoot), clientRoot, func(cfg *config.Config) {
		cfg.BackupRetention = config.RetentionDeleteOnSuccess
	})
	res, err := c.SyncBundle(context.Background(), true)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Empty(t, res.BackupPath)

	backups, err := listBackups(clientRoot)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRetentionKeepN(t *testing.T) {
	serverRoot := t.TempDir()
	writeFile(t, serverRoot, "a.txt", 10, t1)

	parent := t.TempDir()
	clientRoot := filepath.Join(parent, "data")
	writeFile(t, clientRoot, "a.txt", 1, t1)
	for _, name := range []string{"data.backup.20200101_000000", "data.backup.20200102_000000", "data.backup.20200103_000000"} {
		require.NoError(t, os.MkdirAll(filepath.Join(parent, name), 0o755))
	}

	c := newClient(t, startServer(t, serverRoot), clientRoot, func(cfg *config.Config) {
		cfg.BackupRetention = config.RetentionKeepN
		cfg.BackupKeep = 2
	})
	res, err := c.SyncBundle(context.Background(), true)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.BackupPath)

	backups, err := listBackups(clientRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(parent, "data.backup.20200103_000000"), res.BackupPath}, backups)
}
