package rotate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeFile(t, path, "live")
	writeFile(t, filepath.Join(dir, "app.log.1"), "one")
	require.NoError(t, CompressFile(filepath.Join(dir, "app.log.1"), filepath.Join(dir, "app.log.10.gz")))
	writeFile(t, filepath.Join(dir, "app.log.2"), "two!")
	writeFile(t, filepath.Join(dir, "other.log.3"), "other")

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 3)

	assert.Equal(t, 1, backups[0].Number)
	assert.Equal(t, int64(3), backups[0].Size)
	assert.Equal(t, 2, backups[1].Number)
	assert.Equal(t, int64(4), backups[1].Size)
	assert.Equal(t, 10, backups[2].Number)
	assert.True(t, backups[2].Compressed)
	assert.Equal(t, "app.log.10.gz", backups[2].Name)
}

func TestListBackupsEmpty(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestListBackupsMissingDirectory(t *testing.T) {
	_, err := ListBackups(filepath.Join(t.TempDir(), "missing", "app.log"))
	assert.Error(t, err)
}
