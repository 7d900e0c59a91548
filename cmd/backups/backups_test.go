package backups

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithOutput(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := runBackups(cmd, args)
	return buf.String(), err
}

func TestBackupsListing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("live"), 0o644))
	require.NoError(t, os.WriteFile(path+".1", bytes.Repeat([]byte("x"), 2048), 0o644))
	require.NoError(t, os.WriteFile(path+".2.gz", []byte("gz"), 0o644))

	out, err := runWithOutput(t, path)
	require.NoError(t, err)

	assert.Contains(t, strings.ToUpper(out), "GENERATION")
	assert.Contains(t, out, "app.log.1")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "app.log.2.gz")
	assert.NotContains(t, out, "live")
}

func TestBackupsEmpty(t *testing.T) {
	out, err := runWithOutput(t, filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "No backups found.\n", out)
}

func TestBackupsMissingDirectory(t *testing.T) {
	_, err := runWithOutput(t, filepath.Join(t.TempDir(), "missing", "app.log"))
	assert.Error(t, err)
}

func TestBackupsCmdArgs(t *testing.T) {
	assert.Error(t, BackupsCmd.Args(BackupsCmd, nil))
	assert.NoError(t, BackupsCmd.Args(BackupsCmd, []string{"app.log"}))
}
