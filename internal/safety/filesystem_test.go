package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"
)

func TestSandbox_ContainsWithinRoot(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)

	assert.True(t, sb.Contains(filepath.Join(dir, "out.txt")))
	assert.True(t, sb.Contains(dir))
}

func TestSandbox_RejectsEscape(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)

	assert.False(t, sb.Contains("/etc/passwd"))
	assert.False(t, sb.Contains(filepath.Join(dir, "..", "escaped.txt")))
}

func TestSandbox_SafeDefault(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)

	got := sb.SafeDefault("/etc/passwd")
	assert.Equal(t, filepath.Join(dir, "passwd"), got)
}

func TestSandbox_SanitizePaths_RewritesEscapingPath(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)

	args := map[string]interface{}{
		"output_path": "/etc/passwd",
		"note":        "not a path",
	}
	out, changed := sb.SanitizePaths(args)
	require.True(t, changed)
	assert.Equal(t, filepath.Join(dir, "passwd"), out["output_path"])
	assert.Equal(t, "not a path", out["note"])
}

func TestSandbox_SanitizePaths_LeavesContainedPathAlone(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)

	inside := filepath.Join(dir, "ok.txt")
	out, changed := sb.SanitizePaths(map[string]interface{}{"path": inside})
	assert.False(t, changed)
	assert.Equal(t, inside, out["path"])
}

func TestSandbox_CanonicalResolvesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	sb, err := NewSandbox(dir)
	require.NoError(t, err)

	canon, err := sb.Canonical(link)
	require.NoError(t, err)
	realCanon, err := sb.Canonical(target)
	require.NoError(t, err)
	assert.Equal(t, realCanon, canon)
}
